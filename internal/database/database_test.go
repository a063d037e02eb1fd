package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hugh/contact-keeper/internal/database/models"
	"github.com/hugh/contact-keeper/pkg/config"
	"github.com/hugh/contact-keeper/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func connectTemp(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "contacts.db"),
	}
	db, err := Connect(cfg, util.DiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestConnect_UnsupportedDriver(t *testing.T) {
	_, err := Connect(&config.DatabaseConfig{Driver: "oracle"}, util.DiscardLogger())
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := connectTemp(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Contact{}))
	assert.True(t, db.Migrator().HasColumn(&models.Contact{}, "is_deleted"))
	assert.True(t, db.Migrator().HasColumn(&models.User{}, "reset_code"))
}

func TestMigrate_EnforcesUniqueEmails(t *testing.T) {
	db := connectTemp(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, db.Create(&models.User{Email: "a@x.com", PasswordHash: "h"}).Error)
	err := db.Create(&models.User{Email: "a@x.com", PasswordHash: "h"}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	owner := uint(1)
	require.NoError(t, db.Create(&models.Contact{Name: "A", Email: "c@x.com", UserID: &owner}).Error)
	err = db.Create(&models.Contact{Name: "B", Email: "c@x.com", UserID: &owner}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestMigrate_UserDefaults(t *testing.T) {
	db := connectTemp(t)
	require.NoError(t, Migrate(db))

	user := models.User{Email: "new@x.com", PasswordHash: "h"}
	require.NoError(t, db.Create(&user).Error)

	var stored models.User
	require.NoError(t, db.First(&stored, user.ID).Error)
	assert.False(t, stored.IsVerified)
	assert.Nil(t, stored.ResetCode)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestResetSchema(t *testing.T) {
	db := connectTemp(t)
	require.NoError(t, Migrate(db))

	user := models.User{Email: "a@x.com", PasswordHash: "h"}
	require.NoError(t, db.Create(&user).Error)
	require.NoError(t, db.Create(&models.Contact{Name: "A", Email: "c@x.com", UserID: &user.ID}).Error)

	require.NoError(t, ResetSchema(context.Background(), db))

	var users, contacts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Contact{}).Count(&contacts).Error)
	assert.Zero(t, users)
	assert.Zero(t, contacts)
}

func TestMissingTables(t *testing.T) {
	db := connectTemp(t)
	ctx := context.Background()

	assert.Equal(t, []string{"users", "contacts"}, MissingTables(ctx, db))

	require.NoError(t, Migrate(db))
	assert.Empty(t, MissingTables(ctx, db))

	require.NoError(t, db.Migrator().DropTable(&models.Contact{}))
	assert.Equal(t, []string{"contacts"}, MissingTables(ctx, db))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "contacts.db?_foreign_keys=on", sqliteDSN("contacts.db"))
	assert.Equal(t, "file:x.db?mode=rwc", sqliteDSN("file:x.db?mode=rwc"))
}
