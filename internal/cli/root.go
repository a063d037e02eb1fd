// Package cli implements contactctl, the operator tool that sits next to the
// HTTP server: secret sealing, schema migration, seeding and offline CSV/XLSX
// transfer against the configured database.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/hugh/contact-keeper/internal/auth"
	"github.com/hugh/contact-keeper/internal/database"
	"github.com/hugh/contact-keeper/pkg/config"
	"github.com/hugh/contact-keeper/pkg/util"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// Options lets callers replace how configuration is obtained.
type Options struct {
	LoadConfig func() (*config.Config, error)
}

func (o *Options) defaults() {
	if o.LoadConfig == nil {
		o.LoadConfig = config.Load
	}
}

// env is what database-backed commands share once PreRunE has run.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

func (e *env) close() {
	if e.db == nil {
		return
	}
	if sqlDB, err := e.db.DB(); err == nil {
		sqlDB.Close()
	}
}

func (e *env) userByEmail(cmd *cobra.Command, email string) (uint, error) {
	svc := auth.NewService(e.db, nil, e.cfg.JWT.BcryptCost)
	user, err := svc.GetUserByEmail(cmd.Context(), email)
	if err != nil {
		return 0, fmt.Errorf("finding user %s: %w", email, err)
	}
	return user.ID, nil
}

func NewRootCommand(opts Options) *cobra.Command {
	opts.defaults()
	e := &env{}

	// connect is the PreRunE of every command that needs the database.
	connect := func(cmd *cobra.Command, args []string) error {
		cfg, err := opts.LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		e.cfg = cfg
		e.logger = util.NewLoggerTo(cmd.ErrOrStderr(), cfg.Server.Env)

		db, err := database.Connect(&cfg.Database, e.logger)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		e.db = db

		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		return nil
	}
	disconnect := func(cmd *cobra.Command, args []string) error {
		e.close()
		return nil
	}

	root := &cobra.Command{
		Use:           "contactctl",
		Short:         "Operator tool for the contact-keeper API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dbCommands := []*cobra.Command{
		newMigrateCommand(e),
		newSeedCommand(e),
		newImportCommand(e),
		newExportCommand(e),
	}
	for _, c := range dbCommands {
		c.PreRunE = connect
		c.PostRunE = disconnect
	}

	root.AddCommand(newKeygenCommand(), newSealCommand())
	root.AddCommand(dbCommands...)

	return root
}
