package models

import "time"

// Contact belongs to exactly one user. Rows are soft deleted through
// IsDeleted and stay addressable by id for their owner.
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone     *string   `json:"phone"`
	Address   *string   `json:"address"`
	Timezone  *string   `json:"timezone"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IsDeleted bool      `gorm:"column:is_deleted;default:false;index" json:"-"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (Contact) TableName() string {
	return "contacts"
}
