package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a registered account. Email and phone carry unique indexes:
// the database is the authoritative uniqueness guard, the repository
// pre-checks exist only to produce friendlier errors.
//
// DeletedAt is a plain timestamp on purpose. Deletion is a soft flag the
// application manages itself; GORM's filtered soft delete would hide
// deleted rows from the uniqueness semantics.
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string     `gorm:"uniqueIndex" json:"email"`
	Phone        string     `gorm:"uniqueIndex" json:"phone"`
	Name         string     `json:"name"`
	PasswordHash string     `json:"-"`
	PINHash      *string    `gorm:"column:pin_hash" json:"-"`
	Avatar       string     `json:"avatar,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	DeviceID     *string    `json:"device_id,omitempty"`
	Balance      float64    `json:"balance"`
	LastLoginAt  *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// BeforeCreate ensures new records get a UUID.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
