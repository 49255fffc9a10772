package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/visacarte/internal/errs"
	"github.com/example/visacarte/internal/models"
)

// Users is the persistence facade over the users table. Lookups return
// (nil, nil) when no record matches; structurally invalid ids are
// treated as not found, never as errors.
type Users struct {
	db *gorm.DB
}

// NewUsers constructs a Users repository.
func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

// FindByEmail looks a user up by case-normalized email.
func (r *Users) FindByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Where("email = ?", strings.ToLower(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Dependency, "user lookup failed", err)
	}
	return &user, nil
}

// FindByPhone looks a user up by exact phone match.
func (r *Users) FindByPhone(phone string) (*models.User, error) {
	var user models.User
	err := r.db.Where("phone = ?", phone).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Dependency, "user lookup failed", err)
	}
	return &user, nil
}

// FindByID looks a user up by its id string.
func (r *Users) FindByID(id string) (*models.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, nil
	}

	var user models.User
	err = r.db.Where("id = ?", parsed).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Wrap(errs.Dependency, "user lookup failed", err)
	}
	return &user, nil
}

// Create inserts the user. A unique-index violation on email or phone
// surfaces as a conflict error; the caller's pre-checks are only a
// fast path for nicer messages.
func (r *Users) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.New(errs.Conflict, "email or phone already registered")
		}
		return errs.Wrap(errs.Dependency, "user create failed", err)
	}
	return nil
}

// Update applies partial field updates to the user, stamping updated_at.
func (r *Users) Update(id uuid.UUID, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()

	res := r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return errs.New(errs.Conflict, "email or phone already registered")
		}
		return errs.Wrap(errs.Dependency, "user update failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.NotFound, "user not found")
	}
	return nil
}

// SoftDelete marks the user inactive and stamps deleted_at. Records are
// never physically removed. Deleting an unknown or already-deleted user
// is a not-found error.
func (r *Users) SoftDelete(id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return errs.New(errs.NotFound, "user not found")
	}

	now := time.Now()
	res := r.db.Model(&models.User{}).
		Where("id = ? AND deleted_at IS NULL", parsed).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return errs.Wrap(errs.Dependency, "user delete failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.New(errs.NotFound, "user not found")
	}
	return nil
}

// EmailExists reports whether another user (excluding excludeID, if set)
// holds the email.
func (r *Users) EmailExists(email string, excludeID uuid.UUID) (bool, error) {
	query := r.db.Model(&models.User{}).Where("email = ?", strings.ToLower(email))
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errs.Wrap(errs.Dependency, "email check failed", err)
	}
	return count > 0, nil
}

// PhoneExists reports whether another user (excluding excludeID, if set)
// holds the phone number.
func (r *Users) PhoneExists(phone string, excludeID uuid.UUID) (bool, error) {
	query := r.db.Model(&models.User{}).Where("phone = ?", phone)
	if excludeID != uuid.Nil {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, errs.Wrap(errs.Dependency, "phone check failed", err)
	}
	return count > 0, nil
}
