// Package contacts manages the contact list of each user. Every query is
// scoped to the owning user id; soft deleted rows never leave the package
// through List, Get or ListAll.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hugh/contact-keeper/internal/database/models"
	"gorm.io/gorm"
)

var (
	ErrNotFound    = errors.New("contact not found")
	ErrEmailExists = errors.New("email already exists")
)

// Fields are the user-editable columns of a contact.
type Fields struct {
	Name     string
	Email    string
	Phone    *string
	Address  *string
	Timezone *string
}

// BatchError reports the first row of a batch that could not be stored.
// Row is 1-based.
type BatchError struct {
	Row int
	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) Create(ctx context.Context, ownerID uint, f Fields) (*models.Contact, error) {
	contact := newContact(ownerID, f)
	if err := s.db.WithContext(ctx).Create(contact).Error; err != nil {
		return nil, translateWriteError("creating contact", err)
	}
	return contact, nil
}

// CreateBatch stores all rows in one transaction. Nothing is kept when any
// row fails.
func (s *Service) CreateBatch(ctx context.Context, ownerID uint, rows []Fields) ([]models.Contact, error) {
	created := make([]models.Contact, 0, len(rows))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, f := range rows {
			contact := newContact(ownerID, f)
			if err := tx.Create(contact).Error; err != nil {
				return &BatchError{Row: i + 1, Err: translateWriteError("creating contact", err)}
			}
			created = append(created, *contact)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

func (s *Service) List(ctx context.Context, ownerID uint, filter Filter) ([]models.Contact, error) {
	query := s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("user_id = ? AND is_deleted = ?", ownerID, false)

	query = filter.apply(query)

	var contacts []models.Contact
	if err := query.Order("id").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}
	return contacts, nil
}

// ListAll returns every live contact of the owner, in id order.
func (s *Service) ListAll(ctx context.Context, ownerID uint) ([]models.Contact, error) {
	return s.List(ctx, ownerID, Filter{})
}

func (s *Service) Get(ctx context.Context, id, ownerID uint) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND is_deleted = ?", id, ownerID, false).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting contact: %w", err)
	}
	return &contact, nil
}

// Update overwrites all editable fields of the owner's contact, including
// one that was soft deleted.
func (s *Service) Update(ctx context.Context, id, ownerID uint, f Fields) error {
	result := s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Updates(map[string]interface{}{
			"name":       f.Name,
			"email":      f.Email,
			"phone":      f.Phone,
			"address":    f.Address,
			"timezone":   f.Timezone,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return translateWriteError("updating contact", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) SoftDelete(ctx context.Context, id, ownerID uint) error {
	result := s.db.WithContext(ctx).
		Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", id, ownerID).
		Update("is_deleted", true)

	if result.Error != nil {
		return fmt.Errorf("deleting contact: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Exists reports whether a row with the id is stored, deleted or not.
func (s *Service) Exists(ctx context.Context, id uint) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Contact{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("checking contact: %w", err)
	}
	return count > 0, nil
}

func newContact(ownerID uint, f Fields) *models.Contact {
	owner := ownerID
	return &models.Contact{
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		Address:  f.Address,
		Timezone: f.Timezone,
		UserID:   &owner,
	}
}

func translateWriteError(op string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrEmailExists
	}
	return fmt.Errorf("%s: %w", op, err)
}
