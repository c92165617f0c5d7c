package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/okhomin/contacts-service/internal/models"
)

// ContactRepo scopes every operation to the owning user.
type ContactRepo struct {
	DB *gorm.DB
}

func NewContactRepo(db *gorm.DB) *ContactRepo { return &ContactRepo{DB: db} }

func (r *ContactRepo) Create(ctx context.Context, c *models.Contact) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *ContactRepo) GetByID(ctx context.Context, userID, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepo) List(ctx context.Context, userID uint) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// ListByIDs keeps the given order of ids, dropping any that are missing or
// not owned by userID.
func (r *ContactRepo) ListByIDs(ctx context.Context, userID uint, ids []uint) ([]models.Contact, error) {
	if len(ids) == 0 {
		return []models.Contact{}, nil
	}

	var contacts []models.Contact
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Contact, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
	}
	ordered := make([]models.Contact, 0, len(contacts))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return ordered, nil
}

func (r *ContactRepo) Update(ctx context.Context, c *models.Contact) error {
	tx := r.DB.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ? AND user_id = ?", c.ID, c.UserID).
		Updates(map[string]any{
			"first_name": c.FirstName,
			"last_name":  c.LastName,
			"email":      c.Email,
			"phone":      c.Phone,
			"birthday":   c.Birthday,
			"extra":      c.Extra,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ContactRepo) Delete(ctx context.Context, userID, id uint) error {
	tx := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Contact{})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
