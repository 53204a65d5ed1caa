package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sweetshop/internal/models"
)

// GORMSweetRepository is a GORM implementation of SweetRepository.
type GORMSweetRepository struct {
	db *gorm.DB
}

// NewGORMSweetRepository creates a new instance of GORMSweetRepository.
func NewGORMSweetRepository(db *gorm.DB) *GORMSweetRepository {
	return &GORMSweetRepository{
		db: db,
	}
}

// GetAll retrieves all sweets from the database.
func (r *GORMSweetRepository) GetAll() ([]models.Sweet, error) {
	var sweets []models.Sweet
	if err := r.db.Find(&sweets).Error; err != nil {
		return nil, fmt.Errorf("failed to get all sweets: %w", err)
	}
	return sweets, nil
}

// GetByID retrieves a single sweet by its ID from the database.
func (r *GORMSweetRepository) GetByID(id string) (*models.Sweet, error) {
	var sweet models.Sweet
	if err := r.db.First(&sweet, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sweet by ID %s: %w", id, err)
	}
	return &sweet, nil
}

// Search retrieves the sweets matching every provided filter criterion.
func (r *GORMSweetRepository) Search(filter SearchFilter) ([]models.Sweet, error) {
	query := r.db.Model(&models.Sweet{})
	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}

	var sweets []models.Sweet
	if err := query.Find(&sweets).Error; err != nil {
		return nil, fmt.Errorf("failed to search sweets: %w", err)
	}
	return sweets, nil
}

// Create creates a new sweet in the database.
func (r *GORMSweetRepository) Create(sweet *models.Sweet) error {
	if sweet.ID == "" {
		sweet.ID = uuid.New().String()
	}
	if err := r.db.Create(sweet).Error; err != nil {
		return fmt.Errorf("failed to create sweet: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of update inside a transaction and
// returns the updated record. ID and AdminID are never touched.
func (r *GORMSweetRepository) Update(id string, update SweetUpdate) (*models.Sweet, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.Category != nil {
		fields["category"] = *update.Category
	}
	if update.Price != nil {
		fields["price"] = *update.Price
	}
	if update.Quantity != nil {
		fields["quantity"] = *update.Quantity
	}
	if update.ImageURL != nil {
		fields["image_url"] = *update.ImageURL
	}
	if update.Description != nil {
		fields["description"] = *update.Description
	}

	var sweet models.Sweet
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sweet, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load sweet %s: %w", id, err)
		}
		if len(fields) == 0 {
			return nil
		}
		if err := tx.Model(&sweet).Updates(fields).Error; err != nil {
			return fmt.Errorf("failed to update sweet %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

// Delete deletes a sweet by its ID from the database.
func (r *GORMSweetRepository) Delete(id string) error {
	res := r.db.Delete(&models.Sweet{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete sweet: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}
	return nil
}

// Purchase decrements quantity by one with a stock guard in the UPDATE, so
// concurrent purchases can never drive quantity negative.
func (r *GORMSweetRepository) Purchase(id string) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ? AND quantity > 0", id).
			UpdateColumn("quantity", gorm.Expr("quantity - 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to purchase sweet %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			// Either the sweet does not exist or it is out of stock.
			if err := tx.First(&sweet, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
				}
				return fmt.Errorf("failed to load sweet %s: %w", id, err)
			}
			return fmt.Errorf("sweet %s: %w", sweet.Name, ErrOutOfStock)
		}
		return tx.First(&sweet, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}

// Restock increments quantity by amount.
func (r *GORMSweetRepository) Restock(id string, amount int) (*models.Sweet, error) {
	var sweet models.Sweet
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Sweet{}).
			Where("id = ?", id).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", amount))
		if res.Error != nil {
			return fmt.Errorf("failed to restock sweet %s: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
		}
		return tx.First(&sweet, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &sweet, nil
}
