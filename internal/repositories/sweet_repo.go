package repositories

import "sweetshop/internal/models"

// SearchFilter narrows the sweets returned by Search. All provided criteria
// are ANDed; zero-value / nil criteria impose no constraint.
type SearchFilter struct {
	Name     string   // case-insensitive substring match
	Category string   // exact match
	MinPrice *float64 // inclusive lower bound
	MaxPrice *float64 // inclusive upper bound
}

// SweetUpdate carries a partial update. Nil fields are left unchanged.
// ID and AdminID are not part of an update and can never be overwritten.
type SweetUpdate struct {
	Name        *string
	Category    *string
	Price       *float64
	Quantity    *int
	ImageURL    *string
	Description *string
}

// SweetRepository defines the interface for sweet inventory data access.
type SweetRepository interface {
	GetAll() ([]models.Sweet, error)
	GetByID(id string) (*models.Sweet, error)
	Search(filter SearchFilter) ([]models.Sweet, error)
	// Create stores a new sweet, assigning an ID if one is not set.
	Create(sweet *models.Sweet) error
	// Update applies the non-nil fields of update and returns the updated
	// record, or ErrNotFound.
	Update(id string, update SweetUpdate) (*models.Sweet, error)
	Delete(id string) error
	// Purchase atomically decrements quantity by one. Returns ErrNotFound
	// for an unknown id and ErrOutOfStock when quantity is already zero.
	Purchase(id string) (*models.Sweet, error)
	// Restock atomically increments quantity by amount. The caller must
	// have validated amount > 0.
	Restock(id string, amount int) (*models.Sweet, error)
}
