package repositories

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"sweetshop/internal/models"
)

// MemorySweetRepository is an in-memory implementation of SweetRepository.
// All mutations happen under the write lock, so the quantity invariant
// (never negative) holds under concurrent purchases.
type MemorySweetRepository struct {
	sweets map[string]models.Sweet
	mu     sync.RWMutex
}

// NewMemorySweetRepository creates a new instance of MemorySweetRepository.
func NewMemorySweetRepository() *MemorySweetRepository {
	return &MemorySweetRepository{
		sweets: make(map[string]models.Sweet),
	}
}

// GetAll returns a snapshot of every sweet. Order is not meaningful.
func (r *MemorySweetRepository) GetAll() ([]models.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sweetList := make([]models.Sweet, 0, len(r.sweets))
	for _, s := range r.sweets {
		sweetList = append(sweetList, s)
	}
	return sweetList, nil
}

// GetByID returns a sweet by its ID.
func (r *MemorySweetRepository) GetByID(id string) (*models.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}
	return &sweet, nil
}

// Search returns the sweets matching every provided filter criterion.
// A full linear scan is fine at this scale.
func (r *MemorySweetRepository) Search(filter SearchFilter) ([]models.Sweet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]models.Sweet, 0, len(r.sweets))
	nameTerm := strings.ToLower(filter.Name)
	for _, s := range r.sweets {
		if nameTerm != "" && !strings.Contains(strings.ToLower(s.Name), nameTerm) {
			continue
		}
		if filter.Category != "" && s.Category != filter.Category {
			continue
		}
		if filter.MinPrice != nil && s.Price < *filter.MinPrice {
			continue
		}
		if filter.MaxPrice != nil && s.Price > *filter.MaxPrice {
			continue
		}
		results = append(results, s)
	}
	return results, nil
}

// Create adds a new sweet.
func (r *MemorySweetRepository) Create(sweet *models.Sweet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sweet.ID == "" {
		sweet.ID = uuid.New().String()
	}
	r.sweets[sweet.ID] = *sweet
	return nil
}

// Update applies the non-nil fields of update. ID and AdminID are preserved.
func (r *MemorySweetRepository) Update(id string, update SweetUpdate) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}

	if update.Name != nil {
		sweet.Name = *update.Name
	}
	if update.Category != nil {
		sweet.Category = *update.Category
	}
	if update.Price != nil {
		sweet.Price = *update.Price
	}
	if update.Quantity != nil {
		sweet.Quantity = *update.Quantity
	}
	if update.ImageURL != nil {
		sweet.ImageURL = *update.ImageURL
	}
	if update.Description != nil {
		sweet.Description = *update.Description
	}

	r.sweets[id] = sweet
	return &sweet, nil
}

// Delete removes a sweet by its ID.
func (r *MemorySweetRepository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sweets[id]; !ok {
		return fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}
	delete(r.sweets, id)
	return nil
}

// Purchase decrements quantity by one, refusing when no stock remains.
func (r *MemorySweetRepository) Purchase(id string) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}
	if sweet.Quantity <= 0 {
		return nil, fmt.Errorf("sweet %s: %w", sweet.Name, ErrOutOfStock)
	}

	sweet.Quantity--
	r.sweets[id] = sweet
	return &sweet, nil
}

// Restock increments quantity by amount. There is no upper bound.
func (r *MemorySweetRepository) Restock(id string, amount int) (*models.Sweet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sweet, ok := r.sweets[id]
	if !ok {
		return nil, fmt.Errorf("sweet with ID %s: %w", id, ErrNotFound)
	}

	sweet.Quantity += amount
	r.sweets[id] = sweet
	return &sweet, nil
}
