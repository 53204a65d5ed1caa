package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"sweetshop/internal/models"
	"sweetshop/internal/repositories"
	"sweetshop/pkg/rabbitmq"
)

// ErrInvalidAmount is returned when a restock amount is not positive; the
// store is never reached in that case.
var ErrInvalidAmount = errors.New("restock amount must be a positive integer")

// EventPublisher publishes inventory events. Satisfied by *rabbitmq.Client.
type EventPublisher interface {
	Publish(routingKey string, body []byte) error
}

// SweetService handles business logic for the sweet inventory.
type SweetService struct {
	repo      repositories.SweetRepository
	publisher EventPublisher
}

// NewSweetService creates a new SweetService. publisher may be nil, in which
// case inventory events are not emitted.
func NewSweetService(repo repositories.SweetRepository, publisher EventPublisher) *SweetService {
	return &SweetService{
		repo:      repo,
		publisher: publisher,
	}
}

// GetAllSweets retrieves all sweets.
func (s *SweetService) GetAllSweets() ([]models.Sweet, error) {
	return s.repo.GetAll()
}

// GetSweetByID retrieves a single sweet by its ID.
func (s *SweetService) GetSweetByID(id string) (*models.Sweet, error) {
	return s.repo.GetByID(id)
}

// SearchSweets retrieves the sweets matching the filter.
func (s *SweetService) SearchSweets(filter repositories.SearchFilter) ([]models.Sweet, error) {
	return s.repo.Search(filter)
}

// CreateSweet stores a new sweet owned by the creating admin.
func (s *SweetService) CreateSweet(sweet *models.Sweet, adminID string) error {
	sweet.AdminID = adminID
	if err := s.repo.Create(sweet); err != nil {
		return err
	}
	s.publishEvent(rabbitmq.SweetCreated, sweet)
	return nil
}

// UpdateSweet applies a partial update to an existing sweet.
func (s *SweetService) UpdateSweet(id string, update repositories.SweetUpdate) (*models.Sweet, error) {
	return s.repo.Update(id, update)
}

// DeleteSweet removes a sweet by its ID.
func (s *SweetService) DeleteSweet(id string) error {
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.publishEvent(rabbitmq.SweetDeleted, &models.Sweet{ID: id})
	return nil
}

// PurchaseSweet decrements the sweet's quantity by one.
func (s *SweetService) PurchaseSweet(id string) (*models.Sweet, error) {
	sweet, err := s.repo.Purchase(id)
	if err != nil {
		return nil, err
	}
	s.publishEvent(rabbitmq.SweetPurchased, sweet)
	return sweet, nil
}

// RestockSweet increments the sweet's quantity. The amount must be positive.
func (s *SweetService) RestockSweet(id string, amount int) (*models.Sweet, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("restock sweet %s with amount %d: %w", id, amount, ErrInvalidAmount)
	}

	sweet, err := s.repo.Restock(id, amount)
	if err != nil {
		return nil, err
	}
	s.publishEvent(rabbitmq.SweetRestocked, sweet)
	return sweet, nil
}

// publishEvent emits an inventory event. Delivery is best-effort: a publish
// failure is logged and never fails the request.
func (s *SweetService) publishEvent(routingKey string, sweet *models.Sweet) {
	if s.publisher == nil {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"sweetId":  sweet.ID,
		"name":     sweet.Name,
		"quantity": sweet.Quantity,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for sweet %s: %v", routingKey, sweet.ID, err)
		return
	}

	if err := s.publisher.Publish(routingKey, body); err != nil {
		log.Printf("Warning: failed to publish %s event for sweet %s: %v", routingKey, sweet.ID, err)
	}
}
