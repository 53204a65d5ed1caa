package repositories

import "sweetshop/internal/models"

// UserRepository defines the interface for user data access.
type UserRepository interface {
	// Create stores a new user, assigning an ID if one is not set.
	// Returns ErrDuplicateEmail if the email is already taken
	// (case-insensitive).
	Create(user *models.User) error
	// GetByEmail looks a user up by email, case-insensitively.
	GetByEmail(email string) (*models.User, error)
	GetByID(id string) (*models.User, error)
}
