package repositories

import "errors"

// Sentinel errors shared by every repository implementation. Callers match
// them with errors.Is rather than inspecting messages.
var (
	ErrNotFound       = errors.New("record not found")
	ErrOutOfStock     = errors.New("sweet is out of stock")
	ErrDuplicateEmail = errors.New("email already registered")
)
