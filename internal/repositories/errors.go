package repositories

import "errors"

var (
	// ErrNotFound is returned when no record matches the requested id or key.
	ErrNotFound = errors.New("record not found")
	// ErrInsufficientQuantity is returned when a conditional decrement would
	// take a product's quantity below zero.
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrDuplicate is returned when a unique key (user email) already exists.
	ErrDuplicate = errors.New("duplicate record")
)
