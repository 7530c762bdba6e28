package lib

import "errors"

var (
	// ErrNotFound is returned when a task or image does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when the input is rejected before calling the service.
	ErrNotValid = errors.New("not valid")
)
