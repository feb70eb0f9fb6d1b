package apperrors

import "fmt"

// ErrNotFound represents an error when a requested resource is not found.
type ErrNotFound struct {
	Resource string
	ID       interface{}
}

// Error implements the error interface.
func (e *ErrNotFound) Error() string {
	if e.ID != nil {
		return fmt.Sprintf("%s with ID %v not found", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is allows for error checking with errors.Is().
func (e *ErrNotFound) Is(target error) bool {
	_, ok := target.(*ErrNotFound)
	return ok
}

// NewNotFoundError creates a new ErrNotFound.
func NewNotFoundError(resource string, id interface{}) *ErrNotFound {
	return &ErrNotFound{
		Resource: resource,
		ID:       id,
	}
}

// NewShowNotFoundError creates a specific error for when a show is not found.
func NewShowNotFoundError(showID int) *ErrNotFound {
	return &ErrNotFound{
		Resource: "show",
		ID:       showID,
	}
}

// ErrValidation is returned when a request body field is missing, empty or of the wrong shape.
// Message is meant to be shown to API clients as-is.
type ErrValidation struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Message)
}

// Is allows for error checking with errors.Is().
func (e *ErrValidation) Is(target error) bool {
	_, ok := target.(*ErrValidation)
	return ok
}

// NewValidationError creates a new ErrValidation.
func NewValidationError(field, message string) *ErrValidation {
	return &ErrValidation{
		Field:   field,
		Message: message,
	}
}

// ErrMalformedInput is returned when a path or query parameter cannot be parsed.
type ErrMalformedInput struct {
	Param string
	Value string
}

// Error implements the error interface.
func (e *ErrMalformedInput) Error() string {
	return fmt.Sprintf("malformed value %q for parameter %s", e.Value, e.Param)
}

// Is allows for error checking with errors.Is().
func (e *ErrMalformedInput) Is(target error) bool {
	_, ok := target.(*ErrMalformedInput)
	return ok
}
