package client

import "fmt"

// ErrAPI is returned when the server answers with a non-success envelope.
type ErrAPI struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *ErrAPI) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

// Is allows for error checking with errors.Is()
func (e *ErrAPI) Is(target error) bool {
	_, ok := target.(*ErrAPI)
	return ok
}
