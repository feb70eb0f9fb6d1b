package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Belphemur/ShowTracker/internal/apperrors"
)

// Request body field names
const (
	FieldName         = "name"
	FieldEpisodesSeen = "episodes_seen"
)

// Validation messages returned to API clients
const (
	MsgNameMissing         = "The show name is missing. Add a value for 'name' in the request body."
	MsgNameEmpty           = "The show name cannot be empty."
	MsgNameNotString       = "The show name must be a string."
	MsgEpisodesSeenMissing = "The episodes seen is missing. Add a value for 'episodes_seen' in the request body."
	MsgEpisodesSeenEmpty   = "The episodes seen cannot be empty."
	MsgEpisodesSeenNotInt  = "The episodes seen must be an integer."
)

// ErrBodyNotObject is returned when a request body is present but is not a JSON object.
var ErrBodyNotObject = errors.New("request body must be a JSON object")

// FieldState describes how a field appeared in a request body
type FieldState int

const (
	FieldMissing FieldState = iota // key absent
	FieldEmpty                     // null or ""
	FieldInvalid                   // present with a value of the wrong shape
	FieldSet
)

// String returns the string representation of the field state
func (s FieldState) String() string {
	switch s {
	case FieldEmpty:
		return "empty"
	case FieldInvalid:
		return "invalid"
	case FieldSet:
		return "set"
	default:
		return "missing"
	}
}

// ShowInput is the decoded body of a create or update request.
// Values are only meaningful when the matching state is FieldSet.
type ShowInput struct {
	Name              string
	NameState         FieldState
	EpisodesSeen      int
	EpisodesSeenState FieldState
}

// DecodeShowInput parses a request body. An empty body or a JSON null decodes to an input
// with every field missing. Only a body that is not a JSON object is an error; per-field
// problems are recorded in the field states and reported by the Validate methods.
func DecodeShowInput(body []byte) (ShowInput, error) {
	var input ShowInput
	if len(bytes.TrimSpace(body)) == 0 {
		return input, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return input, fmt.Errorf("%w: %v", ErrBodyNotObject, err)
	}

	if raw, ok := fields[FieldName]; ok {
		input.Name, input.NameState = decodeName(raw)
	}
	if raw, ok := fields[FieldEpisodesSeen]; ok {
		input.EpisodesSeen, input.EpisodesSeenState = decodeEpisodesSeen(raw)
	}
	return input, nil
}

// ValidateForCreate requires both fields to be set. The name is checked first.
func (in ShowInput) ValidateForCreate() error {
	switch in.NameState {
	case FieldMissing:
		return apperrors.NewValidationError(FieldName, MsgNameMissing)
	case FieldEmpty:
		return apperrors.NewValidationError(FieldName, MsgNameEmpty)
	case FieldInvalid:
		return apperrors.NewValidationError(FieldName, MsgNameNotString)
	}

	switch in.EpisodesSeenState {
	case FieldMissing:
		return apperrors.NewValidationError(FieldEpisodesSeen, MsgEpisodesSeenMissing)
	case FieldEmpty:
		return apperrors.NewValidationError(FieldEpisodesSeen, MsgEpisodesSeenEmpty)
	case FieldInvalid:
		return apperrors.NewValidationError(FieldEpisodesSeen, MsgEpisodesSeenNotInt)
	}
	return nil
}

// ValidateForUpdate only rejects values of the wrong shape; missing and empty fields keep
// the stored value.
func (in ShowInput) ValidateForUpdate() error {
	if in.NameState == FieldInvalid {
		return apperrors.NewValidationError(FieldName, MsgNameNotString)
	}
	if in.EpisodesSeenState == FieldInvalid {
		return apperrors.NewValidationError(FieldEpisodesSeen, MsgEpisodesSeenNotInt)
	}
	return nil
}

// Apply returns current with every set field of the input copied over it.
func (in ShowInput) Apply(current Show) Show {
	if in.NameState == FieldSet {
		current.Name = in.Name
	}
	if in.EpisodesSeenState == FieldSet {
		current.EpisodesSeen = in.EpisodesSeen
	}
	return current
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}

func decodeName(raw json.RawMessage) (string, FieldState) {
	if isNull(raw) {
		return "", FieldEmpty
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", FieldInvalid
	}
	if name == "" {
		return "", FieldEmpty
	}
	return name, FieldSet
}

// decodeEpisodesSeen accepts a JSON integer or a string holding a base-10 integer.
func decodeEpisodesSeen(raw json.RawMessage) (int, FieldState) {
	if isNull(raw) {
		return 0, FieldEmpty
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return 0, FieldInvalid
		}
		if s == "" {
			return 0, FieldEmpty
		}
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return 0, FieldInvalid
		}
		return n, FieldSet
	}

	n, err := strconv.Atoi(string(trimmed))
	if err != nil {
		return 0, FieldInvalid
	}
	return n, FieldSet
}
