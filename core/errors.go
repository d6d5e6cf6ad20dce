package core

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrNotConfirmed is returned when a destructive action was not explicitly confirmed by the user.
var ErrNotConfirmed = errors.New("action not confirmed")

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is a client-side check that failed before any network call.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	return err.Message()
}

// Message renders the field errors as a single line: "field: error; other: error".
func (err ValidationError) Message() string {
	if len(err.Fields) == 0 {
		if err.Err == nil {
			return ""
		}
		return err.Err.Error()
	}
	msgs := make([]string, 0, len(err.Fields))
	for _, fe := range err.Fields {
		msgs = append(msgs, fe.Field+": "+fe.Error)
	}
	return strings.Join(msgs, "; ")
}

// MalformedRecordError reports one list entry that could not be decoded.
type MalformedRecordError struct {
	Resource string
	Index    int
	Field    string
	Err      error
}

func (err *MalformedRecordError) Error() string {
	msg := fmt.Sprintf("%s: malformed record #%d", err.Resource, err.Index)
	if err.Field != "" {
		msg += " (" + err.Field + ")"
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *MalformedRecordError) Unwrap() error { return err.Err }

// NewMalformedField builds the MalformedRecordError for a missing or invalid field.
// Resource and Index are filled in by the list decoder.
func NewMalformedField(field string, err error) error {
	if err == nil {
		err = errors.New("field is required")
	}
	return &MalformedRecordError{Field: field, Err: err}
}

type MutationKind string

const (
	MutationCreate MutationKind = "create"
	MutationUpdate MutationKind = "update"
	MutationDelete MutationKind = "delete"
)

// MutationFailedError is a create/update/delete the backend rejected or never answered.
type MutationFailedError struct {
	Resource string
	Kind     MutationKind
	ID       int // 0 for create
	Cause    error
}

func (err *MutationFailedError) Error() string {
	if err.ID != 0 {
		return fmt.Sprintf("%s: %s #%d failed: %v", err.Resource, err.Kind, err.ID, err.Cause)
	}
	return fmt.Sprintf("%s: %s failed: %v", err.Resource, err.Kind, err.Cause)
}

func (err *MutationFailedError) Unwrap() error { return err.Cause }

func (err *MutationFailedError) Message() string { return Message(err.Cause) }

// LoadFailedError is a list fetch that failed; the collection is left empty.
type LoadFailedError struct {
	Resource string
	Cause    error
}

func (err *LoadFailedError) Error() string {
	return fmt.Sprintf("%s: load failed: %v", err.Resource, err.Cause)
}

func (err *LoadFailedError) Unwrap() error { return err.Cause }

func (err *LoadFailedError) Message() string { return Message(err.Cause) }

type messager interface {
	Message() string
}

// Message returns the most human-readable text available in err's chain.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var m messager
	if errors.As(err, &m) {
		if msg := m.Message(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
