package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError reports one or more invalid fields of an entity or a request.
// Err is used for errors that do not belong to a given field.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) *ValidationError {
	return &ValidationError{Err: err, Fields: flds}
}

// NewFieldError is a shortcut for a ValidationError holding a single field error.
func NewFieldError(field, msg string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Error: msg}}}
}

func (err *ValidationError) Add(field, msg string) {
	err.Fields = append(err.Fields, FieldError{Field: field, Error: msg})
}

// Merge appends the field errors of other to err.
func (err *ValidationError) Merge(other *ValidationError) {
	if other == nil {
		return
	}
	if err.Err == nil {
		err.Err = other.Err
	}
	err.Fields = append(err.Fields, other.Fields...)
}

func (err *ValidationError) HasErrors() bool {
	return err.Err != nil || len(err.Fields) > 0
}

// OrNil returns nil when err holds no errors so it can be returned as a plain `error`.
func (err *ValidationError) OrNil() error {
	if err == nil || !err.HasErrors() {
		return nil
	}
	return err
}

// FieldMessages groups the field errors by field, keeping the reporting order of the messages.
func (err *ValidationError) FieldMessages() map[string][]string {
	msgs := make(map[string][]string, len(err.Fields))
	for _, fe := range err.Fields {
		msgs[fe.Field] = append(msgs[fe.Field], fe.Error)
	}
	return msgs
}

func (err *ValidationError) Error() string {
	if err.Err != nil {
		return err.Err.Error()
	}
	parts := make([]string, 0, len(err.Fields))
	for _, fe := range err.Fields {
		parts = append(parts, fe.Field+": "+fe.Error)
	}
	return strings.Join(parts, "; ")
}

// NotFoundError is returned when no record matches a lookup.
type NotFoundError struct {
	Kind string
}

func NewNotFoundError(kind string) *NotFoundError {
	return &NotFoundError{Kind: kind}
}

func (err *NotFoundError) Error() string {
	return strings.ToLower(err.Kind) + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// InvalidIdentifierError is returned when an identifier is not a well-formed UUID.
type InvalidIdentifierError struct {
	Value string
}

func (err *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("%q is not a valid UUID", err.Value)
}

// PartialMatchError is returned when a strict lookup over several identifiers could not resolve all of them.
type PartialMatchError struct {
	Missing []string
}

func NewPartialMatchError(missing []string) *PartialMatchError {
	sorted := append([]string(nil), missing...)
	sort.Strings(sorted)
	return &PartialMatchError{Missing: sorted}
}

func (err *PartialMatchError) Error() string {
	return "not found: " + strings.Join(err.Missing, ", ")
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
