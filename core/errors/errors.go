// Package errors provides the error taxonomy for corpus loading and lookups.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors matched with Is.
var (
	// ErrNotFound indicates an unknown document name.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates a malformed query or an unparsable file.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMissingCorpus indicates the corpus directory is absent, not a
	// directory, or holds no XML files.
	ErrMissingCorpus = errors.New("missing corpus")
	// ErrAllFilesInvalid indicates every discovered file failed to parse.
	ErrAllFilesInvalid = errors.New("all files invalid")
)

// NotFoundError reports a lookup that matched nothing.
type NotFoundError struct {
	Resource string // "document"
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// ValidationError reports rejected user input, such as a query string.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidInput
}

// IOError is a filesystem failure other than a missing corpus.
type IOError struct {
	Operation string // "stat", "read directory"
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// ParseError is a file excluded from a load. Path carries the file name as
// reported to the user and Message the parser's explanation.
type ParseError struct {
	Format  string
	Path    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to parse %s at %s: %s", e.Format, e.Path, e.Message)
	}
	return fmt.Sprintf("failed to parse %s: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidInput, e.Err}
	}
	return []error{ErrInvalidInput}
}

// Reasons reported by MissingCorpusError.
const (
	ReasonNotExist   = "does not exist"
	ReasonNotDir     = "is not a directory"
	ReasonNoXMLFiles = "contains no XML files"
)

// MissingCorpusError is the terminal condition for a corpus directory that
// cannot supply any files.
type MissingCorpusError struct {
	Dir    string
	Reason string
	Err    error
}

func (e *MissingCorpusError) Error() string {
	return fmt.Sprintf("corpus %s %s", e.Dir, e.Reason)
}

func (e *MissingCorpusError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMissingCorpus, e.Err}
	}
	return []error{ErrMissingCorpus}
}

// AllFilesInvalidError is the terminal condition for a corpus in which no
// discovered file parsed.
type AllFilesInvalidError struct {
	Dir      string
	Failures []*ParseError
}

func (e *AllFilesInvalidError) Error() string {
	return fmt.Sprintf("no valid XML files in %s: all %d failed to parse", e.Dir, len(e.Failures))
}

func (e *AllFilesInvalidError) Unwrap() error {
	return ErrAllFilesInvalid
}

// NewNotFound returns a NotFoundError for resource id.
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// NewValidation returns a ValidationError for value of field.
func NewValidation(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

func NewIO(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// NewParse returns a ParseError whose message is taken from err.
func NewParse(format, path string, err error) *ParseError {
	return &ParseError{Format: format, Path: path, Message: err.Error(), Err: err}
}

func NewMissingCorpus(dir, reason string) *MissingCorpusError {
	return &MissingCorpusError{Dir: dir, Reason: reason}
}

// Is and As save callers a second errors import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target any) bool {
	return errors.As(err, target)
}
