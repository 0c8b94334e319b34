package interfaces

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure surfaced by a provisioning collaborator matches
// exactly one of these through errors.Is.
var (
	// ErrConfig marks missing, unreadable or malformed base configuration.
	ErrConfig = errors.New("config error")

	// ErrNetwork marks a failed remote fetch (template, genesis material).
	ErrNetwork = errors.New("network error")

	// ErrValidation marks a required field missing or malformed in a document.
	ErrValidation = errors.New("validation error")

	// ErrFileSystem marks an unwritable target or unreadable source file.
	ErrFileSystem = errors.New("filesystem error")

	// ErrSigning marks underivable transaction parameters or a failed signature.
	ErrSigning = errors.New("signing error")
)

// Error is a classified failure naming the resource (path, URL, field) involved.
type Error struct {
	Kind     error
	Resource string
	Err      error
}

// NewError classifies err under kind for the given resource.
func NewError(kind error, resource string, err error) *Error {
	return &Error{Kind: kind, Resource: resource, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Resource)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Resource, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StageError attributes a failure to a pipeline stage.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Resource returns the offending resource recorded by the underlying
// classified error, or "" if there is none.
func (e *StageError) Resource() string {
	var classified *Error
	if errors.As(e.Err, &classified) {
		return classified.Resource
	}
	return ""
}
