package search

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingAPIKey is returned when a required API key is not provided.
	ErrMissingAPIKey = errors.New("API key is required")

	// ErrMissingSearchID is returned when a required search engine ID is not provided.
	ErrMissingSearchID = errors.New("search engine ID is required")
)

// FailureKind classifies a backend failure.
type FailureKind string

const (
	// FailureTransient marks network errors, timeouts and upstream
	// hiccups. Retryable by the caller.
	FailureTransient FailureKind = "transient"

	// FailureConfiguration marks a missing or rejected credential.
	// Permanent for this run.
	FailureConfiguration FailureKind = "configuration"
)

// BackendError is the failure type every backend returns. "No results" is
// not represented here: a backend that finds nothing returns an empty batch.
type BackendError struct {
	Backend string
	Kind    FailureKind
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Backend, e.Kind, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable backend failure.
func Transient(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Kind: FailureTransient, Err: err}
}

// ConfigFailure wraps err as a permanent configuration failure.
func ConfigFailure(backend string, err error) *BackendError {
	return &BackendError{Backend: backend, Kind: FailureConfiguration, Err: err}
}

// UnknownBackendError is returned when a requested backend name is not in
// the registry.
type UnknownBackendError struct {
	Name string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("unknown search backend %q", e.Name)
}

// AllFailedError is the terminal failure of a search run: every enabled
// backend failed. It is materially different from an empty-but-successful
// result and callers must handle it explicitly.
type AllFailedError struct {
	Query    string
	Statuses []BackendStatus
}

func (e *AllFailedError) Error() string {
	reasons := make([]string, 0, len(e.Statuses))
	for _, s := range e.Statuses {
		reasons = append(reasons, fmt.Sprintf("%s: %s", s.Backend, s.Err))
	}
	return fmt.Sprintf("all search backends failed for query %q (%s)", e.Query, strings.Join(reasons, "; "))
}
