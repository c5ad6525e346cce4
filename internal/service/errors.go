package service

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrForbidden covers every authorization predicate denial. It carries
	// no detail on purpose: an unauthorized caller must not learn anything
	// about the submission's state from the error.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrStorageFailure     = errors.New("object storage operation failed")
)

// ValidationError aggregates per-field messages for a malformed request.
// Nothing is persisted when one is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)

	msgs := make([]string, 0, len(keys))
	for _, field := range keys {
		msgs = append(msgs, field+": "+e.Fields[field])
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
