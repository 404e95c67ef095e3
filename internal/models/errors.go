package models

import (
	"errors"
	"fmt"
	"net/http"
)

// ConfigurationError is raised at startup before any issue is processed
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UnmappedValueError is raised when a source value has no entry in the mapping
type UnmappedValueError struct {
	Section string
	Key     string
}

func (e *UnmappedValueError) Error() string {
	return fmt.Sprintf("failed to find key '%s' in section '%s'", e.Key, e.Section)
}

// TransientAPIError is a network, rate-limit or server-side failure
type TransientAPIError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *TransientAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: transient failure (status %d): %v", e.Service, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: transient failure: %v", e.Service, e.Op, e.Err)
}

func (e *TransientAPIError) Unwrap() error {
	return e.Err
}

// APIError is a non-transient, non-2xx response from one of the services
type APIError struct {
	Service    string
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Service, e.Op, e.StatusCode, e.Body)
}

// StatusTransitionError means neither the direct nor the two-hop transition succeeded
type StatusTransitionError struct {
	Key          string
	From         string
	To           string
	Intermediate string
	Err          error
}

func (e *StatusTransitionError) Error() string {
	msg := fmt.Sprintf("cannot move issue %s from '%s' to '%s' (via '%s')", e.Key, e.From, e.To, e.Intermediate)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StatusTransitionError) Unwrap() error {
	return e.Err
}

// KeyAllocationError means the destination assigned a key past the wanted one
type KeyAllocationError struct {
	Wanted string
	Got    string
}

func (e *KeyAllocationError) Error() string {
	return fmt.Sprintf("destination allocated key %s while creating %s; issue numbers can no longer be preserved", e.Got, e.Wanted)
}

// IssueFailure reports the issue number a halted run must resume from
type IssueFailure struct {
	Number int
	Key    string
	State  string
	Err    error
}

func (e *IssueFailure) Error() string {
	return fmt.Sprintf("issue %s failed while %s (resume from %d): %v", e.Key, e.State, e.Number, e.Err)
}

func (e *IssueFailure) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status carried by an API error, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	var transient *TransientAPIError
	if errors.As(err, &transient) {
		return transient.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from either service
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsConflict reports whether err means the entity already exists
func IsConflict(err error) bool {
	code := StatusCode(err)
	return code == http.StatusConflict || code == http.StatusUnprocessableEntity
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	var transient *TransientAPIError
	return errors.As(err, &transient)
}
