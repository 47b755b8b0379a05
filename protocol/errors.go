package protocol

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError means credentials or settings are missing. Fatal before any network activity.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return e.Msg }

func NewConfigError(format string, args ...interface{}) error {
	return errors.WithStack(&ConfigError{Msg: fmt.Sprintf(format, args...)})
}

// ValidationError covers malformed input and insufficient balance.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func NewValidationError(format string, args ...interface{}) error {
	return errors.WithStack(&ValidationError{Msg: fmt.Sprintf(format, args...)})
}

// NetworkError is a transport failure: DNS, refused connection, timeout.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// RemoteError is a non-success HTTP status reported by the network.
type RemoteError struct {
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("remote returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("remote returned status %d: %s", e.StatusCode, e.Body)
}

// AmbiguousResponseError is a submission reply that is neither a JSON object
// nor a plain "ok <hash>" acknowledgement.
type AmbiguousResponseError struct {
	Body string
}

func (e *AmbiguousResponseError) Error() string {
	return fmt.Sprintf("unrecognized response: %q", e.Body)
}

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// StatusCode returns the HTTP status carried by a RemoteError anywhere in err's chain, or 0.
func StatusCode(err error) int {
	var target *RemoteError
	if errors.As(err, &target) {
		return target.StatusCode
	}
	return 0
}
