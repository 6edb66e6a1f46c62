package fetch

import (
	"errors"
	"fmt"
)

// ErrExhausted is returned when every tier has given up on a URL.
var ErrExhausted = errors.New("all fetch tiers exhausted")

// TransientError is a failure worth retrying: timeouts, connection
// resets, 5xx responses, browser crashes.
type TransientError struct {
	URL        string
	Tier       Tier
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch %s: status %d", e.Tier, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch %s: %v", e.Tier, e.URL, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError is a failure that retrying cannot fix: 4xx responses,
// unsupported content types, malformed URLs.
type PermanentError struct {
	URL        string
	Tier       Tier
	StatusCode int
	Reason     string
	Err        error
}

func (e *PermanentError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s fetch %s: status %d", e.Tier, e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s fetch %s: %s: %v", e.Tier, e.URL, e.Reason, e.Err)
	default:
		return fmt.Sprintf("%s fetch %s: %s", e.Tier, e.URL, e.Reason)
	}
}

func (e *PermanentError) Unwrap() error { return e.Err }

// IsPermanent reports whether err carries a PermanentError.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsTransient reports whether err is worth another attempt. Errors of
// unknown type count as transient.
func IsTransient(err error) bool {
	return err != nil && !IsPermanent(err)
}
