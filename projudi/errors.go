package projudi

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common errors returned by the Projudi client.
var (
	// ErrInvalidProcessNumber indicates the process number does not
	// reduce to a CNJ unified number.
	ErrInvalidProcessNumber = errors.New("invalid process number")

	// ErrWrongCaptcha indicates the portal rejected the CAPTCHA answer.
	// Recoverable: a retry with a freshly fetched challenge may succeed.
	ErrWrongCaptcha = errors.New("portal rejected the captcha answer")

	// ErrProcessNotFound indicates the portal reported no process for
	// the given number. Terminal: no retry can change the outcome.
	ErrProcessNotFound = errors.New("process not found on the portal")
)

// SiteError represents a transport failure or an unexpected response
// from the portal: unreachable host, non-200 status, or a page missing
// the structural markers the navigation depends on.
type SiteError struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *SiteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("projudi: %s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("projudi: %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap exposes the underlying transport error.
func (e *SiteError) Unwrap() error { return e.Err }

// Timeout reports whether the failure was a deadline expiry rather
// than a connectivity or status problem.
func (e *SiteError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// IsTimeout reports whether err is a portal call that exceeded its
// deadline.
func IsTimeout(err error) bool {
	var se *SiteError
	return errors.As(err, &se) && se.Timeout()
}
