package harvest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Class is the retry classification of a failure.
type Class int

const (
	// Retryable failures may be attempted again with backoff.
	Retryable Class = iota
	// Fatal failures stop the item immediately.
	Fatal
)

// Classifier maps a fetch error to its retry class.
type Classifier func(err error) Class

// RateLimitedError signals an explicit throttling response from the remote
// service (HTTP 429). Always retryable, and additionally widens the rate
// limiter for the rest of the run.
type RateLimitedError struct {
	URL string
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited by remote: %s", e.URL)
}

// HTTPStatusError is a non-2xx response that is not a throttle signal.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// MalformedResponseError marks a payload the pipeline cannot use. Retrying
// will not help without a code change, so it classifies as fatal.
type MalformedResponseError struct {
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

// IsRateLimited reports whether err carries an explicit throttle signal.
func IsRateLimited(err error) bool {
	var rl *RateLimitedError
	return errors.As(err, &rl)
}

// Classify is the default Classifier: throttle signals and transient network
// errors are retryable, server-side statuses are retryable, client-side
// statuses and malformed payloads are fatal. Unknown errors are treated as
// transient, matching how the pipeline handles connection resets.
func Classify(err error) Class {
	if err == nil {
		return Retryable
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}
	if IsRateLimited(err) {
		return Retryable
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= http.StatusInternalServerError {
			return Retryable
		}
		return Fatal
	}
	var malformed *MalformedResponseError
	if errors.As(err, &malformed) {
		return Fatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable
	}
	return Retryable
}
