// Package retry classifies provider errors and computes backoff delays. It
// is pure and stateless: classifiers always return a boolean and never fail,
// defaulting to "not retryable" when uncertain so an unknown error stops the
// loop instead of retrying forever.
package retry

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"syscall"
)

// defaultRetryablePatterns matches transient provider failures by message:
// rate limiting, server errors, overload and quota exhaustion.
var defaultRetryablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)rate limit`),
	regexp.MustCompile(`429`),
	regexp.MustCompile(`500`),
	regexp.MustCompile(`502`),
	regexp.MustCompile(`503`),
	regexp.MustCompile(`504`),
	regexp.MustCompile(`(?i)overloaded`),
	regexp.MustCompile(`(?i)quota exceeded`),
	regexp.MustCompile(`(?i)exceeded.*quota`),
}

// defaultNonFallbackPatterns matches defects that would reproduce identically
// on any model, so falling back to the next candidate is pointless.
var defaultNonFallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)not implemented`),
	regexp.MustCompile(`(?i)unsupported`),
	regexp.MustCompile(`(?i)invalid argument`),
	regexp.MustCompile(`(?i)missing required`),
}

// Retryable reports whether err is a transient failure worth retrying:
// timeouts, refused or reset connections, rate limiting and overload, any of
// extraErrors (matched with errors.Is), or a message matching
// RetryableByMessage with extraPatterns.
func Retryable(err error, extraErrors []error, extraPatterns []string) bool {
	if err == nil {
		return false
	}

	for _, target := range extraErrors {
		if target != nil && errors.Is(err, target) {
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	return RetryableByMessage(err, extraPatterns)
}

// RetryableByMessage reports whether the error message matches the default
// transient patterns or any caller-supplied pattern. Plain strings are
// matched as case-insensitive substrings; strings that fail to compile as
// regular expressions are ignored.
func RetryableByMessage(err error, extraPatterns []string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()

	for _, pattern := range defaultRetryablePatterns {
		if pattern.MatchString(msg) {
			return true
		}
	}

	lower := strings.ToLower(msg)
	for _, raw := range extraPatterns {
		if strings.Contains(lower, strings.ToLower(raw)) {
			return true
		}
		if re, compileErr := regexp.Compile(`(?i)` + raw); compileErr == nil && re.MatchString(msg) {
			return true
		}
	}

	return false
}

// NonFallback reports whether err indicates a programming or configuration
// defect rather than a transient provider failure. Such errors must not
// trigger falling back to the next candidate model. Generic runtime, timeout
// and IO errors all return false and stay eligible for fallback.
func NonFallback(err error, extraErrors []error) bool {
	if err == nil {
		return false
	}

	for _, target := range extraErrors {
		if target != nil && errors.Is(err, target) {
			return true
		}
	}

	if errors.Is(err, errors.ErrUnsupported) {
		return true
	}

	msg := err.Error()
	for _, pattern := range defaultNonFallbackPatterns {
		if pattern.MatchString(msg) {
			return true
		}
	}

	return false
}
