package domainintel

import (
	"context"
	"errors"
	"net"
	"strings"

	parser "github.com/likexian/whois-parser"
)

var (
	// ErrNotFound means the registry answered that the domain is not registered.
	ErrNotFound = errors.New("registry: domain not found")
	// ErrRateLimited means the registry (or our own pacing) refused the query.
	ErrRateLimited = errors.New("registry: rate limited")
	// ErrNoRegistrationData means the response parsed but carried no domain section.
	ErrNoRegistrationData = errors.New("registry: no registration data")
)

var rateLimitMarkers = []string{
	"rate limit",
	"too many requests",
	"quota exceeded",
	"query limit",
	"limit exceeded",
	"exceeded the maximum",
}

var timeoutMarkers = []string{
	"i/o timeout",
	"deadline exceeded",
	"timed out",
}

// Classify maps a registry error onto the lookup state machine.
func Classify(err error) Status {
	switch {
	case err == nil:
		return StatusResolved
	case isTimeout(err):
		return StatusTimedOut
	case errors.Is(err, ErrNotFound), errors.Is(err, parser.ErrNotFoundDomain):
		return StatusNotFound
	case errors.Is(err, ErrRateLimited), errors.Is(err, parser.ErrDomainLimitExceed), hasMarker(err, rateLimitMarkers):
		return StatusRateLimited
	default:
		return StatusTransientError
	}
}

// retryable reports whether another attempt could change the outcome.
func retryable(s Status) bool {
	switch s {
	case StatusTimedOut, StatusRateLimited, StatusTransientError:
		return true
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return hasMarker(err, timeoutMarkers)
}

func hasMarker(err error, markers []string) bool {
	msg := strings.ToLower(err.Error())
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
