package engine

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/desertthunder/tasksync/internal/services"
)

// Kind buckets a sync failure into the retry/abort policy it deserves.
type Kind int

const (
	// KindTransient covers network-level failures: timeouts, refused
	// connections, DNS and TLS trouble. The pass aborts, the message lands
	// on the account, and nothing is reported to telemetry.
	KindTransient Kind = iota
	// KindAuth is a 401 that survived the one-shot token refresh.
	KindAuth
	// KindNotFound is a 404; deletes treat it as success.
	KindNotFound
	// KindInvalidState is a 400: the request is structurally bad and will
	// never succeed, so retrying forever is pointless.
	KindInvalidState
	// KindRateLimited covers 402, 429 and 5xx: expected operational
	// pushback, not worth telemetry.
	KindRateLimited
	// KindUnexpected is everything else and goes to telemetry.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not-found"
	case KindInvalidState:
		return "invalid-state"
	case KindRateLimited:
		return "rate-limited"
	default:
		return "unexpected"
	}
}

// Classify maps a transport or HTTP failure onto the error taxonomy.
func Classify(err error) Kind {
	var httpErr *services.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusUnauthorized:
			return KindAuth
		case httpErr.StatusCode == http.StatusNotFound:
			return KindNotFound
		case httpErr.StatusCode == http.StatusBadRequest:
			return KindInvalidState
		case httpErr.StatusCode == http.StatusPaymentRequired,
			httpErr.StatusCode == http.StatusTooManyRequests,
			httpErr.StatusCode >= 500:
			return KindRateLimited
		default:
			return KindUnexpected
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}

	return KindUnexpected
}

// Reportable reports whether the failure should reach telemetry.
// Transient, auth, and operational pushback are expected; everything else
// deserves investigation.
func Reportable(err error) bool {
	switch Classify(err) {
	case KindTransient, KindAuth, KindRateLimited:
		return false
	default:
		return true
	}
}

// Reporter receives unexpected sync failures for investigation.
type Reporter interface {
	ReportError(err error)
}

// NoopReporter discards reports.
type NoopReporter struct{}

func (NoopReporter) ReportError(error) {}
