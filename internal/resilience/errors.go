package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// FailureKind labels a soft failure for log aggregation. The pipeline never
// acts on the label; it only makes failure logs greppable.
type FailureKind string

const (
	FailureTimeout FailureKind = "timeout"
	FailureConnect FailureKind = "connect"
	FailureDNS     FailureKind = "dns"
	FailureHTTP    FailureKind = "http_status"
	FailureOther   FailureKind = "other"
)

// Classify maps an outbound-call error to a FailureKind.
func Classify(err error) FailureKind {
	if err == nil {
		return FailureOther
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return FailureConnect
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such host"),
		strings.Contains(msg, "temporary failure in name resolution"):
		return FailureDNS
	case strings.Contains(msg, "i/o timeout"),
		strings.Contains(msg, "tls handshake timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return FailureTimeout
	case strings.Contains(msg, "connection reset by peer"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "broken pipe"):
		return FailureConnect
	case strings.Contains(msg, "status "):
		return FailureHTTP
	}

	return FailureOther
}
