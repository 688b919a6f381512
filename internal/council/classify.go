package council

import "strings"

type FailureType string

const (
	FailureTimeout     FailureType = "timeout"
	FailureUnreachable FailureType = "unreachable"
	FailureServer      FailureType = "server_error"
	FailureUnknown     FailureType = "unknown"
)

// Classify buckets a failure message by the words in it.
func Classify(message string) FailureType {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "timeout"):
		return FailureTimeout
	case strings.Contains(lower, "unreachable"),
		strings.Contains(lower, "failed to fetch"),
		strings.Contains(lower, "connection refused"):
		return FailureUnreachable
	case strings.Contains(lower, "500"), strings.Contains(lower, "server"):
		return FailureServer
	default:
		return FailureUnknown
	}
}

// Reason is the remediation hint shown with a failure.
func (f FailureType) Reason() string {
	switch f {
	case FailureTimeout:
		return "The council member did not respond before the request deadline."
	case FailureUnreachable:
		return "The council member service is currently unreachable from this client."
	case FailureServer:
		return "The council member service returned an internal error."
	default:
		return "The request failed unexpectedly. Check system status for runtime health."
	}
}

// CallFailure describes the last failed chat call.
type CallFailure struct {
	Member  string
	Message string
	Type    FailureType
	Reason  string
}

func newCallFailure(member, message string) *CallFailure {
	typ := Classify(message)
	return &CallFailure{Member: member, Message: message, Type: typ, Reason: typ.Reason()}
}
