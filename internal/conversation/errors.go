package conversation

import (
	"errors"
	"fmt"

	"github.com/xelth-com/orderbot/internal/delivery"
)

// Kind classifies a failed interaction
type Kind int

const (
	KindNone Kind = iota
	// InputRejected: pre-flight validation failed, nothing was sent upstream
	InputRejected
	// TransportFailure: network error, timeout or non-2xx from a collaborator
	TransportFailure
	// UpstreamLogicFailure: the collaborator answered but its payload encodes an error
	UpstreamLogicFailure
	// EmptyResult: the call succeeded but produced nothing usable
	EmptyResult
)

func (k Kind) String() string {
	switch k {
	case InputRejected:
		return "input_rejected"
	case TransportFailure:
		return "transport_failure"
	case UpstreamLogicFailure:
		return "upstream_logic_failure"
	case EmptyResult:
		return "empty_result"
	default:
		return "ok"
	}
}

// Error is a classified lookup failure
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, KindNone for nil and
// TransportFailure for anything unclassified.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return TransportFailure
}

func trackingKind(res delivery.TrackingResult) Kind {
	if res.OK {
		return KindNone
	}
	if res.Reason == delivery.FailureUpstream {
		return UpstreamLogicFailure
	}
	return TransportFailure
}
