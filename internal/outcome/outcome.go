// Package outcome defines the failure taxonomy of a single execute call and
// maps node responses onto it.
package outcome

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind tags a failure.
type Kind string

// Failure kinds. They are mutually exclusive.
const (
	KindRedirect          Kind = "redirect"
	KindNodesUnreachable  Kind = "nodes_unreachable"
	KindLostLeadership    Kind = "lost_leadership"
	KindClosing           Kind = "closing"
	KindTimeoutExternal   Kind = "timeout_external"
	KindTimeoutInternal   Kind = "timeout_internal"
	KindTooManyRequests   Kind = "too_many_requests"
	KindCompileError      Kind = "compile_error"
	KindProtocolViolation Kind = "protocol_violation"
	KindTransport         Kind = "transport"
)

// Safety tells whether a failed request may have been applied.
type Safety int

const (
	// SafetyNotApplied means the request provably had no effect.
	SafetyNotApplied Safety = iota
	// SafetyPossiblyApplied means the request may have taken effect.
	SafetyPossiblyApplied
	// SafetyPermanent means the request was not applied and resending it unchanged cannot succeed.
	SafetyPermanent
	// SafetyUnknown covers faults outside the protocol, such as a dropped connection.
	SafetyUnknown
)

func (s Safety) String() string {
	switch s {
	case SafetyNotApplied:
		return "not_applied"
	case SafetyPossiblyApplied:
		return "possibly_applied"
	case SafetyPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// ErrPossiblyApplied matches every failure after which the request may have taken effect.
var ErrPossiblyApplied = errors.New("request possibly applied")

// Failure is implemented by every error the executor returns.
type Failure interface {
	error
	// Kind returns the failure tag.
	Kind() Kind
	// Safety reports whether the request may have been applied.
	Safety() Safety
}

// NodeHint is an optional node id.
type NodeHint struct {
	id  uint64
	set bool
}

// SomeNode returns a hint naming id.
func SomeNode(id uint64) NodeHint {
	return NodeHint{id: id, set: true}
}

// NoNode returns an empty hint.
func NoNode() NodeHint {
	return NodeHint{}
}

// HintFrom converts a wire optional id.
func HintFrom(id *uint64) NodeHint {
	if id == nil {
		return NoNode()
	}
	return SomeNode(*id)
}

// Get returns the hinted node and whether one is present.
func (h NodeHint) Get() (uint64, bool) {
	return h.id, h.set
}

// Known reports whether a node is hinted.
func (h NodeHint) Known() bool {
	return h.set
}

func (h NodeHint) String() string {
	if !h.set {
		return "unknown"
	}
	return strconv.FormatUint(h.id, 10)
}

// RedirectError means the contacted node is not authoritative. The request was not applied.
type RedirectError struct {
	To NodeHint
}

func (e *RedirectError) Error() string  { return "redirect to node " + e.To.String() }
func (e *RedirectError) Kind() Kind     { return KindRedirect }
func (e *RedirectError) Safety() Safety { return SafetyNotApplied }

// NodesUnreachableError means the node could not reach enough peers. The request was not applied.
type NodesUnreachableError struct{}

func (e *NodesUnreachableError) Error() string  { return "nodes unreachable" }
func (e *NodesUnreachableError) Kind() Kind     { return KindNodesUnreachable }
func (e *NodesUnreachableError) Safety() Safety { return SafetyNotApplied }

// LostLeadershipError means the node lost authority mid-request.
//
// CouldHandle is only meaningful when the request id reached the cluster at
// most once. When false the request was never applied; when true it may have
// been.
type LostLeadershipError struct {
	To          NodeHint
	CouldHandle bool
}

func (e *LostLeadershipError) Error() string {
	return fmt.Sprintf("lost leadership, leader: %s, could handle: %t", e.To, e.CouldHandle)
}
func (e *LostLeadershipError) Kind() Kind { return KindLostLeadership }
func (e *LostLeadershipError) Safety() Safety {
	if e.CouldHandle {
		return SafetyPossiblyApplied
	}
	return SafetyNotApplied
}
func (e *LostLeadershipError) Is(target error) bool {
	return target == ErrPossiblyApplied && e.CouldHandle
}

// ClosingError means the node is shutting down. The request was not applied.
type ClosingError struct{}

func (e *ClosingError) Error() string  { return "node closing" }
func (e *ClosingError) Kind() Kind     { return KindClosing }
func (e *ClosingError) Safety() Safety { return SafetyNotApplied }

// ExternalTimeoutError means the client deadline elapsed before any response arrived.
type ExternalTimeoutError struct {
	Err error
}

func (e *ExternalTimeoutError) Error() string {
	if e.Err == nil {
		return "external timeout"
	}
	return "external timeout: " + e.Err.Error()
}
func (e *ExternalTimeoutError) Unwrap() error  { return e.Err }
func (e *ExternalTimeoutError) Kind() Kind     { return KindTimeoutExternal }
func (e *ExternalTimeoutError) Safety() Safety { return SafetyPossiblyApplied }
func (e *ExternalTimeoutError) Is(target error) bool {
	return target == ErrPossiblyApplied
}

// InternalTimeoutError means the node's own processing deadline elapsed.
type InternalTimeoutError struct{}

func (e *InternalTimeoutError) Error() string  { return "internal timeout" }
func (e *InternalTimeoutError) Kind() Kind     { return KindTimeoutInternal }
func (e *InternalTimeoutError) Safety() Safety { return SafetyPossiblyApplied }
func (e *InternalTimeoutError) Is(target error) bool {
	return target == ErrPossiblyApplied
}

// TooManyRequestsError means admission control rejected the request.
type TooManyRequestsError struct{}

func (e *TooManyRequestsError) Error() string  { return "too many requests" }
func (e *TooManyRequestsError) Kind() Kind     { return KindTooManyRequests }
func (e *TooManyRequestsError) Safety() Safety { return SafetyNotApplied }

// CompileError means the query body is invalid. It will never be applied.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string  { return "compile error: " + e.Message }
func (e *CompileError) Kind() Kind     { return KindCompileError }
func (e *CompileError) Safety() Safety { return SafetyPermanent }

// ProtocolViolationError means the node returned a response outside the contract.
type ProtocolViolationError struct {
	Description string
}

func (e *ProtocolViolationError) Error() string  { return "protocol violation: " + e.Description }
func (e *ProtocolViolationError) Kind() Kind     { return KindProtocolViolation }
func (e *ProtocolViolationError) Safety() Safety { return SafetyPermanent }

// TransportError wraps a channel fault that the protocol does not describe.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string  { return "transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error  { return e.Err }
func (e *TransportError) Kind() Kind     { return KindTransport }
func (e *TransportError) Safety() Safety { return SafetyUnknown }

// KindOf returns the kind of err, or false when err is not a Failure.
func KindOf(err error) (Kind, bool) {
	var f Failure
	if !errors.As(err, &f) {
		return "", false
	}
	return f.Kind(), true
}

// SafetyOf returns the safety of err. Errors outside the taxonomy are unknown.
func SafetyOf(err error) Safety {
	var f Failure
	if !errors.As(err, &f) {
		return SafetyUnknown
	}
	return f.Safety()
}

// SafeToRetry reports whether err proves the request had no effect and may be resent as is.
func SafeToRetry(err error) bool {
	return err != nil && SafetyOf(err) == SafetyNotApplied
}
