package protocol

import (
	"fmt"
	"strings"
)

// Request is the single message sent to a cluster node.
type Request struct {
	// ID disambiguates this request from other in-flight or recently completed ones.
	ID uint64 `json:"id" codec:"id"`
	// TimeoutMs is the processing budget the node may spend on the request.
	TimeoutMs int64 `json:"timeout" codec:"timeout"`
	// Body is the opaque query text.
	Body string `json:"body" codec:"body"`
}

// Empty marks a response case that carries no data.
type Empty struct{}

// ReadResult carries the values produced by an applied query.
type ReadResult struct {
	// Value maps keys to values.
	Value map[string]string `json:"value" codec:"value"`
}

// RedirectTo tells the client that another node should handle the request.
type RedirectTo struct {
	// ID is the suggested node, if the responder knows one.
	ID *uint64 `json:"id,omitempty" codec:"id"`
}

// LostLeadership reports that the node lost authority while handling the request.
type LostLeadership struct {
	// ID is the new leader, if the responder knows one.
	ID *uint64 `json:"id,omitempty" codec:"id"`
	// CouldHandle is true when the request may have been applied before leadership was lost.
	CouldHandle bool `json:"could_handle" codec:"could_handle"`
}

// Response is a tagged union: exactly one field is expected to be set.
type Response struct {
	Read             *ReadResult     `json:"read,omitempty" codec:"read"`
	RedirectTo       *RedirectTo     `json:"redirect_to,omitempty" codec:"redirect_to"`
	NodesUnreachable *Empty          `json:"nodes_unreachable,omitempty" codec:"nodes_unreachable"`
	LostLeadership   *LostLeadership `json:"lost_leadership,omitempty" codec:"lost_leadership"`
	Closing          *Empty          `json:"closing,omitempty" codec:"closing"`
	Timeout          *Empty          `json:"timeout,omitempty" codec:"timeout"`
	TooManyRequests  *Empty          `json:"too_many_requests,omitempty" codec:"too_many_requests"`
	CompileError     *string         `json:"compile_error,omitempty" codec:"compile_error"`
}

// Case identifies which member of a Response is set.
type Case int

// Response cases.
const (
	CaseUnset Case = iota
	CaseRead
	CaseRedirectTo
	CaseNodesUnreachable
	CaseLostLeadership
	CaseClosing
	CaseTimeout
	CaseTooManyRequests
	CaseCompileError
)

var caseNames = [...]string{
	CaseUnset:            "unset",
	CaseRead:             "read",
	CaseRedirectTo:       "redirect_to",
	CaseNodesUnreachable: "nodes_unreachable",
	CaseLostLeadership:   "lost_leadership",
	CaseClosing:          "closing",
	CaseTimeout:          "timeout",
	CaseTooManyRequests:  "too_many_requests",
	CaseCompileError:     "compile_error",
}

func (c Case) String() string {
	if c < 0 || int(c) >= len(caseNames) {
		return fmt.Sprintf("case(%d)", int(c))
	}
	return caseNames[c]
}

// Case returns the set member. It fails when more than one member is set.
func (r Response) Case() (Case, error) {
	set := make([]Case, 0, 1)
	if r.Read != nil {
		set = append(set, CaseRead)
	}
	if r.RedirectTo != nil {
		set = append(set, CaseRedirectTo)
	}
	if r.NodesUnreachable != nil {
		set = append(set, CaseNodesUnreachable)
	}
	if r.LostLeadership != nil {
		set = append(set, CaseLostLeadership)
	}
	if r.Closing != nil {
		set = append(set, CaseClosing)
	}
	if r.Timeout != nil {
		set = append(set, CaseTimeout)
	}
	if r.TooManyRequests != nil {
		set = append(set, CaseTooManyRequests)
	}
	if r.CompileError != nil {
		set = append(set, CaseCompileError)
	}

	switch len(set) {
	case 0:
		return CaseUnset, nil
	case 1:
		return set[0], nil
	default:
		names := make([]string, 0, len(set))
		for _, c := range set {
			names = append(names, c.String())
		}
		return CaseUnset, fmt.Errorf("multiple result cases set: %s", strings.Join(names, ", "))
	}
}

// ReadResponse builds a Read response.
func ReadResponse(values map[string]string) Response {
	return Response{Read: &ReadResult{Value: values}}
}

// RedirectResponse builds a RedirectTo response; a nil id means no hint.
func RedirectResponse(id *uint64) Response {
	return Response{RedirectTo: &RedirectTo{ID: id}}
}

// LostLeadershipResponse builds a LostLeadership response; a nil id means no hint.
func LostLeadershipResponse(id *uint64, couldHandle bool) Response {
	return Response{LostLeadership: &LostLeadership{ID: id, CouldHandle: couldHandle}}
}

// CompileErrorResponse builds a CompileError response.
func CompileErrorResponse(message string) Response {
	return Response{CompileError: &message}
}

// NodeID returns a pointer to id, for filling optional hint fields.
func NodeID(id uint64) *uint64 {
	return &id
}
