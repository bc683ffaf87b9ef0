package outcome

import (
	"github.com/codex-k8s/kvexec/internal/protocol"
)

// Classify maps a node response to either the read values or exactly one Failure.
func Classify(resp protocol.Response) (map[string]string, error) {
	c, err := resp.Case()
	if err != nil {
		return nil, &ProtocolViolationError{Description: err.Error()}
	}

	switch c {
	case protocol.CaseRead:
		values := resp.Read.Value
		if values == nil {
			values = map[string]string{}
		}
		return values, nil
	case protocol.CaseRedirectTo:
		return nil, &RedirectError{To: HintFrom(resp.RedirectTo.ID)}
	case protocol.CaseNodesUnreachable:
		return nil, &NodesUnreachableError{}
	case protocol.CaseLostLeadership:
		return nil, &LostLeadershipError{
			To:          HintFrom(resp.LostLeadership.ID),
			CouldHandle: resp.LostLeadership.CouldHandle,
		}
	case protocol.CaseClosing:
		return nil, &ClosingError{}
	case protocol.CaseTimeout:
		return nil, &InternalTimeoutError{}
	case protocol.CaseTooManyRequests:
		return nil, &TooManyRequestsError{}
	case protocol.CaseCompileError:
		return nil, &CompileError{Message: *resp.CompileError}
	default:
		return nil, &ProtocolViolationError{Description: "missing result"}
	}
}
