package outcome

import "errors"

// Action is the retry guidance attached to a failure.
type Action string

// Retry actions. The executor never performs them; a retry layer may.
const (
	ActionNone          Action = "none"
	ActionResendHinted  Action = "resend_hinted"
	ActionRediscover    Action = "rediscover_leader"
	ActionOtherNode     Action = "other_node"
	ActionBackoff       Action = "backoff"
	ActionCallerDecides Action = "caller_decides"
	ActionFail          Action = "fail"
)

// Advice combines the retry action with the node to contact, if any.
type Advice struct {
	Action Action
	Target NodeHint
}

// Advise derives retry guidance from an execute error. A nil error needs no action.
func Advise(err error) Advice {
	if err == nil {
		return Advice{Action: ActionNone}
	}

	var redirect *RedirectError
	var lost *LostLeadershipError
	switch {
	case errors.As(err, &redirect):
		return hinted(redirect.To)
	case errors.As(err, &lost):
		if lost.CouldHandle {
			return Advice{Action: ActionCallerDecides, Target: lost.To}
		}
		return hinted(lost.To)
	}

	kind, ok := KindOf(err)
	if !ok {
		return Advice{Action: ActionCallerDecides}
	}
	switch kind {
	case KindNodesUnreachable, KindTooManyRequests:
		return Advice{Action: ActionBackoff}
	case KindClosing:
		return Advice{Action: ActionOtherNode}
	case KindCompileError, KindProtocolViolation:
		return Advice{Action: ActionFail}
	default:
		return Advice{Action: ActionCallerDecides}
	}
}

func hinted(to NodeHint) Advice {
	if to.Known() {
		return Advice{Action: ActionResendHinted, Target: to}
	}
	return Advice{Action: ActionRediscover}
}
