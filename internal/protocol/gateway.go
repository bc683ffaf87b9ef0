package protocol

// Gateway statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// ExecuteResponse is the fixed JSON response returned to MCP clients of the gateway.
type ExecuteResponse struct {
	// Status is success or failure.
	Status string `json:"status"`
	// Kind is the failure kind; empty on success.
	Kind string `json:"kind,omitempty"`
	// Values holds the read result on success.
	Values map[string]string `json:"values,omitempty"`
	// Node is the node the request was sent to.
	Node uint64 `json:"node"`
	// RequestTarget is the address of Node.
	RequestTarget string `json:"request_target"`
	// HintNode is the node suggested by a redirect or leadership loss.
	HintNode *uint64 `json:"hint_node,omitempty"`
	// HintTarget is the configured address of HintNode, if known.
	HintTarget string `json:"hint_target,omitempty"`
	// CouldHandle mirrors the lost leadership flag.
	CouldHandle *bool `json:"could_handle,omitempty"`
	// PossiblyApplied is true when the request may have taken effect.
	PossiblyApplied bool `json:"possibly_applied"`
	// Retry is the suggested retry action.
	Retry string `json:"retry,omitempty"`
	// Message is a human-readable description.
	Message string `json:"message,omitempty"`
}

// NodeInfo describes a configured cluster node.
type NodeInfo struct {
	// ID is the node id used in redirect hints.
	ID uint64 `json:"id"`
	// Target is the node endpoint.
	Target string `json:"target"`
	// Default marks the node used when a call names none.
	Default bool `json:"default,omitempty"`
}
