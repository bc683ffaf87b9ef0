package constants

// Gateway transports.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Node channel types.
const (
	ChannelHTTP   = "http"
	ChannelSocket = "socket"
)

// MCP surface names.
const (
	ToolExecute      = "kv_execute"
	ResourceNodesURI = "kv://cluster/nodes"
)
