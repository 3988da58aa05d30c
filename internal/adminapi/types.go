package adminapi

import "time"

// Response is the standard envelope every endpoint replies with, matching
// internal/rpcfleet's wire shape so raftfleetctl and the inter-node RPC
// client share one mental model of the fleet's HTTP surface.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

func newResponse(requestID string, data any) *Response {
	return &Response{Code: "OK", RequestID: requestID, Timestamp: time.Now().UnixMilli(), Data: data}
}

func newErrorResponse(requestID, code, message string) *Response {
	return &Response{Code: code, Message: message, RequestID: requestID, Timestamp: time.Now().UnixMilli()}
}

// activateRequest implements activate(zone) (§6.1).
type activateRequest struct {
	Zone string `json:"zone"`
	Ref  string `json:"ref,omitempty"`
}

// deactivateRequest implements deactivate().
type deactivateRequest struct {
	Ref string `json:"ref,omitempty"`
}

// activeNodesResponse implements active_nodes().
type activeNodesResponse struct {
	Zones map[string][]string `json:"zones"`
}

// consensusGroupsResponse implements consensus_groups().
type consensusGroupsResponse struct {
	Groups map[string]int `json:"groups"`
}

// addGroupRequest implements add_consensus_group(name, n_replica, rv_config).
type addGroupRequest struct {
	Name     string `json:"name"`
	NReplica int    `json:"n_replica"`
	RVConfig []byte `json:"rv_config,omitempty"`
	Ref      string `json:"ref,omitempty"`
}

// removeGroupRequest implements remove_consensus_group(name).
type removeGroupRequest struct {
	Name string `json:"name"`
	Ref  string `json:"ref,omitempty"`
}

// callRequest implements command(name, arg, ...) / query(name, arg, ...).
type callRequest struct {
	Name          string `json:"name"`
	Arg           []byte `json:"arg,omitempty"`
	Ref           string `json:"ref,omitempty"`
	TimeoutMillis int64  `json:"timeout_millis,omitempty"`
	Retry         int    `json:"retry,omitempty"`
	RetryMillis   int64  `json:"retry_interval_millis,omitempty"`
}

// callResponse carries command()/query()'s result back as an opaque byte
// slice or string; Fleet's Dispatcher returns `any`, so the server encodes
// whatever comes back through a best-effort JSON pass.
type callResponse struct {
	Result any `json:"result,omitempty"`
}

// whereIsLeaderResponse implements whereis_leader(name).
type whereIsLeaderResponse struct {
	Found bool   `json:"found"`
	Node  string `json:"node,omitempty"`
}
