package rpcfleet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/leader"
	"github.com/raftfleet/raftfleet/internal/manager"
)

// Client is the RPC boundary other packages dispatch through: it
// implements leader.Transport (Dispatch, WhoIsLeader) and
// manager.BootstrapDelegate (DelegateBootstrap) over plain HTTP+JSON
// requests against a peer's Server.
type Client struct {
	httpClient *http.Client

	// NodeAddr resolves a node's control-plane RPC base address (e.g.
	// "http://10.0.1.4:7400"). Required for WhoIsLeader/DelegateBootstrap,
	// which address a node rather than a replica handle.
	NodeAddr func(domain.NodeID) string
}

// NewClient constructs a Client. httpClient may be nil to use
// http.DefaultClient.
func NewClient(httpClient *http.Client, nodeAddr func(domain.NodeID) string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, NodeAddr: nodeAddr}
}

// Dispatch implements leader.Transport: it sends op to the replica
// identified by ref.Addr.
func (c *Client) Dispatch(ctx context.Context, ref domain.ReplicaRef, op leader.Operation) (any, error) {
	kind := "command"
	if op.Kind == leader.OpQuery {
		kind = "query"
	}
	req := dispatchRequest{Group: string(op.Name), Kind: kind, Ref: op.Ref, Arg: op.Arg}

	var resp dispatchResponse
	if err := c.post(ctx, ref.Addr, "/rpc/dispatch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// WhoIsLeader implements leader.Transport: it asks node's local process
// what it believes the leader of name is.
func (c *Client) WhoIsLeader(ctx context.Context, node domain.NodeID, name domain.GroupName) (domain.ReplicaRef, bool, error) {
	if c.NodeAddr == nil {
		return domain.ReplicaRef{}, false, fmt.Errorf("rpcfleet: no node address resolver configured")
	}
	addr := c.NodeAddr(node)
	if addr == "" {
		return domain.ReplicaRef{}, false, fmt.Errorf("rpcfleet: no known address for node %s", node)
	}

	var resp whoIsLeaderResponse
	if err := c.post(ctx, addr, "/rpc/who-is-leader", whoIsLeaderRequest{Group: string(name)}, &resp); err != nil {
		return domain.ReplicaRef{}, false, err
	}
	if !resp.Found {
		return domain.ReplicaRef{}, false, nil
	}
	return domain.ReplicaRef{Group: name, Node: domain.NodeID(resp.Node), Addr: resp.Addr}, true, nil
}

// DelegateBootstrap implements manager.BootstrapDelegate over the wire.
func (c *Client) DelegateBootstrap(ctx context.Context, node domain.NodeID, name domain.GroupName, nReplica int, rvConfig domain.RVConfig) (manager.DelegateResult, error) {
	if c.NodeAddr == nil {
		return 0, fmt.Errorf("rpcfleet: no node address resolver configured")
	}
	addr := c.NodeAddr(node)
	if addr == "" {
		return 0, fmt.Errorf("rpcfleet: no known address for node %s", node)
	}

	req := bootstrapRequest{Node: string(node), Group: string(name), NReplica: nReplica, RVConfig: rvConfig}
	var resp bootstrapResponse
	if err := c.post(ctx, addr, "/rpc/bootstrap", req, &resp); err != nil {
		return 0, err
	}
	if resp.Result == "process_exists" {
		return manager.DelegateProcessExists, nil
	}
	return manager.DelegateLeaderStarted, nil
}

// RequestJoin implements manager.GroupJoiner over the wire: it asks node
// (believed to lead name) to add newNode as a Raft voter at newNodeAddr.
func (c *Client) RequestJoin(ctx context.Context, node domain.NodeID, name domain.GroupName, newNode domain.NodeID, newNodeAddr string) error {
	if c.NodeAddr == nil {
		return fmt.Errorf("rpcfleet: no node address resolver configured")
	}
	addr := c.NodeAddr(node)
	if addr == "" {
		return fmt.Errorf("rpcfleet: no known address for node %s", node)
	}

	req := joinRequest{Group: string(name), Node: string(newNode), Addr: newNodeAddr}
	var resp joinResponse
	return c.post(ctx, addr, "/rpc/join", req, &resp)
}

func (c *Client) post(ctx context.Context, baseAddr, path string, reqBody, respBody any) error {
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("rpcfleet: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseAddr+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("rpcfleet: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("rpcfleet: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var errResp Response
		json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("rpcfleet: %s: %s", errResp.Code, errResp.Message)
	}

	var env Response
	env.Data = respBody
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("rpcfleet: decode response: %w", err)
	}
	return nil
}
