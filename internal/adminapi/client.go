package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Client is raftfleetctl's boundary to a running raftfleetd's admin API.
type Client struct {
	httpClient *http.Client
	baseAddr   string // e.g. "http://127.0.0.1:7400"
}

// NewClient constructs a Client against baseAddr. httpClient may be nil to
// use http.DefaultClient.
func NewClient(httpClient *http.Client, baseAddr string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseAddr: baseAddr}
}

// Activate calls activate(zone).
func (c *Client) Activate(ctx context.Context, zone, ref string) error {
	return c.post(ctx, "/v1/activate", activateRequest{Zone: zone, Ref: ref}, nil)
}

// Deactivate calls deactivate().
func (c *Client) Deactivate(ctx context.Context, ref string) error {
	return c.post(ctx, "/v1/deactivate", deactivateRequest{Ref: ref}, nil)
}

// ActiveNodes calls active_nodes().
func (c *Client) ActiveNodes(ctx context.Context) (map[string][]string, error) {
	var resp activeNodesResponse
	if err := c.get(ctx, "/v1/active-nodes", &resp); err != nil {
		return nil, err
	}
	return resp.Zones, nil
}

// ConsensusGroups calls consensus_groups().
func (c *Client) ConsensusGroups(ctx context.Context) (map[string]int, error) {
	var resp consensusGroupsResponse
	if err := c.get(ctx, "/v1/consensus-groups", &resp); err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

// AddConsensusGroup calls add_consensus_group(name, n_replica, rv_config).
func (c *Client) AddConsensusGroup(ctx context.Context, name string, nReplica int, rvConfig []byte, ref string) error {
	req := addGroupRequest{Name: name, NReplica: nReplica, RVConfig: rvConfig, Ref: ref}
	return c.post(ctx, "/v1/consensus-groups", req, nil)
}

// RemoveConsensusGroup calls remove_consensus_group(name).
func (c *Client) RemoveConsensusGroup(ctx context.Context, name, ref string) error {
	path := "/v1/consensus-groups/" + url.PathEscape(name)
	return c.do(ctx, http.MethodDelete, path, removeGroupRequest{Name: name, Ref: ref}, nil)
}

// Command calls command(name, arg, ...).
func (c *Client) Command(ctx context.Context, name string, arg []byte, ref string) (any, error) {
	var resp callResponse
	req := callRequest{Name: name, Arg: arg, Ref: ref}
	if err := c.post(ctx, "/v1/command", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Query calls query(name, arg, ...).
func (c *Client) Query(ctx context.Context, name string, arg []byte) (any, error) {
	var resp callResponse
	req := callRequest{Name: name, Arg: arg}
	if err := c.post(ctx, "/v1/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Result, nil
}

// Health reports whether raftfleetd's admin API is reachable and healthy.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "/health", &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// WhereIsLeader calls whereis_leader(name).
func (c *Client) WhereIsLeader(ctx context.Context, name string) (node string, found bool, err error) {
	var resp whereIsLeaderResponse
	if err := c.get(ctx, "/v1/leader/"+url.PathEscape(name), &resp); err != nil {
		return "", false, err
	}
	return resp.Node, resp.Found, nil
}

func (c *Client) get(ctx context.Context, path string, respBody any) error {
	return c.do(ctx, http.MethodGet, path, nil, respBody)
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	return c.do(ctx, http.MethodPost, path, reqBody, respBody)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, respBody any) error {
	var bodyReader *bytes.Reader
	if reqBody != nil {
		buf, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("adminapi: encode request: %w", err)
		}
		bodyReader = bytes.NewReader(buf)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseAddr+path, bodyReader)
	if err != nil {
		return fmt.Errorf("adminapi: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("adminapi: request failed: %w", err)
	}
	defer resp.Body.Close()

	var env Response
	if respBody != nil {
		env.Data = respBody
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("adminapi: decode response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("adminapi: %s: %s", env.Code, env.Message)
	}
	return nil
}
