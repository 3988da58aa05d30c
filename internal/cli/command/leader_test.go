package command

import (
	"net/http"
	"testing"
)

func TestLeaderCommand(t *testing.T) {
	cmd := LeaderCommand()
	if cmd == nil {
		t.Fatal("LeaderCommand returned nil")
	}
	if cmd.Name != "leader" {
		t.Errorf("Name = %q, want %q", cmd.Name, "leader")
	}
	if cmd.ArgsUsage != "NAME" {
		t.Errorf("ArgsUsage = %q, want %q", cmd.ArgsUsage, "NAME")
	}
	if cmd.Action == nil {
		t.Error("leader should have an action")
	}
}

func TestLeaderShow_Found(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/leader/billing", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{"found": true, "node": "node-1"}))
	})

	ctx := testContext(server, "billing")
	if err := leaderShow(ctx); err != nil {
		t.Errorf("leaderShow() error = %v", err)
	}
}

func TestLeaderShow_NotFound(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/leader/billing", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{"found": false}))
	})

	ctx := testContext(server, "billing")
	if err := leaderShow(ctx); err != nil {
		t.Errorf("leaderShow() should not error when leader is unknown: %v", err)
	}
}

func TestLeaderShow_MissingName(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	ctx := testContext(server)
	if err := leaderShow(ctx); err == nil {
		t.Error("expected error for missing group name")
	}
}
