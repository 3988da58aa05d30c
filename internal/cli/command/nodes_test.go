package command

import (
	"net/http"
	"testing"
)

func TestNodesCommand(t *testing.T) {
	cmd := NodesCommand()
	if cmd == nil {
		t.Fatal("NodesCommand returned nil")
	}
	if cmd.Name != "nodes" {
		t.Errorf("Name = %q, want %q", cmd.Name, "nodes")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}
	for _, name := range []string{"activate", "deactivate", "list"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestNodesActivate(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/activate", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(nil))
	})

	ctx := testContext(server, "--zone", "us-east-1")
	if err := nodesActivate(ctx); err != nil {
		t.Errorf("nodesActivate() error = %v", err)
	}
}

func TestNodesDeactivate(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/deactivate", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(nil))
	})

	ctx := testContext(server)
	if err := nodesDeactivate(ctx); err != nil {
		t.Errorf("nodesDeactivate() error = %v", err)
	}
}

func TestNodesList(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/active-nodes", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"zones": map[string][]string{
				"us-east-1": {"node-1", "node-2"},
			},
		}))
	})

	ctx := testContext(server)
	if err := nodesList(ctx); err != nil {
		t.Errorf("nodesList() error = %v", err)
	}
}

func TestNodesList_JSONOutput(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/active-nodes", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"zones": map[string][]string{"us-east-1": {"node-1"}},
		}))
	})

	ctx := testContext(server, "--output", "json")
	if err := nodesList(ctx); err != nil {
		t.Errorf("nodesList() with json output error = %v", err)
	}
}

func TestNodesActivate_ServerError(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/activate", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusConflict, adminErr("CONFLICT", "zone mismatch"))
	})

	ctx := testContext(server, "--zone", "us-east-1")
	if err := nodesActivate(ctx); err == nil {
		t.Error("expected error from server conflict response")
	}
}
