package command

import (
	"net/http"
	"testing"
)

func TestStatusCommand(t *testing.T) {
	cmd := StatusCommand()
	if cmd == nil {
		t.Fatal("StatusCommand returned nil")
	}
	if cmd.Name != "status" {
		t.Errorf("Name = %q, want %q", cmd.Name, "status")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}
	for _, name := range []string{"summary", "health"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestStatusSummary(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/active-nodes", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"zones": map[string][]string{"us-east-1": {"node-1", "node-2"}},
		}))
	})
	server.handle("/v1/consensus-groups", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"groups": map[string]int{"billing": 3},
		}))
	})

	ctx := testContext(server)
	if err := statusSummary(ctx); err != nil {
		t.Errorf("statusSummary() error = %v", err)
	}
}

func TestStatusSummary_JSONOutput(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/active-nodes", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"zones": map[string][]string{"us-east-1": {"node-1"}},
		}))
	})
	server.handle("/v1/consensus-groups", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{
			"groups": map[string]int{},
		}))
	})

	ctx := testContext(server, "--output", "json")
	if err := statusSummary(ctx); err != nil {
		t.Errorf("statusSummary() with json output error = %v", err)
	}
}

func TestStatusHealth_Healthy(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/health", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{"status": "healthy"}))
	})

	ctx := testContext(server)
	if err := statusHealth(ctx); err != nil {
		t.Errorf("statusHealth() error = %v", err)
	}
}

func TestStatusHealth_Unreachable(t *testing.T) {
	server := newMockServer()
	ctx := testContext(server)
	server.Close()

	if err := statusHealth(ctx); err == nil {
		t.Error("expected error when server is unreachable")
	}
}
