package command

import (
	"net/http"
	"testing"
)

func TestCallCommand(t *testing.T) {
	cmd := CallCommand()
	if cmd == nil {
		t.Fatal("CallCommand returned nil")
	}
	if cmd.Name != "call" {
		t.Errorf("Name = %q, want %q", cmd.Name, "call")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}
	for _, name := range []string{"command", "query"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestCallCommand_Dispatch(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/command", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{"result": "ok"}))
	})

	ctx := testContext(server, "billing", "deposit:100")
	if err := callCommand(ctx); err != nil {
		t.Errorf("callCommand() error = %v", err)
	}
}

func TestCallQuery_Dispatch(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/query", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, adminOK(map[string]any{"result": "balance:100"}))
	})

	ctx := testContext(server, "billing", "balance")
	if err := callQuery(ctx); err != nil {
		t.Errorf("callQuery() error = %v", err)
	}
}

func TestCallArgs_MissingName(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	ctx := testContext(server)
	if _, _, err := callArgs(ctx); err == nil {
		t.Error("expected error for missing group name")
	}
}

func TestCallArgs_OptionalArg(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	ctx := testContext(server, "billing")
	name, arg, err := callArgs(ctx)
	if err != nil {
		t.Fatalf("callArgs() error = %v", err)
	}
	if name != "billing" {
		t.Errorf("name = %q, want %q", name, "billing")
	}
	if len(arg) != 0 {
		t.Errorf("arg = %q, want empty", arg)
	}
}

func TestCallCommand_ServerError(t *testing.T) {
	server := newMockServer()
	defer server.Close()

	server.handle("/v1/command", func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusNotFound, adminErr("NOT_FOUND", "group not found"))
	})

	ctx := testContext(server, "billing", "deposit:100")
	if err := callCommand(ctx); err == nil {
		t.Error("expected error from server not-found response")
	}
}
