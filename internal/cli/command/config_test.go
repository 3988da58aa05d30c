package command

import (
	"strings"
	"testing"
)

func TestConfigCommand(t *testing.T) {
	cmd := ConfigCommand()
	if cmd == nil {
		t.Fatal("ConfigCommand returned nil")
	}
	if cmd.Name != "config" {
		t.Errorf("Name = %q, want %q", cmd.Name, "config")
	}

	subNames := make(map[string]bool)
	for _, sub := range cmd.Subcommands {
		subNames[sub.Name] = true
	}
	for _, name := range []string{"show", "set"} {
		if !subNames[name] {
			t.Errorf("missing subcommand: %s", name)
		}
	}
}

func TestConfigShow(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := newMockServer()
	defer server.Close()

	ctx := testContext(server)
	if err := configShow(ctx); err != nil {
		t.Errorf("configShow() error = %v", err)
	}
}

func TestConfigSet_MissingArgs(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := newMockServer()
	defer server.Close()

	ctx := testContext(server)
	err := configSet(ctx)
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "usage") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSet_UnknownKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := newMockServer()
	defer server.Close()

	ctx := testContext(server, "bogus-key", "value")
	err := configSet(ctx)
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	if !strings.Contains(err.Error(), "unknown key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestConfigSet_DefaultServer(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := newMockServer()
	defer server.Close()

	ctx := testContext(server, "default-server", "http://fleet.internal:7400")
	if err := configSet(ctx); err != nil {
		t.Errorf("configSet() error = %v", err)
	}

	showCtx := testContext(server)
	if err := configShow(showCtx); err != nil {
		t.Errorf("configShow() after set error = %v", err)
	}
}

func TestConfigSet_DefaultOutput(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	server := newMockServer()
	defer server.Close()

	ctx := testContext(server, "default-output", "json")
	if err := configSet(ctx); err != nil {
		t.Errorf("configSet() error = %v", err)
	}
}
