package command

import (
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/raftfleet/raftfleet/internal/cli/connection"
)

// mockServer is a minimal stand-in for raftfleetd's admin API (§6.1),
// matching the {code, message, request_id, timestamp, data} envelope
// internal/adminapi.Server writes.
type mockServer struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
}

func newMockServer() *mockServer {
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for pattern, handler := range m.handlers {
			if strings.HasPrefix(r.URL.Path, pattern) {
				handler(w, r)
				return
			}
		}
		http.NotFound(w, r)
	}))
	return m
}

func (m *mockServer) handle(pattern string, handler http.HandlerFunc) {
	m.handlers[pattern] = handler
}

func adminOK(data any) map[string]any {
	return map[string]any{"code": "OK", "data": data}
}

func adminErr(code, message string) map[string]any {
	return map[string]any{"code": code, "message": message}
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// testContext builds a cli.Context wired to a connection manager and the
// mock server's URL as --server, for exercising command actions directly.
func testContext(server *mockServer, args ...string) *cli.Context {
	app := &cli.App{
		Name:  "test",
		Flags: globalFlags(),
		Metadata: map[string]any{
			"connMgr": connection.NewManager(),
		},
	}

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range app.Flags {
		f.Apply(set)
	}

	fullArgs := append([]string{"--server", server.URL}, args...)
	set.Parse(fullArgs)

	return cli.NewContext(app, set, nil)
}
