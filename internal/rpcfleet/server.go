// Package rpcfleet is the control-plane RPC layer between fleet nodes: one
// node's LeaderResolver and bootstrap-delegation logic reach another node's
// Manager over plain JSON-over-HTTP, since nothing in this module generates
// protobuf/connect-go stubs to build a typed RPC surface on top of.
package rpcfleet

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raftfleet/raftfleet/internal/core/domain"
	"github.com/raftfleet/raftfleet/internal/manager"
)

// LocalReplicas is the subset of *manager.Manager the Server dispatches
// into for an incoming request.
type LocalReplicas interface {
	LocalStatus(name domain.GroupName) (status LocalStatus, ok bool)
	LocalCommand(name domain.GroupName, arg []byte, timeout time.Duration) (any, bool, error)
	LocalQuery(name domain.GroupName, timeout time.Duration) ([]byte, bool, error)
	BootstrapLocal(name domain.GroupName) (manager.DelegateResult, error)
	LocalAddVoter(name domain.GroupName, newNode domain.NodeID, addr string, timeout time.Duration) (bool, error)
}

// LocalStatus mirrors the fields of engine.Status the RPC layer needs,
// without importing internal/engine's raft-facing type directly.
type LocalStatus struct {
	IsLeader bool
	LeaderID string
}

// Config configures a Server.
type Config struct {
	// RPCAddr resolves a node's control-plane RPC address for a given
	// group, so who-is-leader responses can point callers at it directly.
	RPCAddr func(node domain.NodeID, group domain.GroupName) string

	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 500 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server serves the control-plane RPCs other nodes issue against this
// node's Manager: who-is-leader probes, command/query dispatch against a
// locally-hosted replica, and bootstrap delegation.
type Server struct {
	cfg     Config
	replica LocalReplicas
	logger  *slog.Logger
	mux     *http.ServeMux
}

// localReplicasAdapter adapts *manager.Manager's concrete return types to
// the LocalReplicas shape above.
type localReplicasAdapter struct {
	m *manager.Manager
}

func (a localReplicasAdapter) LocalStatus(name domain.GroupName) (LocalStatus, bool) {
	st, ok := a.m.LocalStatus(name)
	if !ok {
		return LocalStatus{}, false
	}
	return LocalStatus{IsLeader: st.Role == "leader", LeaderID: st.LeaderID}, true
}

func (a localReplicasAdapter) LocalCommand(name domain.GroupName, arg []byte, timeout time.Duration) (any, bool, error) {
	return a.m.LocalCommand(name, arg, timeout)
}

func (a localReplicasAdapter) LocalQuery(name domain.GroupName, timeout time.Duration) ([]byte, bool, error) {
	return a.m.LocalQuery(name, timeout)
}

func (a localReplicasAdapter) BootstrapLocal(name domain.GroupName) (manager.DelegateResult, error) {
	return a.m.BootstrapLocal(name)
}

func (a localReplicasAdapter) LocalAddVoter(name domain.GroupName, newNode domain.NodeID, addr string, timeout time.Duration) (bool, error) {
	return a.m.LocalAddVoter(name, newNode, addr, timeout)
}

// New constructs a Server backed by m.
func New(cfg Config, m *manager.Manager) *Server {
	return newWithReplicas(cfg, localReplicasAdapter{m: m})
}

func newWithReplicas(cfg Config, replica LocalReplicas) *Server {
	cfg.setDefaults()
	s := &Server{
		cfg:     cfg,
		replica: replica,
		logger:  cfg.Logger,
		mux:     http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /rpc/who-is-leader", s.handleWhoIsLeader)
	s.mux.HandleFunc("POST /rpc/dispatch", s.handleDispatch)
	s.mux.HandleFunc("POST /rpc/bootstrap", s.handleBootstrap)
	s.mux.HandleFunc("POST /rpc/join", s.handleJoin)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleWhoIsLeader(w http.ResponseWriter, r *http.Request) {
	var req whoIsLeaderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	status, ok := s.replica.LocalStatus(domain.GroupName(req.Group))
	if !ok || status.LeaderID == "" {
		s.writeJSON(w, r, http.StatusOK, whoIsLeaderResponse{Found: false})
		return
	}

	addr := ""
	if s.cfg.RPCAddr != nil {
		addr = s.cfg.RPCAddr(domain.NodeID(status.LeaderID), domain.GroupName(req.Group))
	}
	s.writeJSON(w, r, http.StatusOK, whoIsLeaderResponse{Found: true, Node: status.LeaderID, Addr: addr})
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	switch req.Kind {
	case "command":
		ret, ok, err := s.replica.LocalCommand(domain.GroupName(req.Group), req.Arg, s.cfg.Timeout)
		if !ok {
			s.writeError(w, r, http.StatusNotFound, "not_found", "no local replica for group")
			return
		}
		if err != nil {
			s.handleServiceError(w, r, err)
			return
		}
		result, _ := ret.([]byte)
		s.writeJSON(w, r, http.StatusOK, dispatchResponse{Result: result})
	case "query":
		result, ok, err := s.replica.LocalQuery(domain.GroupName(req.Group), s.cfg.Timeout)
		if !ok {
			s.writeError(w, r, http.StatusNotFound, "not_found", "no local replica for group")
			return
		}
		if err != nil {
			s.handleServiceError(w, r, err)
			return
		}
		s.writeJSON(w, r, http.StatusOK, dispatchResponse{Result: result})
	default:
		s.writeError(w, r, http.StatusBadRequest, "bad_request", "kind must be command or query")
	}
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	var req bootstrapRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	result, err := s.replica.BootstrapLocal(domain.GroupName(req.Group))
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}

	resultStr := "leader_started"
	if result == manager.DelegateProcessExists {
		resultStr = "process_exists"
	}
	s.writeJSON(w, r, http.StatusOK, bootstrapResponse{Result: resultStr})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ok, err := s.replica.LocalAddVoter(domain.GroupName(req.Group), domain.NodeID(req.Node), req.Addr, s.cfg.Timeout)
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "not_found", "no local replica for group")
		return
	}
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, joinResponse{})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(newResponse(requestID, data)); err != nil {
		s.logger.Error("failed to encode rpc response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(newErrorResponse(requestID, code, message))
}

func (s *Server) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.Code(err)
	if code == "" {
		s.logger.Error("internal rpc error", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	s.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.Contains(code, "not_found"):
		return http.StatusNotFound
	case strings.Contains(code, "already_added"), strings.Contains(code, "process_exists"):
		return http.StatusConflict
	case strings.Contains(code, "no_leader"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
