// Package adminapi exposes internal/api.Fleet's public operations (§6.1)
// over JSON-over-HTTP, the same way internal/rpcfleet exposes the
// node-to-node control-plane RPCs: no protobuf/connect-go stubs are
// generated anywhere in this module, so raftfleetctl talks to a running
// raftfleetd the same plain way nodes talk to each other.
package adminapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/raftfleet/raftfleet/internal/api"
	"github.com/raftfleet/raftfleet/internal/core/domain"
)

// Config configures a Server.
type Config struct {
	Logger *slog.Logger
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server serves raftfleetctl's admin requests against a local *api.Fleet.
type Server struct {
	cfg    Config
	fleet  *api.Fleet
	logger *slog.Logger
	mux    *http.ServeMux
}

// New constructs a Server backed by fleet.
func New(cfg Config, fleet *api.Fleet) *Server {
	cfg.setDefaults()
	s := &Server{cfg: cfg, fleet: fleet, logger: cfg.Logger, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /v1/activate", s.handleActivate)
	s.mux.HandleFunc("POST /v1/deactivate", s.handleDeactivate)
	s.mux.HandleFunc("GET /v1/active-nodes", s.handleActiveNodes)
	s.mux.HandleFunc("GET /v1/consensus-groups", s.handleConsensusGroups)
	s.mux.HandleFunc("POST /v1/consensus-groups", s.handleAddGroup)
	s.mux.HandleFunc("DELETE /v1/consensus-groups/{name}", s.handleRemoveGroup)
	s.mux.HandleFunc("POST /v1/command", s.handleCommand)
	s.mux.HandleFunc("POST /v1/query", s.handleQuery)
	s.mux.HandleFunc("GET /v1/leader/{name}", s.handleWhereIsLeader)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err := s.fleet.Activate(r.Context(), domain.ZoneID(req.Zone), req.Ref); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, nil)
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var req deactivateRequest
	json.NewDecoder(r.Body).Decode(&req)
	if err := s.fleet.Deactivate(r.Context(), req.Ref); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, nil)
}

func (s *Server) handleActiveNodes(w http.ResponseWriter, r *http.Request) {
	zones := make(map[string][]string)
	for zone, nodes := range s.fleet.ActiveNodes() {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = string(n)
		}
		zones[string(zone)] = ids
	}
	s.writeJSON(w, r, http.StatusOK, activeNodesResponse{Zones: zones})
}

func (s *Server) handleConsensusGroups(w http.ResponseWriter, r *http.Request) {
	groups := make(map[string]int)
	for name, n := range s.fleet.ConsensusGroups() {
		groups[string(name)] = n
	}
	s.writeJSON(w, r, http.StatusOK, consensusGroupsResponse{Groups: groups})
}

func (s *Server) handleAddGroup(w http.ResponseWriter, r *http.Request) {
	var req addGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	err := s.fleet.AddConsensusGroup(r.Context(), api.AddConsensusGroupRequest{
		Name:     domain.GroupName(req.Name),
		NReplica: req.NReplica,
		RVConfig: domain.RVConfig(req.RVConfig),
		Ref:      req.Ref,
	})
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, nil)
}

func (s *Server) handleRemoveGroup(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var req removeGroupRequest
	json.NewDecoder(r.Body).Decode(&req)
	if err := s.fleet.RemoveConsensusGroup(r.Context(), domain.GroupName(name), req.Ref); err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, nil)
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	ret, err := s.fleet.Command(r.Context(), domain.GroupName(req.Name), req.Arg, req.callOptions())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, callResponse{Result: ret})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req callRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	ret, err := s.fleet.Query(r.Context(), domain.GroupName(req.Name), req.Arg, req.callOptions())
	if err != nil {
		s.handleServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, callResponse{Result: ret})
}

func (s *Server) handleWhereIsLeader(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	node, ok := s.fleet.WhereIsLeader(domain.GroupName(name))
	s.writeJSON(w, r, http.StatusOK, whereIsLeaderResponse{Found: ok, Node: string(node)})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := r.Header.Get("X-Request-ID")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(newResponse(requestID, data)); err != nil {
		s.logger.Error("failed to encode admin response", "error", err)
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
		s.logger.Error("internal admin api error", "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	s.writeError(w, r, errorCodeToHTTPStatus(code), code, err.Error())
}

func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.Contains(code, "not_found"):
		return http.StatusNotFound
	case strings.Contains(code, "already_added"), strings.Contains(code, "not_inactive"):
		return http.StatusConflict
	case strings.Contains(code, "inactive"):
		return http.StatusConflict
	case strings.Contains(code, "no_leader"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (req callRequest) callOptions() api.CallOptions {
	opts := api.CallOptions{Ref: req.Ref, Retry: req.Retry}
	if req.TimeoutMillis > 0 {
		opts.Timeout = time.Duration(req.TimeoutMillis) * time.Millisecond
	}
	if req.RetryMillis > 0 {
		opts.RetryInterval = time.Duration(req.RetryMillis) * time.Millisecond
	}
	return opts
}
