package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/interceptor"
	"github.com/agentgov/gatekeeper/proposal"
	"github.com/agentgov/gatekeeper/telemetry"
)

// server wires the gateway core components to a small JSON HTTP API. It
// holds no state of its own beyond the component references.
type server struct {
	gatekeeper *interceptor.Gatekeeper
	holds      *hold.Manager
	proposals  *proposal.Manager
	registry   *agentregistry.Registry
	metrics    *telemetry.PrometheusMetrics // nil mounts no /metrics route
}

func newServer(gk *interceptor.Gatekeeper, holds *hold.Manager, proposals *proposal.Manager, registry *agentregistry.Registry) *server {
	return &server{gatekeeper: gk, holds: holds, proposals: proposals, registry: registry}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/intercept", s.handleIntercept)
	r.Post("/v1/precheck", s.handlePrecheck)

	r.Route("/v1/holds", func(r chi.Router) {
		r.Get("/", s.handleListHolds)
		r.Get("/{holdID}", s.handleGetHold)
		r.Post("/{holdID}/approve", s.handleApproveHold)
		r.Post("/{holdID}/reject", s.handleRejectHold)
	})

	r.Route("/v1/proposals", func(r chi.Router) {
		r.Post("/", s.handleGenerateProposal)
		r.Get("/{proposalID}", s.handleGetProposal)
		r.Post("/{proposalID}/approve", s.handleApproveProposal)
		r.Post("/{proposalID}/reject", s.handleRejectProposal)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

type interceptRequest struct {
	AgentID     string         `json:"agentId"`
	Frame       string         `json:"frame"`
	ParentFrame string         `json:"parentFrame,omitempty"`
	InstanceID  string         `json:"instanceId,omitempty"`
	Tool        string         `json:"tool"`
	Arguments   map[string]any `json:"arguments,omitempty"`
}

func (ir interceptRequest) toRequest() interceptor.Request {
	return interceptor.Request{
		AgentID:     ir.AgentID,
		Frame:       ir.Frame,
		ParentFrame: ir.ParentFrame,
		InstanceID:  ir.InstanceID,
		Tool:        ir.Tool,
		Arguments:   ir.Arguments,
	}
}

func (s *server) handleIntercept(w http.ResponseWriter, r *http.Request) {
	var req interceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.gatekeeper.Intercept(r.Context(), req.toRequest()))
}

func (s *server) handlePrecheck(w http.ResponseWriter, r *http.Request) {
	var req interceptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.gatekeeper.Precheck(r.Context(), req.toRequest()))
}

func (s *server) handleListHolds(w http.ResponseWriter, r *http.Request) {
	agentID := r.URL.Query().Get("agentId")
	writeJSON(w, http.StatusOK, s.holds.ListPending(agentID))
}

func (s *server) handleGetHold(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	req := s.holds.Get(holdID)
	if req == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type decisionBody struct {
	Approver      string         `json:"approver"`
	Rejecter      string         `json:"rejecter"`
	Reason        string         `json:"reason"`
	ModifiedFrame string         `json:"modifiedFrame,omitempty"`
	ModifiedArgs  map[string]any `json:"modifiedArguments,omitempty"`
}

func (s *server) handleApproveHold(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	var body decisionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	decision := s.holds.Approve(holdID, body.Approver, body.Reason, body.ModifiedFrame, body.ModifiedArgs)
	if decision == nil {
		http.Error(w, "hold not found or not pending", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *server) handleRejectHold(w http.ResponseWriter, r *http.Request) {
	holdID := chi.URLParam(r, "holdID")
	var body decisionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	decision := s.holds.Reject(holdID, body.Rejecter, body.Reason)
	if decision == nil {
		http.Error(w, "hold not found or not pending", http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (s *server) handleGenerateProposal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Trigger    proposal.Trigger    `json:"trigger"`
		DataSource proposal.DataSource `json:"dataSource"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	p, err := s.proposals.GenerateProposal(r.Context(), body.Trigger, body.DataSource)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposalID")
	p, ok := s.proposals.Get(r.Context(), proposalID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposalID")
	var body decisionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	inst, err := s.proposals.Approve(r.Context(), proposalID, body.Approver, body.Reason, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (s *server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposalID")
	var body decisionBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := s.proposals.Reject(r.Context(), proposalID, body.Rejecter, body.Reason); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "malformed request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
