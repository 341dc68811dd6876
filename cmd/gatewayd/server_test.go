package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentgov/gatekeeper/agentregistry"
	"github.com/agentgov/gatekeeper/audit"
	"github.com/agentgov/gatekeeper/drift"
	"github.com/agentgov/gatekeeper/frame"
	"github.com/agentgov/gatekeeper/hold"
	"github.com/agentgov/gatekeeper/interceptor"
	"github.com/agentgov/gatekeeper/ontology"
	"github.com/agentgov/gatekeeper/proposal"
	"github.com/agentgov/gatekeeper/validate"
)

func testServer(t *testing.T) *server {
	t.Helper()
	reg := ontology.New(ontology.DefaultCatalog())
	rec := audit.NewNoopRecorder()
	driftEngine, err := drift.NewEngine(reg, drift.DefaultConfig(), rec)
	require.NoError(t, err)
	holds := hold.NewManager(rec)
	registry := agentregistry.NewRegistry(rec)
	proposals := proposal.NewManager(registry, holds, rec)
	gk := interceptor.New(interceptor.DefaultConfig(), frame.NewResolver(reg), validate.NewValidator(reg), driftEngine, holds, registry, rec, nil, nil, nil)
	return newServer(gk, holds, proposals, registry)
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleInterceptAllowsCleanFrame(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.routes(), "/v1/intercept", interceptRequest{
		AgentID: "agent-1", Frame: "⊕◊⛔▶", Tool: "transfer",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var decision interceptor.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
	require.Equal(t, interceptor.ActionAllow, decision.Action)
}

func TestHandleInterceptRejectsMalformedBody(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodPost, "/v1/intercept", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetHoldNotFound(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/holds/nonexistent", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleApproveHoldRoundTrip(t *testing.T) {
	s := testServer(t)
	decision := s.gatekeeper.Intercept(context.Background(), interceptor.Request{AgentID: "agent-1", Frame: "⛔▶⇈", Tool: "t"})
	require.Equal(t, interceptor.ActionHold, decision.Action)
	require.NotEmpty(t, decision.HoldID)

	rec := postJSON(t, s.routes(), "/v1/holds/"+decision.HoldID+"/approve", decisionBody{
		Approver: "alice", Reason: "looks fine",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var out hold.Decision
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, "alice", out.DeciderID)
}

func TestHandleApproveUnknownHoldConflicts(t *testing.T) {
	s := testServer(t)
	rec := postJSON(t, s.routes(), "/v1/holds/nope/approve", decisionBody{Approver: "alice"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleGenerateProposalRoundTrip(t *testing.T) {
	s := testServer(t)
	s.proposals.RegisterTemplate(proposal.Template{
		DataSourceType: "web_scraper",
		NamePrefix:     "scrape",
		Category:       agentregistry.CategoryDataAcquisition,
		Capabilities:   []string{"web_fetch"},
		Namespace:      "scrape",
	})

	rec := postJSON(t, s.routes(), "/v1/proposals", map[string]any{
		"trigger": proposal.TriggerNewDataSource,
		"dataSource": proposal.DataSource{
			ID: "src-1", Type: "web_scraper",
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var p proposal.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	require.NotEmpty(t, p.ProposalID)

	getRec := httptest.NewRequest(http.MethodGet, "/v1/proposals/"+p.ProposalID, nil)
	getW := httptest.NewRecorder()
	s.routes().ServeHTTP(getW, getRec)
	require.Equal(t, http.StatusOK, getW.Code)
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.routes().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
