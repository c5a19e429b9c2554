package handler

import (
	"context"
	"net/http"

	"github.com/capitalize-ai/dispatch-core/internal/knowledge"
	"github.com/capitalize-ai/dispatch-core/internal/middleware"
	"github.com/capitalize-ai/dispatch-core/internal/model"
	"github.com/capitalize-ai/dispatch-core/internal/quickreply"
	"github.com/capitalize-ai/dispatch-core/internal/specialty"
)

// KnowledgeEngine answers free-text questions.
type KnowledgeEngine interface {
	Lookup(ctx context.Context, query string) knowledge.Answer
}

// Assessor turns symptom text into a triage reply.
type Assessor interface {
	Assess(ctx context.Context, symptoms string) *specialty.Assessment
}

// LookupHandler exposes the knowledge, triage and quick-reply engines for
// operators to inspect.
type LookupHandler struct {
	knowledge KnowledgeEngine
	triage    Assessor
	decider   *quickreply.Engine
	builder   *quickreply.Builder
}

// NewLookupHandler creates a new lookup handler.
func NewLookupHandler(kb KnowledgeEngine, triage Assessor, decider *quickreply.Engine, builder *quickreply.Builder) *LookupHandler {
	return &LookupHandler{knowledge: kb, triage: triage, decider: decider, builder: builder}
}

type lookupRequest struct {
	Query string `json:"query"`
}

// Knowledge handles POST /api/v1/knowledge/lookup
func (h *LookupHandler) Knowledge(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.knowledge.Lookup(r.Context(), req.Query))
}

type triageRequest struct {
	Symptoms string `json:"symptoms"`
}

// Triage handles POST /api/v1/triage
func (h *LookupHandler) Triage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateQuery(req.Symptoms); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.triage.Assess(r.Context(), req.Symptoms))
}

type decideRequest struct {
	quickreply.Input
	Language quickreply.Language `json:"language,omitempty"`
}

type decideResponse struct {
	Decision   quickreply.Decision  `json:"decision"`
	QuickReply *model.QuickReplySet `json:"quick_reply,omitempty"`
}

// Decide handles POST /api/v1/quick-replies/decide
func (h *LookupHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req decideRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lang := req.Language
	switch lang {
	case quickreply.English, quickreply.Marathi:
	case "":
		lang = quickreply.DetectLanguage(req.Message)
	default:
		writeError(w, http.StatusBadRequest, "language must be en or mr")
		return
	}

	decision := h.decider.Decide(req.Input)
	writeJSON(w, http.StatusOK, decideResponse{
		Decision:   decision,
		QuickReply: h.builder.Build(decision, req.Input, lang),
	})
}
