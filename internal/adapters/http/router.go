package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/sebmendo1/MeetMemento-sub000/internal/core/domain"
	"github.com/sebmendo1/MeetMemento-sub000/internal/core/ports"
	"github.com/sebmendo1/MeetMemento-sub000/internal/observability/metrics"
)

const (
	userIDHeader   = "X-User-Id"
	maxRequestBody = 1 << 20
)

type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueTimeout   time.Duration
	Metrics        *metrics.HTTPServerMetrics
}

type Router struct {
	ranker    ports.PromptRanker
	artifacts ports.ArtifactService
	scheduler ports.GenerationScheduler
	prompts   ports.PromptResolver
	options   Options
	validate  *validator.Validate
}

func NewRouter(
	ranker ports.PromptRanker,
	artifacts ports.ArtifactService,
	scheduler ports.GenerationScheduler,
	prompts ports.PromptResolver,
	options Options,
) *Router {
	return &Router{
		ranker:    ranker,
		artifacts: artifacts,
		scheduler: scheduler,
		prompts:   prompts,
		options:   options,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/prompts/rank", rt.rankPrompts)
	mux.HandleFunc("GET /v1/prompts/outstanding", rt.listOutstanding)
	mux.HandleFunc("POST /v1/prompts/{prompt_id}/resolve", rt.resolvePrompt)
	mux.HandleFunc("GET /v1/artifacts/{type}", rt.getArtifact)
	mux.HandleFunc("POST /v1/artifacts/{type}/refresh", rt.refreshArtifact)
	mux.HandleFunc("POST /v1/events", rt.recordEvent)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.options.MaxInFlight, rt.options.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.options.RateLimitRPS, rt.options.RateLimitBurst, rt.onRateLimited)
	handler = accessLogMiddleware(handler)
	if rt.options.Metrics != nil {
		handler = rt.options.Metrics.Middleware("api", handler)
	}
	return requestIDMiddleware(handler)
}

func (rt *Router) onRateLimited(r *http.Request) {
	if rt.options.Metrics != nil {
		rt.options.Metrics.RecordRateLimited("api", r.URL.Path)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type documentPayload struct {
	ID        string    `json:"id" validate:"required,max=128"`
	Text      string    `json:"text" validate:"max=20000"`
	CreatedAt time.Time `json:"created_at"`
}

type candidatePayload struct {
	ID          string `json:"id" validate:"required,max=128"`
	DisplayText string `json:"display_text" validate:"required,max=500"`
	Theme       string `json:"theme" validate:"required,max=64"`
	KeywordText string `json:"keyword_text" validate:"max=1000"`
}

type rankRequest struct {
	Documents   []documentPayload  `json:"documents" validate:"max=100,dive"`
	Candidates  []candidatePayload `json:"candidates" validate:"max=500,dive"`
	K           int                `json:"k" validate:"gte=0,lte=50"`
	MaxPerTheme int                `json:"max_per_theme" validate:"gte=0,lte=50"`
}

type rankResponse struct {
	Prompts []domain.ScoredCandidate `json:"prompts"`
}

// rankPrompts ranks supplied documents against supplied candidates, falling back to
// the catalog for candidates and to the user's recent documents when none are sent.
// A candidate pool without documents is rejected.
func (rt *Router) rankPrompts(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	if !rt.decodeAndValidate(w, r, &req) {
		return
	}
	opts := domain.RankOptions{K: req.K, MaxPerTheme: req.MaxPerTheme}

	var (
		out []domain.ScoredCandidate
		err error
	)
	switch {
	case len(req.Documents) > 0 && len(req.Candidates) > 0:
		out, err = rt.ranker.Rank(r.Context(), toDocuments(req.Documents), toCandidates(req.Candidates), opts)
	case len(req.Documents) > 0:
		out, err = rt.ranker.RankDocuments(r.Context(), toDocuments(req.Documents), opts)
	case len(req.Candidates) > 0:
		err = domain.WrapError(domain.ErrInvalidInput, "rank prompts", errors.New("documents are required when candidates are supplied"))
	default:
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		out, err = rt.ranker.RankForUser(r.Context(), userID, opts)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.ScoredCandidate{}
	}
	writeJSON(w, http.StatusOK, rankResponse{Prompts: out})
}

type artifactResponse struct {
	Type        domain.ArtifactType `json:"type"`
	Content     json.RawMessage     `json:"content"`
	FromCache   bool                `json:"from_cache"`
	GeneratedAt time.Time           `json:"generated_at"`
}

func (rt *Router) getArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, err := rt.artifacts.GetOrGenerate(r.Context(), userID, domain.ArtifactType(r.PathValue("type")), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArtifact(w, result)
}

func (rt *Router) refreshArtifact(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	result, err := rt.artifacts.Refresh(r.Context(), userID, domain.ArtifactType(r.PathValue("type")), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeArtifact(w, result)
}

func writeArtifact(w http.ResponseWriter, result *domain.ArtifactResult) {
	content := json.RawMessage(result.Content)
	if !json.Valid(content) {
		content, _ = json.Marshal(result.Content)
	}
	writeJSON(w, http.StatusOK, artifactResponse{
		Type:        result.Type,
		Content:     content,
		FromCache:   result.FromCache,
		GeneratedAt: result.GeneratedAt,
	})
}

type eventRequest struct {
	Event string `json:"event" validate:"required,oneof=document_created prompts_resolved manual_refresh"`
}

// recordEvent accepts a trigger and returns before any generation work starts.
func (rt *Router) recordEvent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req eventRequest
	if !rt.decodeAndValidate(w, r, &req) {
		return
	}
	rt.scheduler.MaybeTriggerBackgroundGeneration(r.Context(), userID, domain.TriggerEvent(req.Event))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) resolvePrompt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := rt.prompts.ResolvePrompt(r.Context(), userID, r.PathValue("prompt_id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type outstandingResponse struct {
	Prompts []domain.PromptAssignment `json:"prompts"`
}

func (rt *Router) listOutstanding(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	out, err := rt.prompts.ListOutstanding(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if out == nil {
		out = []domain.PromptAssignment{}
	}
	writeJSON(w, http.StatusOK, outstandingResponse{Prompts: out})
}

func (rt *Router) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json", RequestID: requestIDFromContext(r.Context())})
		return false
	}
	if err := rt.validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), RequestID: requestIDFromContext(r.Context())})
		return false
	}
	return true
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := strings.TrimSpace(r.Header.Get(userIDHeader))
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: userIDHeader + " header is required", RequestID: requestIDFromContext(r.Context())})
		return "", false
	}
	return userID, true
}

func toDocuments(in []documentPayload) []domain.Document {
	out := make([]domain.Document, 0, len(in))
	for _, d := range in {
		out = append(out, domain.Document{ID: d.ID, Text: d.Text, CreatedAt: d.CreatedAt})
	}
	return out
}

func toCandidates(in []candidatePayload) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Candidate{ID: c.ID, DisplayText: c.DisplayText, Theme: c.Theme, KeywordText: c.KeywordText})
	}
	return out
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	requestID := requestIDFromContext(r.Context())
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed", "request_id", requestID, "path", r.URL.Path, "status", status, "error", err.Error())
	}
	writeJSON(w, status, errorBody(err, status, requestID))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
