package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lexia-ai/lexia-gateway/internal/audit"
	"github.com/lexia-ai/lexia-gateway/internal/controller"
	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/orchestrator"
	"github.com/lexia-ai/lexia-gateway/internal/quota"
	"github.com/lexia-ai/lexia-gateway/internal/routing"
	"github.com/lexia-ai/lexia-gateway/internal/tokens"
	"github.com/lexia-ai/lexia-gateway/internal/tools"
)

// userIDHeader carries the authenticated user identity. Session
// resolution happens upstream of this service.
const userIDHeader = "X-User-ID"

// Handler wires the assist pipeline to HTTP.
type Handler struct {
	controller   *controller.Controller
	quota        *quota.Manager
	tools        *tools.Registry
	orchestrator *orchestrator.Orchestrator
	audit        *audit.Recorder
	counter      *tokens.Counter
	routes       *routing.Registry
	logger       *slog.Logger
}

// NewHandler assembles the pipeline handler.
func NewHandler(
	ctrl *controller.Controller,
	quotaMgr *quota.Manager,
	toolReg *tools.Registry,
	orch *orchestrator.Orchestrator,
	auditRec *audit.Recorder,
	counter *tokens.Counter,
	routes *routing.Registry,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		controller:   ctrl,
		quota:        quotaMgr,
		tools:        toolReg,
		orchestrator: orch,
		audit:        auditRec,
		counter:      counter,
		routes:       routes,
		logger:       logger,
	}
}

// Mount registers the routes.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/v1/assist", h.Assist)
	r.Get("/v1/models", h.Models)
	r.Get("/healthz", h.Health)
}

type assistRequest struct {
	Message string           `json:"message"`
	History []domain.Message `json:"history,omitempty"`
	CaseRef *domain.CaseRef  `json:"case_ref,omitempty"`
}

type metaEvent struct {
	TraceID         string  `json:"trace_id"`
	Intent          string  `json:"intent"`
	Confidence      float64 `json:"confidence"`
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	RequiresContext bool    `json:"requires_context"`
}

type doneEvent struct {
	Usage          *domain.Usage `json:"usage,omitempty"`
	TokensEstimate bool          `json:"tokens_estimated,omitempty"`
	CreditsCharged float64       `json:"credits_charged"`
}

// Assist runs the full pipeline: classify, check credits, enrich, build
// the prompt, stream the answer over SSE, then bill and audit.
func (h *Handler) Assist(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	ctx := r.Context()

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing "+userIDHeader+" header")
		return
	}

	var req assistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	d, err := h.controller.ProcessRequest(req.Message, req.CaseRef)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	AddLogField(ctx, "trace_id", d.TraceID)
	AddLogField(ctx, "intent", string(d.Classification.Intent))

	check, err := h.quota.CheckCredits(ctx, userID, d.Classification.Intent)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "quota check failed: "+err.Error())
		return
	}
	if !check.Allowed {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]any{
			"error":     "monthly credit limit reached",
			"remaining": check.Remaining,
			"limit":     check.Limit,
		})
		return
	}

	d, _ = h.controller.FinalizeDecision(ctx, d, req.CaseRef)

	toolset := h.tools.ForIntent(d.Classification.ToolsAllowed)
	defs := tools.Definitions(toolset)

	messages := append(append([]domain.Message{}, req.History...), domain.Message{Role: "user", Content: req.Message})

	events, executed, err := h.orchestrator.Stream(ctx, d, messages, defs)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}
	AddLogField(ctx, "model", executed.Config.Model)

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	writeSSE(w, flusher, "meta", metaEvent{
		TraceID:         executed.TraceID,
		Intent:          string(executed.Classification.Intent),
		Confidence:      executed.Classification.Confidence,
		Provider:        executed.Config.Provider,
		Model:           executed.Config.Model,
		RequiresContext: executed.Classification.RequiresContext,
	})

	var (
		usage        *domain.Usage
		toolsInvoked []string
		calls        = newToolCallBuffer()
	)

	for ev := range events {
		if ev.Error != nil {
			writeSSE(w, flusher, "error", map[string]string{"message": ev.Error.Error()})
			break
		}
		if ev.ContentDelta != "" {
			writeSSE(w, flusher, "delta", map[string]string{"text": ev.ContentDelta})
		}
		if ev.ToolCall != nil {
			calls.add(ev.ToolCall)
			writeSSE(w, flusher, "tool_call", ev.ToolCall)
		}
		if ev.Usage != nil {
			usage = ev.Usage
		}
	}

	// Deterministic tools run here, after the model has finished
	// requesting them; their results go to the client directly.
	for _, call := range calls.completed() {
		toolsInvoked = append(toolsInvoked, call.Name)
		tool, found := h.tools.Lookup(call.Name)
		if !found {
			continue
		}
		dt, deterministic := tool.(*tools.DeterministicTool)
		if !deterministic {
			continue
		}
		result, runErr := dt.Run(ctx, json.RawMessage(call.Arguments))
		if runErr != nil {
			writeSSE(w, flusher, "tool_result", map[string]any{"id": call.ID, "name": call.Name, "error": runErr.Error()})
			continue
		}
		writeSSE(w, flusher, "tool_result", map[string]any{"id": call.ID, "name": call.Name, "result": result})
	}

	tokensUsed, estimated := h.resolveTokens(usage, executed, messages, defs)

	writeSSE(w, flusher, "done", doneEvent{
		Usage:          usage,
		TokensEstimate: estimated,
		CreditsCharged: quota.CreditCost(executed.Classification.Intent),
	})

	// Billing and audit must survive client disconnects, so they run
	// detached from the request context.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := h.quota.RecordUsage(recordCtx, userID, executed.TraceID, executed.Classification.Intent, tokensUsed); err != nil {
		h.logger.Error("failed to record usage",
			slog.String("trace_id", executed.TraceID),
			slog.String("error", err.Error()),
		)
	}

	caseID := ""
	if req.CaseRef != nil {
		caseID = req.CaseRef.CaseID
	}
	h.audit.Record(recordCtx, executed, userID, caseID, len(messages), tokensUsed, started, toolsInvoked)
}

// resolveTokens prefers provider-reported usage and falls back to
// counting the prompt locally.
func (h *Handler) resolveTokens(usage *domain.Usage, d domain.Decision, messages []domain.Message, defs []domain.ToolDefinition) (int, bool) {
	if usage != nil {
		return usage.TotalTokens, false
	}
	count, exact := h.counter.CountRequest(&domain.StreamRequest{
		Model:        d.Config.Model,
		SystemPrompt: d.Config.SystemPrompt,
		Messages:     messages,
		Tools:        defs,
	})
	return count, !exact
}

// Models lists the routable model catalog.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	descriptors := h.routes.Descriptors()

	keys := make([]string, 0, len(descriptors))
	for k := range descriptors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type modelInfo struct {
		Key         string   `json:"key"`
		Provider    string   `json:"provider"`
		Model       string   `json:"model"`
		DisplayName string   `json:"display_name"`
		MaxTokens   int      `json:"max_tokens"`
		Strengths   []string `json:"strengths,omitempty"`
	}

	out := make([]modelInfo, 0, len(keys))
	for _, k := range keys {
		desc := descriptors[k]
		out = append(out, modelInfo{
			Key:         k,
			Provider:    desc.Provider,
			Model:       desc.Model,
			DisplayName: desc.DisplayName,
			MaxTokens:   desc.MaxTokens,
			Strengths:   desc.Strengths,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"models": out})
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// toolCallBuffer reassembles tool calls from argument fragments.
type toolCallBuffer struct {
	order []string
	byID  map[string]*domain.ToolCallChunk
}

func newToolCallBuffer() *toolCallBuffer {
	return &toolCallBuffer{byID: make(map[string]*domain.ToolCallChunk)}
}

func (b *toolCallBuffer) add(chunk *domain.ToolCallChunk) {
	id := chunk.ID
	if id == "" && len(b.order) > 0 {
		// Argument fragments without an ID belong to the last call.
		id = b.order[len(b.order)-1]
	}
	if id == "" {
		id = "call-" + strconv.Itoa(len(b.order))
	}

	call, ok := b.byID[id]
	if !ok {
		call = &domain.ToolCallChunk{ID: id}
		b.byID[id] = call
		b.order = append(b.order, id)
	}
	if chunk.Name != "" {
		call.Name = chunk.Name
	}
	call.Arguments += chunk.Arguments
}

func (b *toolCallBuffer) completed() []*domain.ToolCallChunk {
	out := make([]*domain.ToolCallChunk, 0, len(b.order))
	for _, id := range b.order {
		if call := b.byID[id]; call.Name != "" {
			out = append(out, call)
		}
	}
	return out
}
