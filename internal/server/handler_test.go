package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lexia-ai/lexia-gateway/internal/audit"
	"github.com/lexia-ai/lexia-gateway/internal/casectx"
	"github.com/lexia-ai/lexia-gateway/internal/controller"
	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/orchestrator"
	"github.com/lexia-ai/lexia-gateway/internal/quota"
	"github.com/lexia-ai/lexia-gateway/internal/routing"
	"github.com/lexia-ai/lexia-gateway/internal/storage/memory"
	"github.com/lexia-ai/lexia-gateway/internal/tokens"
	"github.com/lexia-ai/lexia-gateway/internal/tools"
)

type stubProvider struct {
	name   string
	fail   bool
	events []domain.StreamEvent
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Stream(ctx context.Context, req *domain.StreamRequest) (<-chan domain.StreamEvent, error) {
	if p.fail {
		return nil, errors.New("upstream unavailable")
	}
	ch := make(chan domain.StreamEvent, len(p.events))
	for _, ev := range p.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

func newTestRouter(store *memory.Store, providers map[string]domain.Provider) *chi.Mux {
	routes := routing.NewRegistry()
	ctrl := controller.New(routes, casectx.NewEnricher(store, nil), nil)

	h := NewHandler(
		ctrl,
		quota.NewManager(store, nil),
		tools.NewRegistry(store),
		orchestrator.New(providers, routes, nil),
		audit.NewRecorder(store, nil),
		tokens.NewCounter(),
		routes,
		nil,
	)

	r := chi.NewRouter()
	h.Mount(r)
	return r
}

func defaultProviders() map[string]domain.Provider {
	chat := []domain.StreamEvent{
		{Role: "assistant"},
		{ContentDelta: "Hola, "},
		{ContentDelta: "¿en qué puedo ayudarte?"},
		{Usage: &domain.Usage{PromptTokens: 10, CompletionTokens: 8, TotalTokens: 18}},
	}
	return map[string]domain.Provider{
		"openai":    &stubProvider{name: "openai", events: chat},
		"anthropic": &stubProvider{name: "anthropic", events: chat},
	}
}

func postAssist(t *testing.T, r http.Handler, userID, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/assist", strings.NewReader(body))
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAssist_StreamsAndBills(t *testing.T) {
	store := memory.New()
	r := newTestRouter(store, defaultProviders())

	w := postAssist(t, r, "u1", `{"message": "hola, buenos días"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "event: meta") {
		t.Error("missing meta event")
	}
	if !strings.Contains(body, `"intent":"general_chat"`) {
		t.Errorf("meta must report general_chat: %s", body)
	}
	if !strings.Contains(body, "¿en qué puedo ayudarte?") {
		t.Error("missing content deltas")
	}
	if !strings.Contains(body, "event: done") {
		t.Error("missing done event")
	}
	if !strings.Contains(body, `"credits_charged":0.5`) {
		t.Errorf("done must carry the chat credit cost: %s", body)
	}

	// One chat request charges half a credit against the default plan.
	check, err := quota.NewManager(store, nil).CheckCredits(context.Background(), "u1", domain.IntentGeneralChat)
	if err != nil {
		t.Fatalf("CheckCredits failed: %v", err)
	}
	if check.Remaining != quota.DefaultPlan.CreditsPerMonth-0.5 {
		t.Errorf("remaining = %v, want %v", check.Remaining, quota.DefaultPlan.CreditsPerMonth-0.5)
	}

	entries := store.AuditEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].TokensUsed != 18 {
		t.Errorf("audited tokens = %d, want provider-reported 18", entries[0].TokensUsed)
	}
}

func TestAssist_DeniedWhenOutOfCredits(t *testing.T) {
	store := memory.New()
	store.PutPlan("u1", domain.Plan{Slug: "starter", CreditsPerMonth: 1})
	r := newTestRouter(store, defaultProviders())

	// legal_analysis costs 3 credits.
	w := postAssist(t, r, "u1", `{"message": "Analiza la jurisprudencia aplicable"}`)

	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
	if !strings.Contains(w.Body.String(), "credit limit") {
		t.Errorf("body = %s", w.Body.String())
	}
	if len(store.AuditEntries()) != 0 {
		t.Error("denied request must not be audited")
	}
}

func TestAssist_RequestValidation(t *testing.T) {
	r := newTestRouter(memory.New(), defaultProviders())

	if w := postAssist(t, r, "", `{"message": "hola"}`); w.Code != http.StatusBadRequest {
		t.Errorf("missing user header: status = %d, want 400", w.Code)
	}
	if w := postAssist(t, r, "u1", `{}`); w.Code != http.StatusBadRequest {
		t.Errorf("empty message: status = %d, want 400", w.Code)
	}
	if w := postAssist(t, r, "u1", `{bad json`); w.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d, want 400", w.Code)
	}
}

func TestAssist_FallbackModelInMeta(t *testing.T) {
	providers := defaultProviders()
	providers["openai"] = &stubProvider{name: "openai", fail: true}
	store := memory.New()
	r := newTestRouter(store, providers)

	// procedural_query routes to openai primary, anthropic fallback.
	w := postAssist(t, r, "u1", `{"message": "¿Cuántos días tengo para apelar?"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"model":"claude-3-5-haiku-20241022"`) {
		t.Errorf("meta must report the fallback model: %s", body)
	}

	// Billing reflects the executed decision.
	entries := store.AuditEntries()
	if len(entries) != 1 || entries[0].Provider != "anthropic" {
		t.Errorf("audit must record the fallback provider, got %+v", entries)
	}
}

func TestAssist_BothProvidersDown(t *testing.T) {
	providers := map[string]domain.Provider{
		"openai":    &stubProvider{name: "openai", fail: true},
		"anthropic": &stubProvider{name: "anthropic", fail: true},
	}
	r := newTestRouter(memory.New(), providers)

	w := postAssist(t, r, "u1", `{"message": "¿Cuántos días tengo para apelar?"}`)
	if w.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", w.Code)
	}
}

func TestModels(t *testing.T) {
	r := newTestRouter(memory.New(), defaultProviders())

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, key := range []string{"gpt4-turbo", "gpt4o", "gpt4o-mini", "claude-sonnet", "claude-haiku"} {
		if !strings.Contains(body, key) {
			t.Errorf("missing model key %s", key)
		}
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(memory.New(), defaultProviders())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}
