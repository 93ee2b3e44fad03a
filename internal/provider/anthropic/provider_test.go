package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

func sseServer(t *testing.T, onRequest func(*messagesRequest), events ...[2]string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("unexpected x-api-key header %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got == "" {
			t.Error("missing anthropic-version header")
		}

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if onRequest != nil {
			onRequest(&req)
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range events {
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev[0], ev[1])
		}
	}))
}

func TestProvider_Stream(t *testing.T) {
	var captured *messagesRequest
	srv := sseServer(t, func(req *messagesRequest) { captured = req },
		[2]string{"message_start", `{"message":{"role":"assistant","usage":{"input_tokens":15}}}`},
		[2]string{"content_block_start", `{"content_block":{"type":"text"}}`},
		[2]string{"content_block_delta", `{"delta":{"type":"text_delta","text":"La demanda"}}`},
		[2]string{"content_block_delta", `{"delta":{"type":"text_delta","text":" es viable."}}`},
		[2]string{"content_block_stop", `{}`},
		[2]string{"message_delta", `{"usage":{"output_tokens":8}}`},
		[2]string{"message_stop", `{}`},
	)
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	stream, err := p.Stream(context.Background(), &domain.StreamRequest{
		Model:        "claude-3-5-sonnet-20241022",
		SystemPrompt: "Eres un asistente legal.",
		Messages:     []domain.Message{{Role: "user", Content: "Analiza la demanda"}},
		Temperature:  0.2,
		MaxTokens:    4096,
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var role, content string
	var usage *domain.Usage
	for ev := range stream {
		if ev.Error != nil {
			t.Fatalf("stream event error: %v", ev.Error)
		}
		if ev.Role != "" {
			role = ev.Role
		}
		content += ev.ContentDelta
		if ev.Usage != nil {
			usage = ev.Usage
		}
	}

	if role != "assistant" {
		t.Errorf("role = %q", role)
	}
	if content != "La demanda es viable." {
		t.Errorf("content = %q", content)
	}
	if usage == nil || usage.PromptTokens != 15 || usage.CompletionTokens != 8 {
		t.Errorf("usage = %+v, want 15/8", usage)
	}

	// System prompt travels as the top-level system field, not a message.
	if captured.System != "Eres un asistente legal." {
		t.Errorf("wire system = %q", captured.System)
	}
	if len(captured.Messages) != 1 {
		t.Errorf("wire messages = %+v", captured.Messages)
	}
	if captured.MaxTokens != 4096 {
		t.Errorf("wire max_tokens = %d", captured.MaxTokens)
	}
}

func TestProvider_StreamToolUse(t *testing.T) {
	srv := sseServer(t, nil,
		[2]string{"message_start", `{"message":{"role":"assistant","usage":{"input_tokens":10}}}`},
		[2]string{"content_block_start", `{"content_block":{"type":"tool_use","id":"toolu_1","name":"queryCaseInfo"}}`},
		[2]string{"content_block_delta", `{"delta":{"type":"input_json_delta","partial_json":"{\"case_id\":"}}`},
		[2]string{"content_block_delta", `{"delta":{"type":"input_json_delta","partial_json":"\"case-1\"}"}}`},
		[2]string{"content_block_stop", `{}`},
		[2]string{"message_stop", `{}`},
	)
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	stream, err := p.Stream(context.Background(), &domain.StreamRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []domain.Message{{Role: "user", Content: "estado del caso"}},
		Tools:    []domain.ToolDefinition{{Name: "queryCaseInfo", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var name, args string
	for ev := range stream {
		if ev.Error != nil {
			t.Fatalf("stream event error: %v", ev.Error)
		}
		if ev.ToolCall != nil {
			name += ev.ToolCall.Name
			args += ev.ToolCall.Arguments
		}
	}
	if name != "queryCaseInfo" {
		t.Errorf("tool name = %q", name)
	}
	if args != `{"case_id":"case-1"}` {
		t.Errorf("tool args = %q", args)
	}
}

func TestProvider_MaxTokensDefaulted(t *testing.T) {
	var captured *messagesRequest
	srv := sseServer(t, func(req *messagesRequest) { captured = req },
		[2]string{"message_stop", `{}`},
	)
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	stream, err := p.Stream(context.Background(), &domain.StreamRequest{
		Model:    "claude-3-5-haiku-20241022",
		Messages: []domain.Message{{Role: "user", Content: "hola"}},
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	for range stream {
	}

	if captured.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", captured.MaxTokens, defaultMaxTokens)
	}
}

func TestProvider_StreamAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"Rate limit exceeded"}}`)
	}))
	defer srv.Close()

	p := New("test-key", WithBaseURL(srv.URL))

	_, err := p.Stream(context.Background(), &domain.StreamRequest{
		Model:    "claude-3-5-sonnet-20241022",
		Messages: []domain.Message{{Role: "user", Content: "hola"}},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "Rate limit exceeded") {
		t.Errorf("error must carry the API message, got %v", err)
	}
}
