// Package anthropic streams messages from the Anthropic API.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"

	// Anthropic requires max_tokens; used when the request leaves it 0.
	defaultMaxTokens = 1024
)

// Option configures the provider.
type Option func(*Provider)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) {
		p.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = httpClient
	}
}

// Provider implements domain.Provider against the Anthropic messages
// endpoint.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ domain.Provider = (*Provider)(nil)

// New creates an Anthropic provider.
func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string {
	return "anthropic"
}

// Wire types. Only the fields this gateway uses.

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	Tools       []tool    `json:"tools,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type messageStartEvent struct {
	Message struct {
		Role  string `json:"role"`
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
}

type contentBlockStartEvent struct {
	ContentBlock struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
}

type contentBlockDeltaEvent struct {
	Delta struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
}

type messageDeltaEvent struct {
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Stream opens a streaming messages request. The returned channel is
// closed after message_stop; in-stream failures arrive as error events.
func (p *Provider) Stream(ctx context.Context, req *domain.StreamRequest) (<-chan domain.StreamEvent, error) {
	body, err := json.Marshal(toMessagesRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			return nil, fmt.Errorf("anthropic: %s (%s)", ae.Error.Message, ae.Error.Type)
		}
		return nil, fmt.Errorf("anthropic: status %d: %s", resp.StatusCode, string(respBody))
	}

	out := make(chan domain.StreamEvent)
	go p.streamReader(resp.Body, out)
	return out, nil
}

func toMessagesRequest(req *domain.StreamRequest) *messagesRequest {
	out := &messagesRequest{
		Model:     req.Model,
		System:    req.SystemPrompt,
		MaxTokens: req.MaxTokens,
		Stream:    true,
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, message{Role: m.Role, Content: m.Content})
	}
	for _, t := range req.Tools {
		out.Tools = append(out.Tools, tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}
	return out
}

func (p *Provider) streamReader(body io.ReadCloser, out chan<- domain.StreamEvent) {
	defer close(out)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var (
		currentEvent string
		inputTokens  int
		outputTokens int

		// Tool identity from content_block_start; argument fragments
		// arrive separately as input_json_delta.
		toolID   string
		toolName string
	)

	emitErr := func(err error) {
		out <- domain.StreamEvent{Error: err}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "event: ") {
			currentEvent = strings.TrimPrefix(line, "event: ")
			continue
		}
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := []byte(strings.TrimPrefix(line, "data: "))

		switch currentEvent {
		case "message_start":
			var ev messageStartEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				emitErr(fmt.Errorf("parse message_start: %w", err))
				return
			}
			inputTokens = ev.Message.Usage.InputTokens
			out <- domain.StreamEvent{Role: ev.Message.Role}

		case "content_block_start":
			var ev contentBlockStartEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				emitErr(fmt.Errorf("parse content_block_start: %w", err))
				return
			}
			if ev.ContentBlock.Type == "tool_use" {
				toolID = ev.ContentBlock.ID
				toolName = ev.ContentBlock.Name
				out <- domain.StreamEvent{ToolCall: &domain.ToolCallChunk{ID: toolID, Name: toolName}}
			}

		case "content_block_delta":
			var ev contentBlockDeltaEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				emitErr(fmt.Errorf("parse content_block_delta: %w", err))
				return
			}
			switch ev.Delta.Type {
			case "text_delta":
				out <- domain.StreamEvent{ContentDelta: ev.Delta.Text}
			case "input_json_delta":
				out <- domain.StreamEvent{ToolCall: &domain.ToolCallChunk{ID: toolID, Arguments: ev.Delta.PartialJSON}}
			}

		case "content_block_stop":
			toolID, toolName = "", ""

		case "message_delta":
			var ev messageDeltaEvent
			if err := json.Unmarshal(data, &ev); err != nil {
				emitErr(fmt.Errorf("parse message_delta: %w", err))
				return
			}
			if ev.Usage != nil {
				outputTokens = ev.Usage.OutputTokens
			}

		case "message_stop":
			if inputTokens > 0 || outputTokens > 0 {
				out <- domain.StreamEvent{Usage: &domain.Usage{
					PromptTokens:     inputTokens,
					CompletionTokens: outputTokens,
					TotalTokens:      inputTokens + outputTokens,
				}}
			}
			return

		case "error":
			var ae apiError
			if err := json.Unmarshal(data, &ae); err == nil && ae.Error.Message != "" {
				emitErr(fmt.Errorf("anthropic: %s (%s)", ae.Error.Message, ae.Error.Type))
			} else {
				emitErr(fmt.Errorf("anthropic: stream error: %s", string(data)))
			}
			return
		}
	}

	if err := scanner.Err(); err != nil {
		emitErr(fmt.Errorf("stream read error: %w", err))
	}
}
