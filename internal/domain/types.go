package domain

import "time"

// Intent is the classified purpose of a user message. The set is closed;
// the classifier never produces values outside it.
type Intent string

const (
	IntentLegalAnalysis    Intent = "legal_analysis"
	IntentDocumentDrafting Intent = "document_drafting"
	IntentProceduralQuery  Intent = "procedural_query"
	IntentDocumentSummary  Intent = "document_summary"
	IntentCaseQuery        Intent = "case_query"
	IntentGeneralChat      Intent = "general_chat"
	IntentUnknown          Intent = "unknown"
)

// Intents lists every member of the closed enumeration.
func Intents() []Intent {
	return []Intent{
		IntentLegalAnalysis,
		IntentDocumentDrafting,
		IntentProceduralQuery,
		IntentDocumentSummary,
		IntentCaseQuery,
		IntentGeneralChat,
		IntentUnknown,
	}
}

// Message represents a chat message supplied by the caller.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ToolDefinition describes a tool exposed to the model.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"` // JSON Schema
}

// Usage represents token usage reported by a provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolCallChunk represents a partial tool invocation emitted mid-stream.
type ToolCallChunk struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// StreamEvent is a single event on a model response stream.
type StreamEvent struct {
	Role         string         // e.g. "assistant", set on the first event
	ContentDelta string         // text fragment
	ToolCall     *ToolCallChunk // partial tool invocation
	Usage        *Usage         // final event often carries token counts
	Error        error          // in-stream errors
}

// StreamRequest is the provider-facing call description. The wire model
// string and sampling parameters come from a finalized Decision.
type StreamRequest struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	Temperature  float32
	MaxTokens    int
}

// IntentClassification is the routing outcome for a classified message.
// Values are never mutated after creation; fallback substitution yields a
// fresh value via Decision.WithModel.
type IntentClassification struct {
	Intent          Intent
	Confidence      float64
	Provider        string
	Model           string // registry key, not the wire model string
	RequiresContext bool
	ToolsAllowed    []string
}

// ServiceConfig carries the concrete call parameters for one request.
// SystemPrompt is filled in during decision finalization and is empty
// before that.
type ServiceConfig struct {
	Provider     string
	Model        string // wire model string
	Temperature  float32
	MaxTokens    int
	SystemPrompt string
}

// Decision is the single unit of work handed from the controller to the
// streaming orchestrator. Treat it as immutable: WithSystemPrompt and
// WithModel return copies.
type Decision struct {
	Classification IntentClassification
	Config         ServiceConfig
	EnrichContext  bool
	TraceID        string
}

// WithSystemPrompt returns a copy of the decision with the system prompt set.
func (d Decision) WithSystemPrompt(prompt string) Decision {
	d.Config.SystemPrompt = prompt
	return d
}

// WithModel returns a copy of the decision pointed at a different model.
// Temperature and system prompt carry over unchanged; only identity and
// capacity change, which is exactly what fallback substitution needs.
func (d Decision) WithModel(provider, model string, maxTokens int) Decision {
	d.Config.Provider = provider
	d.Config.Model = model
	d.Config.MaxTokens = maxTokens
	return d
}

// CaseRef is the minimal case reference supplied by the caller.
type CaseRef struct {
	CaseID     string `json:"case_id"`
	CaseNumber string `json:"case_number"`
	Title      string `json:"title"`
	Type       string `json:"type"`
}

// Deadline is an upcoming dated obligation attached to a case.
type Deadline struct {
	Title string    `json:"title"`
	DueAt time.Time `json:"due_at"`
}

// Task is a unit of work attached to a case.
type Task struct {
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Note is a free-text annotation attached to a case.
type Note struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CaseContext is the enriched case snapshot used to ground a prompt.
// It is built fresh per request and discarded after prompt assembly.
type CaseContext struct {
	CaseRef
	Status      string
	Description string
	CompanyName string
	Deadlines   []Deadline
	Tasks       []Task
	Notes       []Note
}

// AuditEntry records one completed request. Write-once, append-only.
type AuditEntry struct {
	TraceID      string    `json:"trace_id"`
	UserID       string    `json:"user_id"`
	Timestamp    time.Time `json:"timestamp"`
	Intent       Intent    `json:"intent"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	CaseID       string    `json:"case_id,omitempty"`
	MessageCount int       `json:"message_count"`
	TokensUsed   int       `json:"tokens_used"`
	DurationMs   int64     `json:"duration_ms"`
	ToolsInvoked []string  `json:"tools_invoked,omitempty"`
}

// UsagePeriod is one user's consumption for one calendar month.
type UsagePeriod struct {
	UserID      string
	PeriodStart time.Time // first day of the month, UTC midnight
	CreditsUsed float64
	TokensUsed  int
}

// Plan describes a subscription tier's monthly credit allowance.
type Plan struct {
	Slug            string
	CreditsPerMonth float64
}

// CreditCheck is the outcome of a quota check.
type CreditCheck struct {
	Allowed   bool
	Remaining float64
	Limit     float64
}
