// Package routing holds the static model capability tables and the
// intent-to-execution-rule mappings. The tables are built once at process
// start and never mutated, so they need no synchronization.
package routing

import (
	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// ModelDescriptor describes one routable model. Keyed in the registry by
// a short name distinct from the wire model string.
type ModelDescriptor struct {
	Provider           string
	Model              string // wire model string sent to the provider
	DisplayName        string
	MaxTokens          int
	DefaultTemperature float32
	CostPer1KTokens    float64
	Strengths          []string
}

// Ref returns the "<provider>/<model>" token understood by ResolveModel.
func (d ModelDescriptor) Ref() string {
	return d.Provider + "/" + d.Model
}

// Rule maps an intent to its execution policy. FallbackModel may be empty
// when there is nothing safe to retry with.
type Rule struct {
	Intent        domain.Intent
	PrimaryModel  string // registry key
	FallbackModel string // registry key, optional
	Temperature   float32
	MaxTokens     int
	ToolsAllowed  []string
}

// Registry is the immutable routing configuration.
type Registry struct {
	models map[string]ModelDescriptor
	rules  map[domain.Intent]Rule
}

// NewRegistry builds the default routing tables.
func NewRegistry() *Registry {
	return &Registry{
		models: map[string]ModelDescriptor{
			"gpt4-turbo": {
				Provider:           "openai",
				Model:              "gpt-4-turbo",
				DisplayName:        "GPT-4 Turbo",
				MaxTokens:          4096,
				DefaultTemperature: 0.3,
				CostPer1KTokens:    0.01,
				Strengths:          []string{"procedural reasoning", "structured output"},
			},
			"gpt4o": {
				Provider:           "openai",
				Model:              "gpt-4o",
				DisplayName:        "GPT-4o",
				MaxTokens:          4096,
				DefaultTemperature: 0.3,
				CostPer1KTokens:    0.005,
				Strengths:          []string{"summarization", "speed"},
			},
			"gpt4o-mini": {
				Provider:           "openai",
				Model:              "gpt-4o-mini",
				DisplayName:        "GPT-4o mini",
				MaxTokens:          2048,
				DefaultTemperature: 0.5,
				CostPer1KTokens:    0.0006,
				Strengths:          []string{"chat", "low latency"},
			},
			"claude-sonnet": {
				Provider:           "anthropic",
				Model:              "claude-3-5-sonnet-20241022",
				DisplayName:        "Claude 3.5 Sonnet",
				MaxTokens:          8192,
				DefaultTemperature: 0.3,
				CostPer1KTokens:    0.009,
				Strengths:          []string{"legal analysis", "long-form drafting"},
			},
			"claude-haiku": {
				Provider:           "anthropic",
				Model:              "claude-3-5-haiku-20241022",
				DisplayName:        "Claude 3.5 Haiku",
				MaxTokens:          4096,
				DefaultTemperature: 0.3,
				CostPer1KTokens:    0.0024,
				Strengths:          []string{"summarization", "speed"},
			},
		},
		rules: map[domain.Intent]Rule{
			domain.IntentLegalAnalysis: {
				Intent:        domain.IntentLegalAnalysis,
				PrimaryModel:  "claude-sonnet",
				FallbackModel: "gpt4-turbo",
				Temperature:   0.2,
				MaxTokens:     4096,
				ToolsAllowed:  []string{"proceduralChecklist"},
			},
			domain.IntentDocumentDrafting: {
				Intent:        domain.IntentDocumentDrafting,
				PrimaryModel:  "claude-sonnet",
				FallbackModel: "gpt4o",
				Temperature:   0.4,
				MaxTokens:     4096,
				ToolsAllowed:  []string{"draftDocument"},
			},
			domain.IntentProceduralQuery: {
				Intent:        domain.IntentProceduralQuery,
				PrimaryModel:  "gpt4-turbo",
				FallbackModel: "claude-haiku",
				Temperature:   0.1,
				MaxTokens:     2048,
				ToolsAllowed:  []string{"calculateDeadline"},
			},
			domain.IntentDocumentSummary: {
				Intent:        domain.IntentDocumentSummary,
				PrimaryModel:  "gpt4o",
				FallbackModel: "claude-haiku",
				Temperature:   0.2,
				MaxTokens:     2048,
				ToolsAllowed:  []string{"summarizeDocument"},
			},
			domain.IntentCaseQuery: {
				Intent:        domain.IntentCaseQuery,
				PrimaryModel:  "gpt4o-mini",
				FallbackModel: "claude-haiku",
				Temperature:   0.1,
				MaxTokens:     1024,
				ToolsAllowed:  []string{"queryCaseInfo"},
			},
			domain.IntentGeneralChat: {
				Intent:        domain.IntentGeneralChat,
				PrimaryModel:  "gpt4o-mini",
				FallbackModel: "claude-haiku",
				Temperature:   0.7,
				MaxTokens:     1024,
			},
			domain.IntentUnknown: {
				Intent:       domain.IntentUnknown,
				PrimaryModel: "gpt4o-mini",
				Temperature:  0.5,
				MaxTokens:    1024,
			},
		},
	}
}

// RuleFor returns the routing rule for an intent, falling back to the
// unknown rule. The unknown rule is guaranteed present, so this never
// fails.
func (r *Registry) RuleFor(intent domain.Intent) Rule {
	if rule, ok := r.rules[intent]; ok {
		return rule
	}
	return r.rules[domain.IntentUnknown]
}

// Descriptor looks up a model descriptor by registry key. A missing key is
// a configuration defect, not a runtime condition.
func (r *Registry) Descriptor(key string) (ModelDescriptor, error) {
	desc, ok := r.models[key]
	if !ok {
		return ModelDescriptor{}, domain.NewConfigError("routing", key, "no model descriptor for registry key")
	}
	return desc, nil
}

// Descriptors returns all registered model descriptors keyed by registry
// name. The returned map is a copy.
func (r *Registry) Descriptors() map[string]ModelDescriptor {
	out := make(map[string]ModelDescriptor, len(r.models))
	for k, v := range r.models {
		out[k] = v
	}
	return out
}

// contextBoundIntents are meaningless without case grounding and require
// enrichment even when the caller did not supply a case reference.
var contextBoundIntents = map[domain.Intent]bool{
	domain.IntentLegalAnalysis: true,
	domain.IntentCaseQuery:     true,
}

// ResolveIntentRouting maps a classified intent to a full
// IntentClassification. It never fails for intents in the closed
// enumeration; an error here means a rule references a model key with no
// descriptor, which is a deployment defect.
func (r *Registry) ResolveIntentRouting(intent domain.Intent, confidence float64, hasCaseContext bool) (domain.IntentClassification, error) {
	rule := r.RuleFor(intent)

	desc, err := r.Descriptor(rule.PrimaryModel)
	if err != nil {
		return domain.IntentClassification{}, err
	}

	return domain.IntentClassification{
		Intent:          intent,
		Confidence:      confidence,
		Provider:        desc.Provider,
		Model:           rule.PrimaryModel,
		RequiresContext: hasCaseContext || contextBoundIntents[intent],
		ToolsAllowed:    rule.ToolsAllowed,
	}, nil
}
