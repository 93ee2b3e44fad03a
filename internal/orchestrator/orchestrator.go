// Package orchestrator opens the model stream for a finalized decision
// and handles provider failure at stream construction. If the primary
// model cannot produce a stream at all, the routing rule's fallback model
// is tried once. Failures after the stream has started are delivered
// in-band as error events; a half-delivered answer is never silently
// restarted on a different model.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/routing"
)

// Orchestrator dispatches decisions to providers.
type Orchestrator struct {
	providers map[string]domain.Provider
	routes    *routing.Registry
	logger    *slog.Logger
}

// New creates an orchestrator over the given provider set and routing
// tables.
func New(providers map[string]domain.Provider, routes *routing.Registry, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{providers: providers, routes: routes, logger: logger}
}

// Stream opens the response stream for a decision. It returns the event
// channel together with the decision actually executed, which differs
// from the input only when the fallback model was substituted. Callers
// must bill and audit against the returned decision.
func (o *Orchestrator) Stream(ctx context.Context, d domain.Decision, messages []domain.Message, tools []domain.ToolDefinition) (<-chan domain.StreamEvent, domain.Decision, error) {
	events, err := o.open(ctx, d, messages, tools)
	if err == nil {
		return events, d, nil
	}

	// The caller walked away; retrying on their behalf is wasted work.
	if ctx.Err() != nil {
		return nil, d, err
	}

	fallback, ok := o.fallbackDecision(d)
	if !ok {
		return nil, d, err
	}

	o.logger.Warn("primary model unavailable, using fallback",
		slog.String("trace_id", d.TraceID),
		slog.String("primary", d.Config.Provider+"/"+d.Config.Model),
		slog.String("fallback", fallback.Config.Provider+"/"+fallback.Config.Model),
		slog.String("error", err.Error()),
	)

	events, fbErr := o.open(ctx, fallback, messages, tools)
	if fbErr != nil {
		return nil, d, fmt.Errorf("fallback %s also failed: %w (primary: %v)",
			fallback.Config.Model, fbErr, err)
	}
	return events, fallback, nil
}

func (o *Orchestrator) open(ctx context.Context, d domain.Decision, messages []domain.Message, tools []domain.ToolDefinition) (<-chan domain.StreamEvent, error) {
	provider, ok := o.providers[d.Config.Provider]
	if !ok {
		return nil, domain.NewConfigError("orchestrator", d.Config.Provider, "no provider registered")
	}

	return provider.Stream(ctx, &domain.StreamRequest{
		Model:        d.Config.Model,
		SystemPrompt: d.Config.SystemPrompt,
		Messages:     messages,
		Tools:        tools,
		Temperature:  d.Config.Temperature,
		MaxTokens:    d.Config.MaxTokens,
	})
}

// fallbackDecision derives the fallback variant of d from its intent's
// routing rule. ok is false when the rule names no fallback.
func (o *Orchestrator) fallbackDecision(d domain.Decision) (domain.Decision, bool) {
	rule := o.routes.RuleFor(d.Classification.Intent)
	if rule.FallbackModel == "" {
		return domain.Decision{}, false
	}

	desc, err := o.routes.Descriptor(rule.FallbackModel)
	if err != nil {
		o.logger.Error("fallback model misconfigured",
			slog.String("key", rule.FallbackModel),
			slog.String("error", err.Error()),
		)
		return domain.Decision{}, false
	}

	maxTokens := rule.MaxTokens
	if maxTokens > desc.MaxTokens {
		maxTokens = desc.MaxTokens
	}
	return d.WithModel(desc.Provider, desc.Model, maxTokens), true
}
