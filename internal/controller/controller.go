// Package controller turns an incoming message into an executable
// Decision in two phases. ProcessRequest is cheap and synchronous:
// classify, route, stamp a trace. FinalizeDecision does the work that
// touches storage: context enrichment and system prompt assembly. The
// split lets the quota check run between the two phases, before any
// storage or provider cost is incurred.
package controller

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lexia-ai/lexia-gateway/internal/casectx"
	"github.com/lexia-ai/lexia-gateway/internal/classifier"
	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/prompt"
	"github.com/lexia-ai/lexia-gateway/internal/routing"
)

// Controller resolves requests into decisions.
type Controller struct {
	routes   *routing.Registry
	enricher *casectx.Enricher
	logger   *slog.Logger
}

// New creates a controller over the given routing tables and enricher.
func New(routes *routing.Registry, enricher *casectx.Enricher, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{routes: routes, enricher: enricher, logger: logger}
}

// ProcessRequest classifies the message and routes it to a model. The
// returned decision carries an empty system prompt; FinalizeDecision
// fills it in. The only error path is a routing table that references a
// missing model descriptor.
func (c *Controller) ProcessRequest(message string, caseRef *domain.CaseRef) (domain.Decision, error) {
	hasCase := caseRef != nil && caseRef.CaseID != ""

	intent, confidence := classifier.Classify(message, hasCase)

	classification, err := c.routes.ResolveIntentRouting(intent, confidence, hasCase)
	if err != nil {
		return domain.Decision{}, err
	}

	desc, err := c.routes.Descriptor(classification.Model)
	if err != nil {
		return domain.Decision{}, err
	}
	rule := c.routes.RuleFor(intent)

	d := domain.Decision{
		Classification: classification,
		Config: domain.ServiceConfig{
			Provider:    desc.Provider,
			Model:       desc.Model,
			Temperature: rule.Temperature,
			MaxTokens:   rule.MaxTokens,
		},
		EnrichContext: classification.RequiresContext,
		TraceID:       uuid.NewString(),
	}

	c.logger.Debug("request classified",
		slog.String("trace_id", d.TraceID),
		slog.String("intent", string(intent)),
		slog.Float64("confidence", confidence),
		slog.String("provider", d.Config.Provider),
		slog.String("model", d.Config.Model),
	)
	return d, nil
}

// FinalizeDecision enriches the case context when the decision calls for
// it and attaches the assembled system prompt. The input decision is not
// mutated. The returned context may be nil even when enrichment ran;
// grounding is best effort.
func (c *Controller) FinalizeDecision(ctx context.Context, d domain.Decision, caseRef *domain.CaseRef) (domain.Decision, *domain.CaseContext) {
	var cc *domain.CaseContext
	if d.EnrichContext && caseRef != nil {
		cc = c.enricher.Enrich(ctx, caseRef)
	}

	return d.WithSystemPrompt(prompt.BuildSystemPrompt(d.Classification.Intent, cc)), cc
}
