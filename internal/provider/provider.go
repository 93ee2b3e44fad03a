// Package provider assembles the provider set from configuration.
package provider

import (
	"github.com/lexia-ai/lexia-gateway/internal/config"
	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/provider/anthropic"
	"github.com/lexia-ai/lexia-gateway/internal/provider/openai"
)

// FromConfig builds the provider map keyed by provider family. Providers
// without an API key are left out; routing to them then fails loudly at
// dispatch instead of with a confusing upstream 401.
func FromConfig(cfg *config.Config) map[string]domain.Provider {
	providers := make(map[string]domain.Provider)

	if cfg.OpenAI.APIKey != "" {
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		providers["openai"] = openai.New(cfg.OpenAI.APIKey, opts...)
	}

	if cfg.Anthropic.APIKey != "" {
		var opts []anthropic.Option
		if cfg.Anthropic.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.Anthropic.BaseURL))
		}
		providers["anthropic"] = anthropic.New(cfg.Anthropic.APIKey, opts...)
	}

	return providers
}
