package routing

import (
	"strings"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// knownProviders is the set of provider families this build can call.
var knownProviders = map[string]bool{
	"openai":    true,
	"anthropic": true,
}

// ResolveModel parses a "<provider>/<modelId>" token into its provider
// family and wire model string. An unrecognized provider prefix is a
// configuration defect and fails loudly rather than silently falling
// back.
func ResolveModel(ref string) (provider, model string, err error) {
	provider, model, ok := strings.Cut(ref, "/")
	if !ok || provider == "" || model == "" {
		return "", "", domain.NewConfigError("resolver", ref, "model reference must be <provider>/<modelId>")
	}
	if !knownProviders[provider] {
		return "", "", domain.NewConfigError("resolver", provider, "unrecognized provider prefix")
	}
	return provider, model, nil
}
