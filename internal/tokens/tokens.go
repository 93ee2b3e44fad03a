// Package tokens counts prompt tokens for billing and audit. OpenAI
// models get exact counts via tiktoken; everything else is estimated
// from character length, which is close enough for monthly aggregates.
package tokens

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// charsPerToken is the estimator's average. Reasonable for both English
// and Spanish prose.
const charsPerToken = 4.0

// Message framing overhead for OpenAI chat models: 3 tokens per message
// plus 1 for the role, plus 3 for assistant priming at the end.
const (
	tokensPerMessage = 3
	tokensPerRole    = 1
	assistantPriming = 3
)

// Counter counts or estimates prompt tokens for a request.
type Counter struct {
	mu     sync.Mutex
	codecs map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates a token counter.
func NewCounter() *Counter {
	return &Counter{codecs: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// CountRequest returns the prompt token count for a stream request and
// whether the count is exact. Non-OpenAI models and tokenizer failures
// fall back to estimation; counting never fails.
func (c *Counter) CountRequest(req *domain.StreamRequest) (count int, exact bool) {
	if enc, ok := openAIEncoding(req.Model); ok {
		if codec, err := c.codec(enc); err == nil {
			return c.countExact(codec, req), true
		}
	}
	return estimate(req), false
}

// openAIEncoding maps an OpenAI wire model string to its tokenizer
// encoding. ok is false for non-OpenAI models.
func openAIEncoding(model string) (tokenizer.Encoding, bool) {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"), strings.HasPrefix(model, "o1"):
		return tokenizer.O200kBase, true
	case strings.HasPrefix(model, "gpt-4"), strings.HasPrefix(model, "gpt-3.5"):
		return tokenizer.Cl100kBase, true
	default:
		return "", false
	}
}

func (c *Counter) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if codec, ok := c.codecs[enc]; ok {
		return codec, nil
	}
	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, err
	}
	c.codecs[enc] = codec
	return codec, nil
}

func (c *Counter) countExact(codec tokenizer.Codec, req *domain.StreamRequest) int {
	encodeLen := func(s string) int {
		ids, _, err := codec.Encode(s)
		if err != nil {
			return int(float64(len(s)) / charsPerToken)
		}
		return len(ids)
	}

	total := 0
	if req.SystemPrompt != "" {
		total += tokensPerMessage + tokensPerRole + encodeLen(req.SystemPrompt)
	}
	for _, msg := range req.Messages {
		total += tokensPerMessage + tokensPerRole + encodeLen(msg.Content)
	}
	for _, tool := range req.Tools {
		total += encodeLen(tool.Name) + encodeLen(tool.Description)
		if tool.Parameters != nil {
			if params, err := json.Marshal(tool.Parameters); err == nil {
				total += encodeLen(string(params))
			}
		}
		total += 7 // per-definition framing
	}
	return total + assistantPriming
}

// estimate approximates the token count from character length.
func estimate(req *domain.StreamRequest) int {
	chars := len(req.SystemPrompt)
	for _, msg := range req.Messages {
		chars += len(msg.Role) + len(msg.Content) + 4
	}
	for _, tool := range req.Tools {
		chars += len(tool.Name) + len(tool.Description) + 50
	}
	return int(float64(chars) / charsPerToken)
}
