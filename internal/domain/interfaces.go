package domain

import "context"

// Provider is a model caller for one backend family.
type Provider interface {
	Name() string

	// Stream starts a model response stream. A nil error means the stream
	// was constructed and started; errors surfaced after that arrive as
	// StreamEvent.Error values. The channel MUST be closed by the
	// provider when done.
	Stream(ctx context.Context, req *StreamRequest) (<-chan StreamEvent, error)
}
