package speechgen

import "context"

// Receiver is the read side of a duplex session: one protocol message per
// call, in the order the remote service produced them, until the underlying
// transport closes. The Assembler consumes this interface so it can be fed
// from a live session or from a test fixture.
type Receiver interface {
	Receive(ctx context.Context) (StreamMessage, error)
}

// Session is an open duplex connection to the realtime service.
type Session interface {
	Receiver

	// Send submits a generation request. The response arrives as a stream of
	// messages through Receive.
	Send(ctx context.Context, req GenerationRequest) error

	// Close tears down the transport. Safe to call multiple times.
	Close() error
}

// GenerationRequest describes one generation to request from the service.
type GenerationRequest struct {
	// Modalities selects the output types to generate, a subset of
	// {"text", "audio"}. Empty means the service default.
	Modalities []string `json:"modalities,omitempty"`

	// Instructions is the prompt for this response.
	Instructions string `json:"instructions,omitempty"`

	// Voice selects the voice for audio output, when the deployment
	// supports a choice.
	Voice string `json:"voice,omitempty"`

	// Temperature controls randomness (0.0-2.0). Zero means the service
	// default.
	Temperature float64 `json:"temperature,omitempty"`
}
