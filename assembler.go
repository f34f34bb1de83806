package speechgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Result is the final output of one assembled generation.
type Result struct {
	// Transcript is the concatenation of all transcript deltas in arrival
	// order.
	Transcript string

	// Audio is the concatenation of all decoded audio deltas in arrival
	// order: raw 16-bit little-endian mono PCM at 24 kHz, directly playable
	// and ready for EncodeWAV.
	Audio []byte
}

// Duration returns the playback duration of the accumulated audio.
func (r Result) Duration() time.Duration {
	return PCM16Duration(r.Audio)
}

// Assembler drives the receive loop of an open session to completion,
// classifying each message and accumulating transcript text and raw PCM
// audio. The zero value is usable.
//
// The loop is strictly sequential: one message is fully processed before the
// next is requested, so relative ordering of same-type deltas is preserved by
// construction. The accumulator state is owned exclusively by the loop for
// the duration of Run; concurrent generations need one Assembler and one
// session each.
type Assembler struct {
	// ReceiveTimeout bounds the wait for each individual message. Zero
	// disables the timeout, matching the trust-the-service behavior of a
	// plain receive loop; when set, a stalled session surfaces as a
	// *TransportError matching ErrReceiveTimeout instead of blocking forever.
	ReceiveTimeout time.Duration

	// OnTranscript, if set, is invoked after each transcript delta with the
	// new fragment and the transcript accumulated so far. It runs on the
	// loop goroutine and should not block.
	OnTranscript func(delta, transcript string)

	// Logger, if set, receives diagnostics for ignored messages and decode
	// failures.
	Logger func(event string, fields map[string]any)
}

// Run consumes messages from src until a terminal message arrives and
// returns the assembled result.
//
// Terminal outcomes:
//   - "response.done": Run returns the result with a nil error.
//   - "error": Run returns a *ProtocolError carrying the reported payload.
//   - transport failure before a terminal message: a *TransportError
//     (matching ErrTransportFailed), distinct from a protocol error so
//     callers can decide whether to retry.
//   - context cancellation: ctx.Err(), checked between message receipts.
//
// Unrecognized message tags are ignored. If sink is non-nil, every decoded
// audio chunk is written to it before being accumulated, and the sink is
// closed exactly once on every exit path. On error the returned Result
// carries whatever was accumulated before the failure.
func (a *Assembler) Run(ctx context.Context, src Receiver, sink PlaybackSink) (Result, error) {
	var transcript strings.Builder
	var audio bytes.Buffer

	if sink != nil {
		defer func() { _ = sink.Close() }()
	}

	result := func() Result {
		return Result{Transcript: transcript.String(), Audio: audio.Bytes()}
	}

	for {
		if err := ctx.Err(); err != nil {
			return result(), err
		}

		msg, err := a.receive(ctx, src)
		if err != nil {
			return result(), err
		}

		switch m := msg.(type) {
		case ResponseDone:
			return result(), nil

		case ErrorMessage:
			return result(), &ProtocolError{
				Type:    m.Error.Type,
				Code:    m.Error.Code,
				Message: m.Error.Message,
			}

		case AudioTranscriptDelta:
			transcript.WriteString(m.Delta)
			if a.OnTranscript != nil {
				a.OnTranscript(m.Delta, transcript.String())
			}

		case AudioDelta:
			pcm, err := m.PCM()
			if err != nil {
				return result(), err
			}
			if sink != nil {
				if err := sink.Write(pcm); err != nil {
					return result(), fmt.Errorf("playback sink write: %w", err)
				}
			}
			audio.Write(pcm)

		default:
			// Unknown tags are forward compatibility, not errors.
			if a.Logger != nil {
				a.Logger("unknown_message", map[string]any{"type": msg.MessageType()})
			}
		}
	}
}

// receive fetches one message, applying the per-message timeout when
// configured.
func (a *Assembler) receive(ctx context.Context, src Receiver) (StreamMessage, error) {
	rctx := ctx
	if a.ReceiveTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, a.ReceiveTimeout)
		defer cancel()
	}

	msg, err := src.Receive(rctx)
	if err == nil {
		return msg, nil
	}

	// A tripped per-message timeout is a transport-class failure; the outer
	// context being done is a cancellation and is reported as such.
	if a.ReceiveTimeout > 0 && ctx.Err() == nil &&
		(errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded)) {
		return nil, NewTransportError("receive", ErrReceiveTimeout)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var te *TransportError
	if errors.As(err, &te) {
		return nil, err
	}
	return nil, NewTransportError("receive", err)
}
