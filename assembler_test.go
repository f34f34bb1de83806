package speechgen

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"
	"time"
)

// scriptReceiver yields a fixed sequence of messages, then an error (or
// blocks until the context is done when err is nil and the script is
// exhausted). It records how many Receive calls were made.
type scriptReceiver struct {
	msgs  []StreamMessage
	err   error
	calls int
}

func (s *scriptReceiver) Receive(ctx context.Context) (StreamMessage, error) {
	s.calls++
	if len(s.msgs) > 0 {
		m := s.msgs[0]
		s.msgs = s.msgs[1:]
		return m, nil
	}
	if s.err != nil {
		return nil, s.err
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

// captureSink records every written chunk and whether/how often it was closed.
type captureSink struct {
	chunks   [][]byte
	writeErr error
	closes   int
}

func (c *captureSink) Write(pcm []byte) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	chunk := make([]byte, len(pcm))
	copy(chunk, pcm)
	c.chunks = append(c.chunks, chunk)
	return nil
}

func (c *captureSink) Close() error {
	c.closes++
	return nil
}

func audioDelta(pcm []byte) AudioDelta {
	return AudioDelta{
		Type:        "response.audio.delta",
		DeltaBase64: base64.StdEncoding.EncodeToString(pcm),
	}
}

func transcriptDelta(text string) AudioTranscriptDelta {
	return AudioTranscriptDelta{Type: "response.audio_transcript.delta", Delta: text}
}

func responseDone() ResponseDone {
	return ResponseDone{Type: "response.done"}
}

func TestAssembler_OrderPreservation(t *testing.T) {
	b1 := []byte{0x01, 0x02}
	b2 := []byte{0x03, 0x04}
	src := &scriptReceiver{msgs: []StreamMessage{
		transcriptDelta("Hel"),
		audioDelta(b1),
		transcriptDelta("lo"),
		audioDelta(b2),
		responseDone(),
	}}
	sink := &captureSink{}

	var asm Assembler
	result, err := asm.Run(context.Background(), src, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Transcript != "Hello" {
		t.Errorf("expected transcript %q, got %q", "Hello", result.Transcript)
	}
	want := append(append([]byte{}, b1...), b2...)
	if string(result.Audio) != string(want) {
		t.Errorf("expected audio %v, got %v", want, result.Audio)
	}

	// Each chunk was forwarded to the sink in arrival order.
	if len(sink.chunks) != 2 || string(sink.chunks[0]) != string(b1) || string(sink.chunks[1]) != string(b2) {
		t.Errorf("expected sink chunks [%v %v], got %v", b1, b2, sink.chunks)
	}
	if sink.closes != 1 {
		t.Errorf("expected sink closed exactly once, closed %d times", sink.closes)
	}
}

func TestAssembler_ErrorShortCircuit(t *testing.T) {
	em := ErrorMessage{Type: "error"}
	em.Error.Type = "server_error"
	em.Error.Message = "backend unavailable"

	src := &scriptReceiver{msgs: []StreamMessage{
		transcriptDelta("x"),
		em,
		// Must never be reached.
		transcriptDelta("y"),
	}}
	sink := &captureSink{}

	var asm Assembler
	result, err := asm.Run(context.Background(), src, sink)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	var pe *ProtocolError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ProtocolError, got %T: %v", err, err)
	}
	if pe.Message != "backend unavailable" {
		t.Errorf("expected captured payload, got %+v", pe)
	}

	// No Receive is issued after the terminal message.
	if src.calls != 2 {
		t.Errorf("expected exactly 2 receive calls, got %d", src.calls)
	}
	// Partial transcript is still reported.
	if result.Transcript != "x" {
		t.Errorf("expected partial transcript %q, got %q", "x", result.Transcript)
	}
	if sink.closes != 1 {
		t.Errorf("expected sink closed exactly once on error path, closed %d times", sink.closes)
	}
}

func TestAssembler_NoReceiveAfterDone(t *testing.T) {
	src := &scriptReceiver{msgs: []StreamMessage{responseDone(), transcriptDelta("late")}}

	var asm Assembler
	if _, err := asm.Run(context.Background(), src, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.calls != 1 {
		t.Errorf("expected exactly 1 receive call, got %d", src.calls)
	}
}

func TestAssembler_TransportError(t *testing.T) {
	src := &scriptReceiver{
		msgs: []StreamMessage{transcriptDelta("partial")},
		err:  io.ErrUnexpectedEOF,
	}
	sink := &captureSink{}

	var asm Assembler
	result, err := asm.Run(context.Background(), src, sink)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	if !errors.Is(err, ErrTransportFailed) {
		t.Errorf("expected error to match ErrTransportFailed, got %v", err)
	}
	var pe *ProtocolError
	if errors.As(err, &pe) {
		t.Error("transport failure must not be reported as a protocol error")
	}
	if result.Transcript != "partial" {
		t.Errorf("expected partial transcript preserved, got %q", result.Transcript)
	}
	if sink.closes != 1 {
		t.Errorf("expected sink closed exactly once, closed %d times", sink.closes)
	}
}

func TestAssembler_TransportErrorNotDoubleWrapped(t *testing.T) {
	cause := errors.New("connection reset")
	src := &scriptReceiver{err: NewTransportError("receive", cause)}

	var asm Assembler
	_, err := asm.Run(context.Background(), src, nil)

	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("expected original cause preserved, got %v", err)
	}
}

func TestAssembler_UnknownTagsIgnored(t *testing.T) {
	src := &scriptReceiver{msgs: []StreamMessage{
		UnknownMessage{Type: "session.created"},
		transcriptDelta("ok"),
		UnknownMessage{Type: "rate_limits.updated"},
		responseDone(),
	}}

	var events []string
	asm := Assembler{Logger: func(event string, fields map[string]any) {
		events = append(events, event)
	}}

	result, err := asm.Run(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Transcript != "ok" {
		t.Errorf("expected transcript %q, got %q", "ok", result.Transcript)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 unknown_message diagnostics, got %v", events)
	}
}

func TestAssembler_TranscriptObserver(t *testing.T) {
	src := &scriptReceiver{msgs: []StreamMessage{
		transcriptDelta("Hel"),
		transcriptDelta("lo"),
		responseDone(),
	}}

	var deltas, totals []string
	asm := Assembler{OnTranscript: func(delta, transcript string) {
		deltas = append(deltas, delta)
		totals = append(totals, transcript)
	}}

	if _, err := asm.Run(context.Background(), src, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Errorf("unexpected deltas: %v", deltas)
	}
	if len(totals) != 2 || totals[0] != "Hel" || totals[1] != "Hello" {
		t.Errorf("unexpected running transcripts: %v", totals)
	}
}

func TestAssembler_SinkWriteErrorAborts(t *testing.T) {
	src := &scriptReceiver{msgs: []StreamMessage{
		audioDelta([]byte{0x01, 0x02}),
		responseDone(),
	}}
	sink := &captureSink{writeErr: errors.New("sink stalled")}

	var asm Assembler
	_, err := asm.Run(context.Background(), src, sink)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, ErrTransportFailed) {
		t.Error("sink failure must not be reported as a transport error")
	}
	if sink.closes != 1 {
		t.Errorf("expected sink closed exactly once, closed %d times", sink.closes)
	}
}

func TestAssembler_InvalidAudioPayload(t *testing.T) {
	src := &scriptReceiver{msgs: []StreamMessage{
		AudioDelta{Type: "response.audio.delta", DeltaBase64: "!!!"},
		responseDone(),
	}}

	var asm Assembler
	if _, err := asm.Run(context.Background(), src, nil); err == nil {
		t.Error("expected error for undecodable audio delta, got nil")
	}
}

func TestAssembler_Cancellation(t *testing.T) {
	// Script exhausts, then Receive blocks until the context is done.
	src := &scriptReceiver{msgs: []StreamMessage{transcriptDelta("x")}}
	sink := &captureSink{}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	var asm Assembler
	_, err := asm.Run(ctx, src, sink)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTransportFailed) {
		t.Error("cancellation must not be reported as a transport failure")
	}
	if sink.closes != 1 {
		t.Errorf("expected sink closed exactly once on cancellation, closed %d times", sink.closes)
	}
}

func TestAssembler_ReceiveTimeout(t *testing.T) {
	// Empty script: Receive blocks until the per-message deadline fires.
	src := &scriptReceiver{}

	asm := Assembler{ReceiveTimeout: 10 * time.Millisecond}
	_, err := asm.Run(context.Background(), src, nil)
	if err == nil {
		t.Fatal("expected timeout error, got nil")
	}
	if !errors.Is(err, ErrReceiveTimeout) {
		t.Errorf("expected error to match ErrReceiveTimeout, got %v", err)
	}
	if !errors.Is(err, ErrTransportFailed) {
		t.Errorf("expected timeout to be transport-class, got %v", err)
	}
}

func TestWriterSink(t *testing.T) {
	var buf writeCloserBuffer
	sink := NewWriterSink(&buf)

	if err := sink.Write([]byte{1, 2, 3}); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if string(buf.data) != string([]byte{1, 2, 3}) {
		t.Errorf("expected buffered data, got %v", buf.data)
	}
	if !buf.closed {
		t.Error("expected Close forwarded to the underlying writer")
	}
}

type writeCloserBuffer struct {
	data   []byte
	closed bool
}

func (b *writeCloserBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *writeCloserBuffer) Close() error {
	b.closed = true
	return nil
}
