package speechgen

import (
	"encoding/base64"
	"testing"
)

func TestParseStreamMessage_ResponseDone(t *testing.T) {
	raw := []byte(`{"type":"response.done","event_id":"evt_1","response":{"id":"resp_1","status":"completed"}}`)

	msg, err := ParseStreamMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	done, ok := msg.(ResponseDone)
	if !ok {
		t.Fatalf("expected ResponseDone, got %T", msg)
	}
	if done.Response.ID != "resp_1" || done.Response.Status != "completed" {
		t.Errorf("unexpected response payload: %+v", done.Response)
	}
	if done.MessageType() != "response.done" {
		t.Errorf("expected message type response.done, got %q", done.MessageType())
	}
}

func TestParseStreamMessage_Error(t *testing.T) {
	raw := []byte(`{"type":"error","error":{"type":"invalid_request_error","code":"bad_prompt","message":"prompt rejected"}}`)

	msg, err := ParseStreamMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	em, ok := msg.(ErrorMessage)
	if !ok {
		t.Fatalf("expected ErrorMessage, got %T", msg)
	}
	if em.Error.Type != "invalid_request_error" || em.Error.Code != "bad_prompt" || em.Error.Message != "prompt rejected" {
		t.Errorf("unexpected error payload: %+v", em.Error)
	}
}

func TestParseStreamMessage_TranscriptDelta(t *testing.T) {
	raw := []byte(`{"type":"response.audio_transcript.delta","response_id":"resp_1","item_id":"item_1","output_index":0,"content_index":0,"delta":"Hel"}`)

	msg, err := ParseStreamMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, ok := msg.(AudioTranscriptDelta)
	if !ok {
		t.Fatalf("expected AudioTranscriptDelta, got %T", msg)
	}
	if d.Delta != "Hel" {
		t.Errorf("expected delta %q, got %q", "Hel", d.Delta)
	}
}

func TestParseStreamMessage_AudioDelta(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0xFF, 0xFE}
	raw := []byte(`{"type":"response.audio.delta","response_id":"resp_1","delta":"` +
		base64.StdEncoding.EncodeToString(pcm) + `"}`)

	msg, err := ParseStreamMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d, ok := msg.(AudioDelta)
	if !ok {
		t.Fatalf("expected AudioDelta, got %T", msg)
	}

	decoded, err := d.PCM()
	if err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if string(decoded) != string(pcm) {
		t.Errorf("expected PCM %v, got %v", pcm, decoded)
	}
}

func TestAudioDelta_PCMInvalidBase64(t *testing.T) {
	d := AudioDelta{DeltaBase64: "not-base64!"}
	if _, err := d.PCM(); err == nil {
		t.Error("expected error for invalid base64, got nil")
	}
}

func TestParseStreamMessage_UnknownTag(t *testing.T) {
	raw := []byte(`{"type":"rate_limits.updated","rate_limits":[]}`)

	msg, err := ParseStreamMessage(raw)
	if err != nil {
		t.Fatalf("unexpected error for unknown tag: %v", err)
	}

	u, ok := msg.(UnknownMessage)
	if !ok {
		t.Fatalf("expected UnknownMessage, got %T", msg)
	}
	if u.Type != "rate_limits.updated" {
		t.Errorf("expected tag preserved, got %q", u.Type)
	}
	if len(u.Raw) == 0 {
		t.Error("expected raw payload preserved for diagnostics")
	}
}

func TestParseStreamMessage_MalformedJSON(t *testing.T) {
	if _, err := ParseStreamMessage([]byte(`{not json`)); err == nil {
		t.Error("expected error for malformed envelope, got nil")
	}
}
