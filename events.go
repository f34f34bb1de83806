package speechgen

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// envelope is used for initial JSON parsing to determine the message type
// before unmarshaling into the specific message struct.
type envelope struct {
	Type string `json:"type"`
}

// StreamMessage is a tagged protocol message received from a realtime
// session. The set of interpreted variants is closed: ResponseDone,
// ErrorMessage, AudioTranscriptDelta, and AudioDelta. Every tag the service
// may add in the future arrives as UnknownMessage, which consumers ignore
// rather than treat as an error.
type StreamMessage interface {
	// MessageType returns the wire tag of the message (e.g. "response.done").
	MessageType() string

	streamMessage()
}

// ResponseDone signals that a response is complete. It is the successful
// terminal message of a generation.
type ResponseDone struct {
	Type     string `json:"type"`     // Always "response.done"
	EventID  string `json:"event_id"` // Unique identifier for this event
	Response struct {
		ID     string `json:"id"`     // Unique response identifier
		Status string `json:"status"` // Final status (e.g., "completed")
	} `json:"response"`
}

// ErrorMessage represents an error reported by the remote service through
// the protocol. It is the failed terminal message of a generation; the
// payload is surfaced to the caller as a ProtocolError.
type ErrorMessage struct {
	Type  string `json:"type"` // Always "error"
	Error struct {
		Type    string `json:"type,omitempty"`    // Error category (e.g., "invalid_request_error")
		Code    string `json:"code,omitempty"`    // Machine-readable error code
		Message string `json:"message,omitempty"` // Human-readable error description
	} `json:"error"`
}

// AudioTranscriptDelta contains an incremental UTF-8 fragment of the spoken
// response's transcript. Fragments concatenated in arrival order form the
// complete transcript.
type AudioTranscriptDelta struct {
	Type         string `json:"type"`          // Always "response.audio_transcript.delta"
	ResponseID   string `json:"response_id"`   // The ID of the response
	ItemID       string `json:"item_id"`       // The ID of the item
	OutputIndex  int    `json:"output_index"`  // The index of the output item
	ContentIndex int    `json:"content_index"` // The index of the content part
	Delta        string `json:"delta"`         // The incremental transcript text
}

// AudioDelta contains an incremental audio chunk of the spoken response.
// Audio is base64-encoded 16-bit little-endian mono PCM at 24 kHz; chunks
// concatenated in arrival order form directly playable PCM.
type AudioDelta struct {
	Type         string `json:"type"`          // Always "response.audio.delta"
	ResponseID   string `json:"response_id"`   // The ID of the response
	ItemID       string `json:"item_id"`       // The ID of the item
	OutputIndex  int    `json:"output_index"`  // The index of the output item
	ContentIndex int    `json:"content_index"` // The index of the content part
	DeltaBase64  string `json:"delta"`         // Base64-encoded PCM16 audio data
}

// PCM decodes the base64 payload into raw PCM bytes.
func (d AudioDelta) PCM() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(d.DeltaBase64)
	if err != nil {
		return nil, fmt.Errorf("decode audio delta: %w", err)
	}
	return b, nil
}

// UnknownMessage carries any protocol tag this package does not interpret.
// Consumers must skip it silently; unknown tags are forward compatibility,
// not errors.
type UnknownMessage struct {
	Type string // The wire tag of the message
	Raw  []byte // The raw JSON, for diagnostics
}

func (m ResponseDone) MessageType() string         { return m.Type }
func (m ErrorMessage) MessageType() string         { return m.Type }
func (m AudioTranscriptDelta) MessageType() string { return m.Type }
func (m AudioDelta) MessageType() string           { return m.Type }
func (m UnknownMessage) MessageType() string       { return m.Type }

func (ResponseDone) streamMessage()         {}
func (ErrorMessage) streamMessage()         {}
func (AudioTranscriptDelta) streamMessage() {}
func (AudioDelta) streamMessage()           {}
func (UnknownMessage) streamMessage()       {}

// ParseStreamMessage decodes a raw protocol frame into its StreamMessage
// variant. The tag is sniffed from the envelope first, then the frame is
// unmarshaled into the matching struct. Unrecognized tags decode into
// UnknownMessage; an error is returned only when the envelope itself is not
// valid JSON.
func ParseStreamMessage(raw []byte) (StreamMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parse message envelope: %w", err)
	}

	switch env.Type {
	case "response.done":
		var m ResponseDone
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", env.Type, err)
		}
		return m, nil
	case "error":
		var m ErrorMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", env.Type, err)
		}
		return m, nil
	case "response.audio_transcript.delta":
		var m AudioTranscriptDelta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", env.Type, err)
		}
		return m, nil
	case "response.audio.delta":
		var m AudioDelta
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", env.Type, err)
		}
		return m, nil
	default:
		return UnknownMessage{Type: env.Type, Raw: raw}, nil
	}
}
