package speechgen

import (
	"errors"
	"fmt"
	"net/url"
)

// Common error variables
var (
	// ErrModelNotFound is returned when a model id is absent from the
	// discovered registry. Check Registry.List for the available ids.
	ErrModelNotFound = errors.New("speechgen: model not found")

	// ErrSessionClosed is returned when attempting to use a session that has
	// been closed. Dial a new session to resume operations.
	ErrSessionClosed = errors.New("speechgen: session is closed")

	// ErrInvalidConfig is returned when required configuration fields are missing.
	ErrInvalidConfig = errors.New("speechgen: invalid configuration")

	// ErrTransportFailed is returned when the session transport fails before
	// a terminal protocol message was observed.
	ErrTransportFailed = errors.New("speechgen: transport failed")

	// ErrReceiveTimeout is returned when no message arrived within the
	// assembler's configured receive timeout.
	ErrReceiveTimeout = errors.New("speechgen: receive timeout")

	// ErrSendTimeout is returned when sending a message times out.
	ErrSendTimeout = errors.New("speechgen: send timeout")

	// ErrEmptyAudio is returned by EncodeWAV when no audio bytes were
	// accumulated. Callers use this to skip producing a file for a
	// text-only response.
	ErrEmptyAudio = errors.New("speechgen: no audio data")
)

// NotFoundError reports a model id that is not present in the registry.
type NotFoundError struct {
	ModelID string // The requested model id
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("speechgen: model %q not found in registry", e.ModelID)
}

// Is implements error matching for NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrModelNotFound
}

// ConfigError represents a configuration validation error.
// It provides detailed information about which configuration field is invalid.
type ConfigError struct {
	Field   string // The configuration field that is invalid
	Value   string // The invalid value (if safe to log)
	Message string // Detailed error message
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("speechgen: invalid config field %q (value: %q): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("speechgen: invalid config field %q: %s", e.Field, e.Message)
}

// Is implements error matching for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// ConnectionError represents a WebSocket connection error.
// It wraps underlying network errors with additional context.
type ConnectionError struct {
	URL       string // The WebSocket URL that failed to connect
	Operation string // The operation that failed (e.g., "dial", "handshake")
	Cause     error  // The underlying error
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("speechgen: %s failed for %q: %v", e.Operation, e.URL, e.Cause)
	}
	return fmt.Sprintf("speechgen: %s failed for %q", e.Operation, e.URL)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// ProtocolError is the error the remote service reported through an explicit
// "error" protocol message. It is terminal for the response that produced it
// and is never retried automatically; it is distinct from TransportError,
// which signals that the connection failed before any terminal message.
type ProtocolError struct {
	Type    string // Error category (e.g., "invalid_request_error")
	Code    string // Machine-readable error code, if any
	Message string // Human-readable error description
}

func (e *ProtocolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("speechgen: service error %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("speechgen: service error %s: %s", e.Type, e.Message)
}

// TransportError reports that the session transport closed or failed before
// a terminal protocol message (response.done or error) was observed.
// Callers may retry a generation after a TransportError; a ProtocolError
// should not be retried blindly.
type TransportError struct {
	Op    string // The transport operation that failed (e.g., "receive")
	Cause error  // The underlying error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("speechgen: transport %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for TransportError.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransportFailed
}

// SendError represents an error that occurred while sending data to the API.
type SendError struct {
	EventType string // The type of event being sent
	Cause     error  // The underlying error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("speechgen: failed to send %s event: %v", e.EventType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Cause
}

// IsTimeout returns true if the error was caused by a timeout.
func (e *SendError) IsTimeout() bool {
	return errors.Is(e.Cause, ErrSendTimeout)
}

// Helper functions for creating specific errors

// NewConfigError creates a new configuration error.
func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewConnectionError creates a new connection error.
func NewConnectionError(url, operation string, cause error) *ConnectionError {
	return &ConnectionError{
		URL:       url,
		Operation: operation,
		Cause:     cause,
	}
}

// NewTransportError creates a new transport error.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}

// NewSendError creates a new send error.
func NewSendError(eventType string, cause error) *SendError {
	return &SendError{EventType: eventType, Cause: cause}
}

// Validation helper functions

// ValidateSessionConfig performs comprehensive configuration validation.
func ValidateSessionConfig(cfg SessionConfig) error {
	if cfg.Endpoint == "" {
		return NewConfigError("Endpoint", "", "cannot be empty")
	}

	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return NewConfigError("Endpoint", cfg.Endpoint, "invalid URL format")
	}

	if cfg.Deployment == "" {
		return NewConfigError("Deployment", "", "cannot be empty")
	}

	if cfg.APIVersion == "" {
		return NewConfigError("APIVersion", "", "cannot be empty")
	}

	if cfg.Credential == nil {
		return NewConfigError("Credential", "", "cannot be nil")
	}

	if cfg.DialTimeout < 0 {
		return NewConfigError("DialTimeout", cfg.DialTimeout.String(), "cannot be negative")
	}

	return nil
}

// ValidateGenerationRequest validates a generation request before sending.
func ValidateGenerationRequest(req GenerationRequest) error {
	validModalities := map[string]bool{"text": true, "audio": true}
	for _, modality := range req.Modalities {
		if !validModalities[modality] {
			return fmt.Errorf("invalid modality %q, must be 'text' or 'audio'", modality)
		}
	}

	if req.Temperature < 0.0 || req.Temperature > 2.0 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0, got %f", req.Temperature)
	}

	if len(req.Instructions) > 10000 {
		return fmt.Errorf("instructions too long (%d characters), maximum is 10000", len(req.Instructions))
	}

	return nil
}
