package speechgen

import (
	"net/http"
	"time"
)

// Credential represents an authentication method for the realtime endpoint.
// Implementations apply the appropriate authentication headers to the
// WebSocket handshake request.
type Credential interface{ apply(h http.Header) }

// APIKey implements Credential using API key authentication.
// This is the method the environment-discovered credential bundles use.
type APIKey string

// apply adds the API key to the request headers using the "api-key" header.
func (k APIKey) apply(h http.Header) {
	if k != "" {
		h.Set("api-key", string(k))
	}
}

// Bearer implements Credential using OAuth2 Bearer token authentication.
type Bearer string

// apply adds the Bearer token to the Authorization header.
func (b Bearer) apply(h http.Header) {
	if b != "" {
		h.Set("Authorization", "Bearer "+string(b))
	}
}

// SessionConfig holds all configuration options for dialing a realtime
// session. Endpoint, Deployment, APIVersion, and Credential are required.
type SessionConfig struct {
	// Endpoint is the base URL of the realtime resource.
	// Format: https://{resource-name}.openai.azure.com
	Endpoint string

	// Deployment is the name of the realtime model deployment.
	Deployment string

	// APIVersion specifies the service API version to use.
	APIVersion string

	// Credential provides authentication for the handshake.
	// Use APIKey for key-based auth or Bearer for token-based auth.
	Credential Credential

	// DialTimeout sets the maximum time to wait for connection establishment.
	// If zero, no timeout is applied.
	DialTimeout time.Duration

	// HandshakeHeaders allows adding custom headers to the WebSocket
	// handshake request (proxy auth, tracing headers, ...).
	HandshakeHeaders http.Header

	// Logger is called for significant session events (ws_connected,
	// bad_message_json, ...). The fields parameter carries structured data
	// relevant to each event. If nil, StructuredLogger is consulted; if both
	// are nil, no logging occurs.
	Logger func(event string, fields map[string]any)

	// StructuredLogger provides leveled logging. When both Logger and
	// StructuredLogger are set, StructuredLogger takes precedence.
	StructuredLogger *Logger
}

// SessionConfigForModel builds a SessionConfig from a registry descriptor.
// The caller may still set timeouts and logging hooks on the result.
func SessionConfigForModel(m ModelDescriptor) SessionConfig {
	return SessionConfig{
		Endpoint:   m.Credentials.Endpoint,
		Deployment: m.Credentials.Deployment,
		APIVersion: m.Credentials.APIVersion,
		Credential: APIKey(m.Credentials.APIKey),
	}
}
