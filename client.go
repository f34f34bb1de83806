package speechgen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// sendTimeout bounds every write to the session transport.
const sendTimeout = 15 * time.Second

// RealtimeSession is a WebSocket duplex session with the realtime service.
// It implements Session: Send submits requests, Receive yields protocol
// messages strictly one at a time in arrival order.
//
// Receive is designed for a single consumer loop; Send and Close are safe to
// call from other goroutines.
type RealtimeSession struct {
	cfg SessionConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex    // Protects writes to the WebSocket
	closedCh  chan struct{} // Signals when the session is closed
	closeOnce sync.Once     // Ensures closedCh is only closed once
}

// DialSession establishes a WebSocket connection to the realtime API.
// It validates the configuration, constructs the WebSocket URL, performs
// authentication, and starts the keepalive ping loop.
//
// Call Close when finished to release the connection.
func DialSession(ctx context.Context, cfg SessionConfig) (*RealtimeSession, error) {
	if err := ValidateSessionConfig(cfg); err != nil {
		return nil, err
	}

	// Construct WebSocket URL from the HTTP endpoint
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, NewConfigError("Endpoint", cfg.Endpoint, "invalid URL format")
	}
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws" // For HTTP (mainly for testing)
	}
	u.Path = "/openai/realtime"
	q := u.Query()
	q.Set("api-version", cfg.APIVersion)
	q.Set("deployment", cfg.Deployment)
	u.RawQuery = q.Encode()

	// Prepare authentication and custom headers
	h := http.Header{}
	if cfg.HandshakeHeaders != nil {
		for k, vals := range cfg.HandshakeHeaders {
			for _, v := range vals {
				h.Add(k, v)
			}
		}
	}
	cfg.Credential.apply(h)

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	ws, _, err := websocket.Dial(dialCtx, u.String(), &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		return nil, NewConnectionError(u.String(), "dial", err)
	}

	s := &RealtimeSession{cfg: cfg, conn: ws, closedCh: make(chan struct{})}
	s.log("ws_connected", map[string]any{"url": u.String()})

	go s.pingLoop()
	return s, nil
}

// Close tears down the session transport. Safe to call multiple times.
// A Receive blocked on the connection returns ErrSessionClosed.
func (s *RealtimeSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.closedCh)
		_ = s.conn.Close(websocket.StatusNormalClosure, "closing")
	})
	return nil
}

// Receive blocks until the next protocol message arrives and returns it.
// Messages are returned strictly in arrival order; the session performs no
// buffering or reordering. Non-text frames and frames with a malformed JSON
// envelope are skipped with a logged diagnostic.
//
// A transport-level failure before Close surfaces as a *TransportError;
// after Close, Receive returns ErrSessionClosed.
func (s *RealtimeSession) Receive(ctx context.Context) (StreamMessage, error) {
	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.closedCh:
				return nil, ErrSessionClosed
			default:
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, NewTransportError("receive", err)
		}

		// Only text frames carry protocol messages
		if typ != websocket.MessageText {
			continue
		}

		msg, err := ParseStreamMessage(data)
		if err != nil {
			s.logError("bad_message_json", map[string]any{"err": err, "raw_data": string(data)})
			continue
		}
		return msg, nil
	}
}

// Send submits a generation request over the session.
func (s *RealtimeSession) Send(ctx context.Context, req GenerationRequest) error {
	if err := ValidateGenerationRequest(req); err != nil {
		return NewSendError("response.create", err)
	}
	payload := map[string]any{"type": "response.create", "response": req}
	return s.send(ctx, "response.create", payload)
}

// Cancel asks the service to stop generating the in-progress response.
// The response still terminates through the message stream.
func (s *RealtimeSession) Cancel(ctx context.Context) error {
	return s.send(ctx, "response.cancel", map[string]any{"type": "response.cancel"})
}

func (s *RealtimeSession) send(ctx context.Context, eventType string, payload any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	select {
	case <-s.closedCh:
		return ErrSessionClosed
	default:
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return NewSendError(eventType, fmt.Errorf("marshal payload: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := s.conn.Write(ctx, websocket.MessageText, b); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewSendError(eventType, ErrSendTimeout)
		}
		return NewSendError(eventType, err)
	}
	return nil
}

func (s *RealtimeSession) pingLoop() {
	t := time.NewTicker(20 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-s.closedCh:
			return
		case <-t.C:
			s.writeMu.Lock()
			_ = s.conn.Ping(context.Background())
			s.writeMu.Unlock()
		}
	}
}

func (s *RealtimeSession) log(event string, fields map[string]any) {
	if s.cfg.StructuredLogger != nil {
		s.cfg.StructuredLogger.Info(event, fields)
	} else if s.cfg.Logger != nil {
		s.cfg.Logger(event, fields)
	}
}

func (s *RealtimeSession) logError(event string, fields map[string]any) {
	if s.cfg.StructuredLogger != nil {
		s.cfg.StructuredLogger.Error(event, fields)
	} else if s.cfg.Logger != nil {
		s.cfg.Logger("ERROR: "+event, fields)
	}
}
