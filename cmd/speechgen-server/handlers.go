package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/speechgen/speechgen"
)

// wsWriteTimeout bounds every write toward the browser. A stalled client
// aborts the generation instead of blocking the assembler.
const wsWriteTimeout = 10 * time.Second

// dialFunc opens a realtime session for the given configuration.
// Swappable in tests.
type dialFunc func(ctx context.Context, cfg speechgen.SessionConfig) (speechgen.Session, error)

type server struct {
	cfg      *serverConfig
	registry *speechgen.Registry
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	dial     dialFunc

	mu       sync.Mutex
	breakers map[string]*speechgen.CircuitBreaker
}

func newServer(cfg *serverConfig, registry *speechgen.Registry, logger zerolog.Logger) *server {
	s := &server{
		cfg:      cfg,
		registry: registry,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Demo server, same-origin UI
			},
		},
		breakers: make(map[string]*speechgen.CircuitBreaker),
	}
	s.dial = s.dialRealtime
	return s
}

func (s *server) dialRealtime(ctx context.Context, cfg speechgen.SessionConfig) (speechgen.Session, error) {
	retry := speechgen.DefaultRetryConfig()
	retry.MaxRetries = s.cfg.DialRetries
	retry.BaseDelay = 500 * time.Millisecond

	sess, err := speechgen.DialSessionWithRetry(ctx, cfg, retry)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// breakerFor returns the circuit breaker guarding dials to one model, so a
// misconfigured deployment stops being hammered without affecting the rest.
func (s *server) breakerFor(modelID string) *speechgen.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	cb, ok := s.breakers[modelID]
	if !ok {
		cb = speechgen.NewCircuitBreaker(speechgen.CircuitBreakerConfig{
			FailureThreshold: s.cfg.BreakerFailureThreshold,
			RecoveryTimeout:  s.cfg.BreakerRecoveryTimeout,
			SuccessThreshold: 1,
		})
		s.breakers[modelID] = cb
	}
	return cb
}

// handleModels serves the discovered model list.
func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.registry.List()); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode model list")
	}
}

// generateRequest is the first frame a client sends on /ws/generate.
type generateRequest struct {
	Type   string `json:"type"` // "generate"
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Voice  string `json:"voice,omitempty"`
}

type transcriptDeltaFrame struct {
	Type      string `json:"type"` // "transcript_delta"
	RequestID string `json:"request_id"`
	Delta     string `json:"delta"`
}

type resultFrame struct {
	Type       string `json:"type"` // "result"
	RequestID  string `json:"request_id"`
	Transcript string `json:"transcript"`
	DurationMS int64  `json:"duration_ms"`
	// WAVBase64 is omitted when the generation produced no audio; the
	// client then shows a text-only result.
	WAVBase64 string `json:"wav_base64,omitempty"`
}

type errorFrame struct {
	Type      string `json:"type"` // "error"
	RequestID string `json:"request_id"`
	Class     string `json:"class"`
	Message   string `json:"message"`
}

// handleGenerate runs one speech generation over a browser WebSocket.
// Protocol: the client sends a generate frame, the server streams binary
// PCM frames for live playback plus transcript_delta JSON frames, and
// finishes with a single result or error frame.
func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	requestID := uuid.NewString()
	logger := s.logger.With().Str("request_id", requestID).Logger()

	var req generateRequest
	if err := conn.ReadJSON(&req); err != nil {
		logger.Warn().Err(err).Msg("failed to read generate request")
		return
	}
	if req.Type != "generate" || req.Model == "" {
		s.writeError(conn, requestID, "config_error", "first frame must be {type:\"generate\", model, prompt}")
		return
	}
	logger = logger.With().Str("model", req.Model).Logger()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Read pump: a cancel frame or client disconnect aborts the generation.
	go func() {
		defer cancel()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var frame struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(data, &frame) == nil && frame.Type == "cancel" {
				logger.Info().Msg("generation cancelled by client")
				return
			}
		}
	}()

	started := time.Now()
	activeGenerations.Inc()
	defer activeGenerations.Dec()

	result, err := s.generate(ctx, logger, conn, requestID, req)
	if err != nil {
		class := errorClass(err)
		logger.Error().Err(err).Str("class", class).Msg("generation failed")
		recordGeneration(class, started, len(result.Audio))
		s.writeError(conn, requestID, class, err.Error())
		return
	}

	frame := resultFrame{
		Type:       "result",
		RequestID:  requestID,
		Transcript: result.Transcript,
		DurationMS: result.Duration().Milliseconds(),
	}
	wav, err := speechgen.EncodeWAV(result.Audio)
	switch {
	case err == nil:
		frame.WAVBase64 = base64.StdEncoding.EncodeToString(wav)
	case errors.Is(err, speechgen.ErrEmptyAudio):
		logger.Info().Msg("no audio produced, returning text-only result")
	default:
		recordGeneration("internal_error", started, len(result.Audio))
		s.writeError(conn, requestID, "internal_error", err.Error())
		return
	}

	recordGeneration("success", started, len(result.Audio))
	logger.Info().
		Dur("elapsed", time.Since(started)).
		Int("audio_bytes", len(result.Audio)).
		Int("transcript_chars", len(result.Transcript)).
		Msg("generation complete")
	s.writeJSON(conn, frame)
}

func (s *server) generate(ctx context.Context, logger zerolog.Logger, conn *websocket.Conn, requestID string, req generateRequest) (speechgen.Result, error) {
	model, err := s.registry.Resolve(req.Model)
	if err != nil {
		return speechgen.Result{}, err
	}

	cfg := speechgen.SessionConfigForModel(model)
	cfg.DialTimeout = s.cfg.DialTimeout
	cfg.Logger = func(event string, fields map[string]any) {
		logger.Debug().Fields(fields).Msg(event)
	}

	var sess speechgen.Session
	dialErr := s.breakerFor(model.ID).Execute(func() error {
		var err error
		sess, err = s.dial(ctx, cfg)
		return err
	})
	if dialErr != nil {
		return speechgen.Result{}, dialErr
	}
	defer sess.Close()

	genReq := speechgen.GenerationRequest{
		Modalities:   []string{"text", "audio"},
		Instructions: req.Prompt,
		Voice:        req.Voice,
	}
	if err := sess.Send(ctx, genReq); err != nil {
		return speechgen.Result{}, err
	}

	asm := speechgen.Assembler{
		ReceiveTimeout: s.cfg.ReceiveTimeout,
		OnTranscript: func(delta, _ string) {
			s.writeJSON(conn, transcriptDeltaFrame{Type: "transcript_delta", RequestID: requestID, Delta: delta})
		},
		Logger: func(event string, fields map[string]any) {
			logger.Debug().Fields(fields).Msg(event)
		},
	}
	return asm.Run(ctx, sess, &wsSink{conn: conn})
}

func (s *server) writeJSON(conn *websocket.Conn, v any) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Debug().Err(err).Msg("client write failed")
	}
}

func (s *server) writeError(conn *websocket.Conn, requestID, class, message string) {
	s.writeJSON(conn, errorFrame{Type: "error", RequestID: requestID, Class: class, Message: message})
}

// wsSink forwards PCM chunks to the browser as binary frames for live
// playback. It does not own the connection: Close is a no-op because the
// terminal result frame still has to be written afterwards.
type wsSink struct {
	conn *websocket.Conn
}

func (ws *wsSink) Write(pcm []byte) error {
	if err := ws.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return ws.conn.WriteMessage(websocket.BinaryMessage, pcm)
}

func (ws *wsSink) Close() error { return nil }

// errorClass maps an error to the class reported to the client.
func errorClass(err error) string {
	var protoErr *speechgen.ProtocolError
	var connErr *speechgen.ConnectionError
	switch {
	case errors.As(err, &protoErr):
		return "protocol_error"
	case errors.Is(err, speechgen.ErrModelNotFound), errors.Is(err, speechgen.ErrInvalidConfig):
		return "config_error"
	case errors.Is(err, speechgen.ErrTransportFailed),
		errors.Is(err, speechgen.ErrCircuitOpen),
		errors.As(err, &connErr):
		return "transport_error"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "internal_error"
	}
}
