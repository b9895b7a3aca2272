// Package proxy - server.go is the HTTP surface of the translation
// proxy: Anthropic Messages API in, OpenAI chat completions out.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kn1cht/vibe-local/internal/config"
	"github.com/kn1cht/vibe-local/internal/monitoring"
)

// Server serves the Anthropic-compatible API and forwards translated
// requests to the model runtime's OpenAI-compatible endpoint.
type Server struct {
	addr        string
	runtimeBase string
	settings    config.ProxySettings
	logger      *monitoring.Logger
	requests    *monitoring.RequestLogger
	counter     TokenCounter
	upstream    *http.Client // completions, long timeout
	catalog     *http.Client // model listing, short timeout
}

// New creates a proxy server bound to the loopback port from cfg.
func New(cfg config.Config, settings config.ProxySettings, logger *monitoring.Logger) *Server {
	return &Server{
		addr:        fmt.Sprintf("127.0.0.1:%d", cfg.ProxyPort),
		runtimeBase: strings.TrimRight(cfg.RuntimeHost, "/"),
		settings:    settings,
		logger:      logger,
		requests:    monitoring.NewRequestLogger(logger),
		upstream:    &http.Client{Timeout: settings.UpstreamTimeout},
		catalog:     &http.Client{Timeout: 5 * time.Second},
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string { return s.addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /v1/models", s.handleModels)
	mux.HandleFunc("POST /v1/messages", s.handleMessages)
	mux.HandleFunc("POST /v1/messages/count_tokens", s.handleCountTokens)

	srv := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.Info().
		Str("addr", s.addr).
		Str("runtime", s.runtimeBase).
		Msg("translation proxy listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *Server) writeAPIError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "api_error", "message": message},
	})
}

// handleRoot is the liveness probe the supervisor polls.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "proxy": "anthropic-to-ollama"})
}

// handleModels passes the runtime's model catalog through unchanged.
func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	resp, err := s.catalog.Get(s.runtimeBase + "/v1/models")
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		s.writeJSON(w, http.StatusBadGateway, map[string]any{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// The request ID rides the context so every log line below and the
	// upstream request share it.
	ctx := monitoring.WithRequestIDContext(r.Context(), newRequestID())
	requestID := monitoring.RequestIDFromContext(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeAPIError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	s.requests.LogIncoming(monitoring.NewRequestInfo(r, requestID, len(body)))

	tr, err := TranslateRequest(body, s.settings)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON"})
		return
	}
	s.logTranslation(ctx, tr)

	targetURL := s.runtimeBase + "/v1/chat/completions"
	s.requests.LogOutgoing(&monitoring.OutgoingInfo{
		RequestID:    requestID,
		TargetURL:    targetURL,
		BodySize:     len(tr.Body),
		MessageCount: tr.MessageCount,
		ToolCount:    tr.ToolCount,
		Stream:       tr.Stream,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(tr.Body))
	if err != nil {
		s.writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.upstream.Do(req)
	if err != nil {
		s.writeAPIError(w, http.StatusBadGateway, fmt.Sprintf("runtime connection failed: %v", err))
		return
	}
	defer resp.Body.Close()

	if tr.Stream {
		tokens := StreamUpstream(w, resp.Body, tr.Model)
		s.requests.LogResponse(&monitoring.ResponseInfo{
			RequestID:    requestID,
			Status:       http.StatusOK,
			StopReason:   "end_turn",
			Duration:     time.Since(start),
			OutputTokens: tokens,
		})
		return
	}

	upstreamBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.writeAPIError(w, http.StatusBadGateway, fmt.Sprintf("runtime read failed: %v", err))
		return
	}

	res := ParseUpstreamResponse(upstreamBody, tr.ToolNames)

	if tr.WantsSSE {
		WriteResultAsSSE(w, tr.Model, res)
	} else {
		respBody := BuildMessagesResponse(tr.Model, res)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(respBody)
	}

	s.requests.LogResponse(&monitoring.ResponseInfo{
		RequestID:    requestID,
		Status:       http.StatusOK,
		StopReason:   res.StopReason,
		ToolCalls:    len(res.ToolCalls),
		XMLFallback:  res.XMLFallback,
		Duration:     time.Since(start),
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	})
}

// logTranslation emits the translation debug events, tagged with the
// request ID carried in ctx.
func (s *Server) logTranslation(ctx context.Context, tr *TranslatedRequest) {
	requestID := monitoring.RequestIDFromContext(ctx)
	if tr.Truncated {
		s.logger.Debug().
			Str("request_id", requestID).
			Int("system_chars", tr.SystemChars).
			Msg("system prompt truncated")
	}
	if tr.FilteredOut > 0 {
		s.logger.Debug().
			Str("request_id", requestID).
			Int("dropped", tr.FilteredOut).
			Int("kept", tr.ToolCount).
			Msg("tools filtered")
	}
}

func (s *Server) handleCountTokens(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeAPIError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"input_tokens": s.counter.CountRequest(body)})
}
