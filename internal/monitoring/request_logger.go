// Package monitoring - request_logger.go logs proxy request lifecycle.
//
// DESIGN: Structured logging for request tracing at DEBUG level:
//   - LogIncoming:   Request received from the agent
//   - LogOutgoing:   Request forwarded to the model runtime
//   - LogResponse:   Response sent back to the agent
package monitoring

import (
	"net/http"
	"time"
)

// RequestLogger logs HTTP request lifecycle events.
type RequestLogger struct {
	logger *Logger
}

// NewRequestLogger creates a new request logger.
func NewRequestLogger(logger *Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// RequestInfo contains incoming request information.
type RequestInfo struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	BodySize   int
	StartTime  time.Time
}

// NewRequestInfo creates RequestInfo from an HTTP request.
func NewRequestInfo(r *http.Request, requestID string, bodySize int) *RequestInfo {
	return &RequestInfo{
		RequestID:  requestID,
		Method:     r.Method,
		Path:       r.URL.Path,
		RemoteAddr: r.RemoteAddr,
		BodySize:   bodySize,
		StartTime:  time.Now(),
	}
}

// LogIncoming logs an incoming request.
func (rl *RequestLogger) LogIncoming(info *RequestInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("method", info.Method).
		Str("path", info.Path).
		Int("body_size", info.BodySize).
		Msg("incoming")
}

// OutgoingInfo contains outgoing request information.
type OutgoingInfo struct {
	RequestID    string
	TargetURL    string
	BodySize     int
	MessageCount int
	ToolCount    int
	Stream       bool
}

// LogOutgoing logs a request forwarded to the model runtime.
func (rl *RequestLogger) LogOutgoing(info *OutgoingInfo) {
	rl.logger.Debug().
		Str("request_id", info.RequestID).
		Str("target", info.TargetURL).
		Int("body_size", info.BodySize).
		Int("messages", info.MessageCount).
		Int("tools", info.ToolCount).
		Bool("stream", info.Stream).
		Msg("outgoing")
}

// ResponseInfo contains response information.
type ResponseInfo struct {
	RequestID    string
	Status       int
	BodySize     int
	StopReason   string
	ToolCalls    int
	XMLFallback  bool
	Duration     time.Duration
	InputTokens  int
	OutputTokens int
}

// LogResponse logs a response returned to the agent.
func (rl *RequestLogger) LogResponse(info *ResponseInfo) {
	event := rl.logger.Debug().
		Str("request_id", info.RequestID).
		Int("status", info.Status).
		Int("body_size", info.BodySize).
		Dur("duration", info.Duration)
	if info.StopReason != "" {
		event = event.Str("stop_reason", info.StopReason).
			Int("tool_calls", info.ToolCalls).
			Int("input_tokens", info.InputTokens).
			Int("output_tokens", info.OutputTokens)
	}
	if info.XMLFallback {
		event = event.Bool("xml_fallback", true)
	}
	event.Msg("response")
}
