// Package proxy - sse.go emits Anthropic-style server-sent events.
//
// DESIGN: Two paths produce SSE:
//   - WriteResultAsSSE: a synchronous upstream result replayed as the
//     full event sequence (used when tools forced a sync upstream call
//     but the client asked to stream)
//   - StreamUpstream: live translation of the runtime's chat completion
//     chunks into Anthropic events
package proxy

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &sseWriter{w: w, flusher: flusher}
}

func (s *sseWriter) send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	// a broken pipe means the agent went away; nothing to do about it
	_, _ = io.WriteString(s.w, "event: "+event+"\ndata: "+string(payload)+"\n\n")
	if s.flusher != nil {
		s.flusher.Flush()
	}
}

func (s *sseWriter) messageStart(msgID, model string, inputTokens int) {
	s.send("message_start", map[string]any{
		"type": "message_start",
		"message": map[string]any{
			"id":            msgID,
			"type":          "message",
			"role":          "assistant",
			"content":       []any{},
			"model":         model,
			"stop_reason":   nil,
			"stop_sequence": nil,
			"usage": map[string]any{
				"input_tokens":                inputTokens,
				"output_tokens":               0,
				"cache_creation_input_tokens": 0,
				"cache_read_input_tokens":     0,
			},
		},
	})
}

func (s *sseWriter) blockStart(index int, block map[string]any) {
	s.send("content_block_start", map[string]any{
		"type":          "content_block_start",
		"index":         index,
		"content_block": block,
	})
}

func (s *sseWriter) blockDelta(index int, delta map[string]any) {
	s.send("content_block_delta", map[string]any{
		"type":  "content_block_delta",
		"index": index,
		"delta": delta,
	})
}

func (s *sseWriter) blockStop(index int) {
	s.send("content_block_stop", map[string]any{
		"type":  "content_block_stop",
		"index": index,
	})
}

func (s *sseWriter) messageEnd(stopReason string, outputTokens int) {
	s.send("message_delta", map[string]any{
		"type":  "message_delta",
		"delta": map[string]any{"stop_reason": stopReason, "stop_sequence": nil},
		"usage": map[string]any{"output_tokens": outputTokens},
	})
	s.send("message_stop", map[string]any{"type": "message_stop"})
}

// WriteResultAsSSE replays a synchronous result as the event sequence a
// streaming client expects: one block per thinking, text, and tool_use
// segment, each delivered as a single delta.
func WriteResultAsSSE(w http.ResponseWriter, model string, res *UpstreamResult) {
	sse := newSSEWriter(w)
	sse.messageStart(newMessageID(), model, res.InputTokens)

	index := 0

	if res.Reasoning != "" {
		sse.blockStart(index, map[string]any{"type": "thinking", "thinking": ""})
		sse.blockDelta(index, map[string]any{"type": "thinking_delta", "thinking": res.Reasoning})
		sse.blockStop(index)
		index++
	}

	if res.Content != "" {
		sse.blockStart(index, map[string]any{"type": "text", "text": ""})
		sse.blockDelta(index, map[string]any{"type": "text_delta", "text": res.Content})
		sse.blockStop(index)
		index++
	}

	for _, tc := range res.ToolCalls {
		input, err := json.Marshal(toolInput(tc.Arguments))
		if err != nil {
			input = []byte("{}")
		}
		sse.blockStart(index, map[string]any{
			"type":  "tool_use",
			"id":    newToolUseID(),
			"name":  tc.Name,
			"input": map[string]any{},
		})
		sse.blockDelta(index, map[string]any{"type": "input_json_delta", "partial_json": string(input)})
		sse.blockStop(index)
		index++
	}

	if index == 0 {
		sse.blockStart(0, map[string]any{"type": "text", "text": ""})
		sse.blockDelta(0, map[string]any{"type": "text_delta", "text": "(empty response)"})
		sse.blockStop(0)
	}

	sse.messageEnd(res.StopReason, res.OutputTokens)
}

// StreamUpstream translates the runtime's SSE chunk stream into
// Anthropic events as chunks arrive. Reasoning deltas open a thinking
// block, text deltas open a text block; the thinking block closes when
// the first text arrives. Returns the number of deltas forwarded.
func StreamUpstream(w http.ResponseWriter, upstream io.Reader, model string) int {
	sse := newSSEWriter(w)
	sse.messageStart(newMessageID(), model, 0)

	outputTokens := 0
	index := 0
	inReasoning := false
	reasoningStarted := false
	contentStarted := false

	scanner := bufio.NewScanner(upstream)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := line[len("data: "):]
		if data == "[DONE]" {
			break
		}
		if !gjson.Valid(data) {
			continue
		}
		delta := gjson.Get(data, "choices.0.delta")
		reasoning := delta.Get("reasoning").String()
		text := delta.Get("content").String()

		if reasoning != "" {
			if !reasoningStarted {
				reasoningStarted = true
				inReasoning = true
				sse.blockStart(index, map[string]any{"type": "thinking", "thinking": ""})
			}
			outputTokens++
			sse.blockDelta(index, map[string]any{"type": "thinking_delta", "thinking": reasoning})
		}

		if text != "" {
			if inReasoning {
				sse.blockStop(index)
				index++
				inReasoning = false
			}
			if !contentStarted {
				contentStarted = true
				sse.blockStart(index, map[string]any{"type": "text", "text": ""})
			}
			outputTokens++
			sse.blockDelta(index, map[string]any{"type": "text_delta", "text": text})
		}
	}

	if inReasoning {
		sse.blockStop(index)
		index++
	}

	if !contentStarted {
		if reasoningStarted {
			sse.blockStart(index, map[string]any{"type": "text", "text": ""})
		}
		sse.blockDelta(index, map[string]any{"type": "text_delta", "text": "(thinking limit reached)"})
	}

	sse.blockStop(index)
	sse.messageEnd("end_turn", outputTokens)
	return outputTokens
}
