package proxy

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// parseSSE returns the event names and JSON payloads in order.
func parseSSE(t *testing.T, body string) ([]string, []gjson.Result) {
	t.Helper()
	var events []string
	var payloads []gjson.Result
	for _, chunk := range strings.Split(body, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		lines := strings.SplitN(chunk, "\n", 2)
		require.Len(t, lines, 2, "chunk %q", chunk)
		events = append(events, strings.TrimPrefix(lines[0], "event: "))
		data := strings.TrimPrefix(lines[1], "data: ")
		require.True(t, gjson.Valid(data), "payload %q", data)
		payloads = append(payloads, gjson.Parse(data))
	}
	return events, payloads
}

func TestWriteResultAsSSE_TextOnly(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResultAsSSE(rec, "m", &UpstreamResult{
		Content:      "hello",
		StopReason:   "end_turn",
		InputTokens:  7,
		OutputTokens: 2,
	})

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	events, payloads := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", "content_block_stop",
		"message_delta", "message_stop",
	}, events)

	assert.Equal(t, int64(7), payloads[0].Get("message.usage.input_tokens").Int())
	assert.Equal(t, "text", payloads[1].Get("content_block.type").String())
	assert.Equal(t, "hello", payloads[2].Get("delta.text").String())
	assert.Equal(t, "end_turn", payloads[4].Get("delta.stop_reason").String())
	assert.Equal(t, int64(2), payloads[4].Get("usage.output_tokens").Int())
}

func TestWriteResultAsSSE_ThinkingThenTextThenToolUse(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResultAsSSE(rec, "m", &UpstreamResult{
		Reasoning:  "hmm",
		Content:    "running",
		ToolCalls:  []ToolCall{{ID: "call_1", Name: "Bash", Arguments: `{"command":"ls"}`}},
		StopReason: "tool_use",
	})

	events, payloads := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", "content_block_stop", // thinking
		"content_block_start", "content_block_delta", "content_block_stop", // text
		"content_block_start", "content_block_delta", "content_block_stop", // tool_use
		"message_delta", "message_stop",
	}, events)

	assert.Equal(t, "thinking", payloads[1].Get("content_block.type").String())
	assert.Equal(t, "hmm", payloads[2].Get("delta.thinking").String())
	assert.Equal(t, int64(0), payloads[1].Get("index").Int())

	assert.Equal(t, "text", payloads[4].Get("content_block.type").String())
	assert.Equal(t, int64(1), payloads[4].Get("index").Int())

	assert.Equal(t, "tool_use", payloads[7].Get("content_block.type").String())
	assert.Equal(t, "Bash", payloads[7].Get("content_block.name").String())
	assert.Equal(t, int64(2), payloads[7].Get("index").Int())
	assert.Equal(t, "input_json_delta", payloads[8].Get("delta.type").String())
	assert.Equal(t, "ls", gjson.Get(payloads[8].Get("delta.partial_json").String(), "command").String())

	assert.Equal(t, "tool_use", payloads[10].Get("delta.stop_reason").String())
}

func TestWriteResultAsSSE_EmptyResult(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteResultAsSSE(rec, "m", &UpstreamResult{StopReason: "end_turn"})

	events, payloads := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", "content_block_stop",
		"message_delta", "message_stop",
	}, events)
	assert.Equal(t, "(empty response)", payloads[2].Get("delta.text").String())
}

// =============================================================================
// LIVE STREAM TRANSLATION
// =============================================================================

func chunk(delta string) string {
	return `data: {"choices":[{"delta":` + delta + `}]}` + "\n"
}

func TestStreamUpstream_TextChunks(t *testing.T) {
	upstream := strings.NewReader(
		chunk(`{"content":"hel"}`) +
			chunk(`{"content":"lo"}`) +
			"data: [DONE]\n")

	rec := httptest.NewRecorder()
	tokens := StreamUpstream(rec, upstream, "m")

	assert.Equal(t, 2, tokens)

	events, payloads := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", "content_block_delta",
		"content_block_stop",
		"message_delta", "message_stop",
	}, events)
	assert.Equal(t, "hel", payloads[2].Get("delta.text").String())
	assert.Equal(t, "lo", payloads[3].Get("delta.text").String())
	assert.Equal(t, int64(2), payloads[5].Get("usage.output_tokens").Int())
}

func TestStreamUpstream_ReasoningThenText(t *testing.T) {
	upstream := strings.NewReader(
		chunk(`{"reasoning":"think"}`) +
			chunk(`{"content":"answer"}`) +
			"data: [DONE]\n")

	rec := httptest.NewRecorder()
	StreamUpstream(rec, upstream, "m")

	events, payloads := parseSSE(t, rec.Body.String())
	assert.Equal(t, []string{
		"message_start",
		"content_block_start", "content_block_delta", // thinking
		"content_block_stop",
		"content_block_start", "content_block_delta", // text
		"content_block_stop",
		"message_delta", "message_stop",
	}, events)
	assert.Equal(t, "thinking", payloads[1].Get("content_block.type").String())
	assert.Equal(t, "text", payloads[4].Get("content_block.type").String())
	assert.Equal(t, int64(1), payloads[4].Get("index").Int())
}

func TestStreamUpstream_ReasoningOnlyGetsPlaceholderText(t *testing.T) {
	upstream := strings.NewReader(chunk(`{"reasoning":"endless"}`) + "data: [DONE]\n")

	rec := httptest.NewRecorder()
	StreamUpstream(rec, upstream, "m")

	body := rec.Body.String()
	assert.Contains(t, body, "(thinking limit reached)")
}

func TestStreamUpstream_IgnoresMalformedChunks(t *testing.T) {
	upstream := strings.NewReader(
		"data: {garbage\n" +
			": comment line\n" +
			chunk(`{"content":"ok"}`) +
			"data: [DONE]\n")

	rec := httptest.NewRecorder()
	tokens := StreamUpstream(rec, upstream, "m")

	assert.Equal(t, 1, tokens)
	assert.Contains(t, rec.Body.String(), `"text":"ok"`)
}
