// Package proxy - translate.go maps Anthropic Messages API requests onto
// the OpenAI chat completions format the model runtime speaks, and the
// runtime's responses back into Anthropic message shape.
//
// DESIGN: Request bodies are polymorphic (system and content are string
// or block list), so parsing goes through gjson rather than static
// structs. Outgoing bodies are plain maps marshaled once.
package proxy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/kn1cht/vibe-local/internal/config"
)

// fallbackModel covers requests that omit the model field.
const fallbackModel = "qwen3-coder:30b"

const truncationMarker = "\n...(truncated for local model)"

// TranslatedRequest is an Anthropic request rewritten for the runtime's
// OpenAI-compatible endpoint.
type TranslatedRequest struct {
	Body         []byte
	Model        string
	Stream       bool     // forwarded to the runtime
	WantsSSE     bool     // client asked for a streaming response
	ToolNames    []string // surviving tools, drives the XML fallback
	MessageCount int
	ToolCount    int
	FilteredOut  int // tools dropped by the allow-list
	SystemChars  int // system prompt length after flattening
	Truncated    bool
}

// TranslateRequest converts an Anthropic /v1/messages body into an
// OpenAI chat completions body, applying the local-model guardrails:
// tool allow-list, system prompt truncation, and the max_tokens cap.
// Tool requests force a synchronous upstream call even when the client
// streams; the response is downgraded to synthesized SSE afterwards.
func TranslateRequest(body []byte, settings config.ProxySettings) (*TranslatedRequest, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON body")
	}
	req := gjson.ParseBytes(body)

	model := req.Get("model").String()
	if model == "" {
		model = fallbackModel
	}

	maxTokens := settings.MaxTokensCap
	if mt := req.Get("max_tokens"); mt.Exists() && int(mt.Int()) < maxTokens {
		maxTokens = int(mt.Int())
	}

	temperature := 0.7
	if t := req.Get("temperature"); t.Exists() {
		temperature = t.Float()
	}

	wantsSSE := req.Get("stream").Bool()

	var toolNames []string
	var oaiTools []map[string]any
	filteredOut := 0
	for _, tool := range req.Get("tools").Array() {
		name := tool.Get("name").String()
		if !settings.ToolAllowed(name) {
			filteredOut++
			continue
		}
		toolType := tool.Get("type").String()
		if toolType != "" && toolType != "custom" {
			continue
		}
		toolNames = append(toolNames, name)
		params := tool.Get("input_schema").Value()
		if params == nil {
			params = map[string]any{}
		}
		oaiTools = append(oaiTools, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        name,
				"description": tool.Get("description").String(),
				"parameters":  params,
			},
		})
	}
	hasTools := len(oaiTools) > 0

	// Tool calls arrive whole or not at all from the runtime, so tool
	// requests go upstream synchronously and stream back synthesized.
	stream := wantsSSE && !hasTools

	var oaiMessages []map[string]any

	sysText, truncated := flattenSystem(req.Get("system"), settings.SystemPromptMaxChars)
	if sysText != "" {
		if hasTools {
			sysText += functionCallingHint(toolNames)
		}
		oaiMessages = append(oaiMessages, map[string]any{"role": "system", "content": sysText})
	}

	messages := req.Get("messages").Array()
	for _, msg := range messages {
		oaiMessages = append(oaiMessages, convertMessage(msg)...)
	}

	oaiReq := map[string]any{
		"model":       model,
		"messages":    oaiMessages,
		"max_tokens":  maxTokens,
		"temperature": temperature,
		"stream":      stream,
	}
	if hasTools {
		oaiReq["tools"] = oaiTools
		oaiReq["tool_choice"] = "auto"
	}

	oaiBody, err := json.Marshal(oaiReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upstream request: %w", err)
	}

	return &TranslatedRequest{
		Body:         oaiBody,
		Model:        model,
		Stream:       stream,
		WantsSSE:     wantsSSE,
		ToolNames:    toolNames,
		MessageCount: len(oaiMessages),
		ToolCount:    len(oaiTools),
		FilteredOut:  filteredOut,
		SystemChars:  len(sysText),
		Truncated:    truncated,
	}, nil
}

// flattenSystem joins system blocks into one string and truncates it to
// maxChars. Claude Code ships system prompts an order of magnitude
// larger than a 30B-class model can follow.
func flattenSystem(system gjson.Result, maxChars int) (string, bool) {
	if !system.Exists() {
		return "", false
	}

	var text string
	if system.IsArray() {
		var parts []string
		for _, block := range system.Array() {
			if block.Get("type").String() == "text" {
				parts = append(parts, block.Get("text").String())
			}
		}
		text = strings.Join(parts, "\n")
	} else {
		text = system.String()
	}

	if len(text) > maxChars {
		return text[:maxChars] + truncationMarker, true
	}
	return text, false
}

// functionCallingHint nudges local models toward the structured
// function-call mechanism instead of writing commands as prose or XML.
func functionCallingHint(toolNames []string) string {
	names := toolNames
	if len(names) > 15 {
		names = names[:15]
	}
	return "\n\n[IMPORTANT: FUNCTION CALLING]\n" +
		"You have tools available via function calling: " + strings.Join(names, ", ") + ".\n" +
		"When you need to perform any action, you MUST use function calls.\n" +
		"Do NOT write commands as plain text. Do NOT output XML tags.\n" +
		"Use the function calling mechanism provided by the API.\n" +
		"Always prefer Bash tool for system commands. Do NOT use Task or AskUserQuestion.\n"
}

// convertMessage maps one Anthropic message to zero or more OpenAI
// messages. tool_result blocks become role "tool" messages; tool_use
// blocks become assistant tool_calls; thinking blocks are dropped.
func convertMessage(msg gjson.Result) []map[string]any {
	role := msg.Get("role").String()
	if role == "" {
		role = "user"
	}
	content := msg.Get("content")

	if !content.IsArray() {
		return []map[string]any{{"role": role, "content": content.String()}}
	}

	var textParts []string
	var toolCalls []map[string]any
	var toolResults []map[string]any

	for _, block := range content.Array() {
		switch block.Get("type").String() {
		case "text":
			textParts = append(textParts, block.Get("text").String())
		case "thinking":
			// local runtimes have no channel for prior thinking
		case "tool_use":
			id := block.Get("id").String()
			if id == "" {
				id = newCallID()
			}
			args := "{}"
			if input := block.Get("input"); input.Exists() {
				args = input.Raw
			}
			toolCalls = append(toolCalls, map[string]any{
				"id":   id,
				"type": "function",
				"function": map[string]any{
					"name":      block.Get("name").String(),
					"arguments": args,
				},
			})
		case "tool_result":
			toolResults = append(toolResults, map[string]any{
				"role":         "tool",
				"tool_call_id": block.Get("tool_use_id").String(),
				"content":      flattenToolResult(block.Get("content")),
			})
		default:
			if raw := block.Raw; raw != "" {
				textParts = append(textParts, block.String())
			}
		}
	}

	if len(toolResults) > 0 {
		return toolResults
	}

	if len(toolCalls) > 0 {
		var assistantContent any
		if len(textParts) > 0 {
			assistantContent = strings.Join(textParts, "\n")
		}
		return []map[string]any{{
			"role":       "assistant",
			"content":    assistantContent,
			"tool_calls": toolCalls,
		}}
	}

	return []map[string]any{{"role": role, "content": strings.Join(textParts, "\n")}}
}

func flattenToolResult(content gjson.Result) string {
	if !content.IsArray() {
		return content.String()
	}
	var parts []string
	for _, block := range content.Array() {
		if text := block.Get("text"); text.Exists() {
			parts = append(parts, text.String())
		} else {
			parts = append(parts, block.Raw)
		}
	}
	return strings.Join(parts, "\n")
}

// UpstreamResult is a parsed, normalized chat completions response.
type UpstreamResult struct {
	Content      string
	Reasoning    string
	ToolCalls    []ToolCall
	StopReason   string // Anthropic stop_reason
	XMLFallback  bool
	InputTokens  int
	OutputTokens int
}

// ParseUpstreamResponse normalizes a synchronous runtime response. When
// the runtime returned no structured tool calls but the text smells like
// XML tool markup, the fallback extractor recovers them.
func ParseUpstreamResponse(body []byte, toolNames []string) *UpstreamResult {
	resp := gjson.ParseBytes(body)
	choice := resp.Get("choices.0")
	message := choice.Get("message")

	res := &UpstreamResult{
		Content:      message.Get("content").String(),
		Reasoning:    message.Get("reasoning").String(),
		InputTokens:  int(resp.Get("usage.prompt_tokens").Int()),
		OutputTokens: int(resp.Get("usage.completion_tokens").Int()),
	}

	for _, tc := range message.Get("tool_calls").Array() {
		res.ToolCalls = append(res.ToolCalls, ToolCall{
			ID:        tc.Get("id").String(),
			Name:      tc.Get("function.name").String(),
			Arguments: tc.Get("function.arguments").String(),
		})
	}

	finish := choice.Get("finish_reason").String()
	if finish == "" {
		finish = "end_turn"
	}

	if len(res.ToolCalls) == 0 && res.Content != "" && len(toolNames) > 0 {
		extracted, cleaned := ExtractToolCalls(res.Content, toolNames)
		if len(extracted) > 0 {
			res.ToolCalls = extracted
			res.Content = cleaned
			res.XMLFallback = true
			finish = "tool_calls"
		}
	}

	res.StopReason = mapStopReason(finish)
	return res
}

func mapStopReason(finishReason string) string {
	switch finishReason {
	case "tool_calls":
		return "tool_use"
	case "stop":
		return "end_turn"
	default:
		return finishReason
	}
}

// toolInput decodes a tool call's arguments string. Malformed JSON is
// preserved under a "raw" key rather than dropped.
func toolInput(arguments string) any {
	var v any
	if err := json.Unmarshal([]byte(arguments), &v); err != nil || v == nil {
		return map[string]any{"raw": arguments}
	}
	return v
}

// BuildMessagesResponse renders an UpstreamResult as an Anthropic
// Messages API response body.
func BuildMessagesResponse(model string, res *UpstreamResult) []byte {
	var blocks []map[string]any

	if res.Reasoning != "" {
		blocks = append(blocks, map[string]any{"type": "thinking", "thinking": res.Reasoning})
	}
	if res.Content != "" {
		blocks = append(blocks, map[string]any{"type": "text", "text": res.Content})
	}
	for _, tc := range res.ToolCalls {
		id := tc.ID
		if !strings.HasPrefix(id, "toolu_") {
			id = newToolUseID()
		}
		blocks = append(blocks, map[string]any{
			"type":  "tool_use",
			"id":    id,
			"name":  tc.Name,
			"input": toolInput(tc.Arguments),
		})
	}
	if len(blocks) == 0 {
		blocks = append(blocks, map[string]any{"type": "text", "text": res.Reasoning})
	}

	body, _ := json.Marshal(map[string]any{
		"id":            newMessageID(),
		"type":          "message",
		"role":          "assistant",
		"content":       blocks,
		"model":         model,
		"stop_reason":   res.StopReason,
		"stop_sequence": nil,
		"usage": map[string]any{
			"input_tokens":                res.InputTokens,
			"output_tokens":               res.OutputTokens,
			"cache_creation_input_tokens": 0,
			"cache_read_input_tokens":     0,
		},
	})
	return body
}
