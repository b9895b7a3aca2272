// Package proxy - toolcalls.go recovers tool calls that local models emit
// as XML-ish text instead of structured function calls.
//
// DESIGN: Three extraction passes, tried in order; the first pass that
// yields calls wins:
//  1. <invoke name="Tool"><parameter name="p">v</parameter></invoke>
//  2. Qwen style: <function=Tool><parameter=p>v</parameter></function>
//  3. Bare tags named after a known tool: <Tool><p>v</p></Tool>
package proxy

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ToolCall is a tool invocation in OpenAI function-call form.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON object
}

var (
	invokePattern    = regexp.MustCompile(`(?s)<invoke\s+name="([^"]+)">(.*?)</invoke>`)
	invokeParam      = regexp.MustCompile(`(?s)<parameter\s+name="([^"]+)">(.*?)</parameter>`)
	qwenFuncPattern  = regexp.MustCompile(`(?s)<function=([^>]+)>(.*?)</function>`)
	qwenParamPattern = regexp.MustCompile(`(?s)<parameter=([^>]+)>(.*?)</parameter>`)
	wrapperTags      = regexp.MustCompile(`</?(?:function_calls|action)[^>]*>`)
	toolCallTags     = regexp.MustCompile(`</?tool_call>`)
	innerTagOpen     = regexp.MustCompile(`<([a-zA-Z_]\w*)>`)
)

// ExtractToolCalls parses tool calls out of model text. Returns the
// extracted calls and the text with the call markup removed.
func ExtractToolCalls(text string, knownTools []string) ([]ToolCall, string) {
	remaining := text

	var calls []ToolCall
	for _, m := range invokePattern.FindAllStringSubmatch(text, -1) {
		params := map[string]string{}
		for _, pm := range invokeParam.FindAllStringSubmatch(m[2], -1) {
			params[pm[1]] = strings.TrimSpace(pm[2])
		}
		calls = append(calls, ToolCall{
			ID:        newCallID(),
			Name:      m[1],
			Arguments: marshalParams(params),
		})
		remaining = strings.Replace(remaining, m[0], "", 1)
	}
	remaining = wrapperTags.ReplaceAllString(remaining, "")
	if len(calls) > 0 {
		return calls, strings.TrimSpace(remaining)
	}

	for _, m := range qwenFuncPattern.FindAllStringSubmatch(text, -1) {
		params := map[string]string{}
		for _, pm := range qwenParamPattern.FindAllStringSubmatch(m[2], -1) {
			params[strings.TrimSpace(pm[1])] = strings.TrimSpace(pm[2])
		}
		if len(params) == 0 {
			continue
		}
		calls = append(calls, ToolCall{
			ID:        newCallID(),
			Name:      strings.TrimSpace(m[1]),
			Arguments: marshalParams(params),
		})
		remaining = strings.Replace(remaining, m[0], "", 1)
	}
	remaining = toolCallTags.ReplaceAllString(remaining, "")
	if len(calls) > 0 {
		return calls, strings.TrimSpace(remaining)
	}

	for _, tool := range knownTools {
		pat := regexp.MustCompile(`(?s)<` + regexp.QuoteMeta(tool) + `>(.*?)</` + regexp.QuoteMeta(tool) + `>`)
		for _, m := range pat.FindAllStringSubmatch(text, -1) {
			params := extractTaggedParams(m[1])
			if len(params) == 0 {
				continue
			}
			calls = append(calls, ToolCall{
				ID:        newCallID(),
				Name:      tool,
				Arguments: marshalParams(params),
			})
			remaining = strings.Replace(remaining, m[0], "", 1)
		}
	}
	remaining = wrapperTags.ReplaceAllString(remaining, "")

	return calls, strings.TrimSpace(remaining)
}

// extractTaggedParams scans <name>value</name> pairs. Regexp
// backreferences are unavailable, so closing tags are matched manually.
func extractTaggedParams(s string) map[string]string {
	params := map[string]string{}
	for {
		loc := innerTagOpen.FindStringSubmatchIndex(s)
		if loc == nil {
			break
		}
		name := s[loc[2]:loc[3]]
		rest := s[loc[1]:]
		closing := "</" + name + ">"
		end := strings.Index(rest, closing)
		if end < 0 {
			s = rest
			continue
		}
		params[name] = strings.TrimSpace(rest[:end])
		s = rest[end+len(closing):]
	}
	return params
}

func marshalParams(params map[string]string) string {
	b, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(b)
}
