package proxy

import (
	"strings"

	"github.com/google/uuid"
)

// Wire identifiers follow the Anthropic and OpenAI conventions the agent
// expects: msg_ for messages, toolu_ for tool_use blocks, call_ for
// OpenAI-side tool calls.

func uuidHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func newMessageID() string { return "msg_" + uuidHex()[:24] }

func newToolUseID() string { return "toolu_" + uuidHex()[:24] }

func newCallID() string { return "call_" + uuidHex()[:8] }

func newRequestID() string { return uuid.NewString() }
