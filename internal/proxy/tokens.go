package proxy

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/tidwall/gjson"
)

// TokenCounter estimates request token counts for the count_tokens
// endpoint. Exact accounting does not matter here; the agent only uses
// the figure for context budgeting.
type TokenCounter struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
}

func (c *TokenCounter) encoder() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err == nil {
			c.enc = enc
		}
	})
	return c.enc
}

// countText counts tokens in s, falling back to the chars/4 heuristic
// when the encoder is unavailable (no cached BPE data, no network).
func (c *TokenCounter) countText(s string) int {
	if enc := c.encoder(); enc != nil {
		return len(enc.Encode(s, nil, nil))
	}
	return len(s) / 4
}

// CountRequest sums tokens over the text content of an Anthropic
// Messages request: message text blocks plus the system prompt.
func (c *TokenCounter) CountRequest(body []byte) int {
	req := gjson.ParseBytes(body)
	total := 0

	for _, msg := range req.Get("messages").Array() {
		content := msg.Get("content")
		if content.IsArray() {
			for _, block := range content.Array() {
				if block.Get("type").String() == "text" {
					total += c.countText(block.Get("text").String())
				}
			}
		} else {
			total += c.countText(content.String())
		}
	}

	system := req.Get("system")
	if system.IsArray() {
		for _, block := range system.Array() {
			total += c.countText(block.Get("text").String())
		}
	} else if system.Exists() {
		total += c.countText(system.String())
	}

	return total
}
