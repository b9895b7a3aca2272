package permission

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func decide(t *testing.T, input string) Decision {
	t.Helper()
	var out strings.Builder
	gate := NewGate(strings.NewReader(input), &out)
	return gate.Decide(false)
}

func TestDecide_Affirmatives(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"y", "y\n"},
		{"uppercase Y", "Y\n"},
		{"yes", "yes\n"},
		{"mixed case YES", "YeS\n"},
		{"japanese", "はい\n"},
		{"surrounding whitespace", "  y  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, decide(t, tt.input).Granted)
		})
	}
}

func TestDecide_DefaultDeny(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty line", "\n"},
		{"no", "no\n"},
		{"n", "n\n"},
		{"nonsense", "definitely\n"},
		{"eof without input", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, decide(t, tt.input).Granted)
		})
	}
}

func TestDecide_AutoGrant(t *testing.T) {
	var out strings.Builder
	gate := NewGate(strings.NewReader(""), &out)

	decision := gate.Decide(true)
	assert.True(t, decision.Granted)
	// the prompt is skipped entirely
	assert.Empty(t, out.String())
}

func TestDecide_NonInteractiveDenies(t *testing.T) {
	var out strings.Builder
	gate := NewGate(strings.NewReader("y\n"), &out)
	gate.Interactive = false

	decision := gate.Decide(false)
	assert.False(t, decision.Granted)
	// no terminal, no prompt
	assert.Empty(t, out.String())
}

func TestDecide_AutoGrantWinsWithoutTerminal(t *testing.T) {
	var out strings.Builder
	gate := NewGate(strings.NewReader(""), &out)
	gate.Interactive = false

	assert.True(t, gate.Decide(true).Granted)
	assert.Empty(t, out.String())
}

func TestDecide_PromptStatesConsequences(t *testing.T) {
	var out strings.Builder
	gate := NewGate(strings.NewReader("n\n"), &out)
	gate.Decide(false)

	assert.Contains(t, out.String(), "[y/N]")
	assert.Contains(t, out.String(), "unattended")
}

func TestDecide_CustomAffirmatives(t *testing.T) {
	var out strings.Builder
	gate := NewGate(strings.NewReader("oui\n"), &out)
	gate.Affirmatives = []string{"oui"}

	assert.True(t, gate.Decide(false).Granted)
}
