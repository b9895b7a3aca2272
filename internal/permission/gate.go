// Package permission obtains the user's consent to run the downstream
// agent in unattended tool-execution mode.
//
// DESIGN: Default deny. A local model drives the agent less reliably
// than the cloud API, so letting it modify files and run commands
// without per-action confirmation must be an explicit choice. Anything
// other than an affirmative answer - including empty input and EOF -
// means no.
package permission

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DefaultAffirmatives are the tokens accepted as consent, matched
// case-insensitively. The set is configurable; additional locales can be
// added without touching the decision logic.
var DefaultAffirmatives = []string{"y", "yes", "はい"}

// Decision is the immutable outcome of the permission gate for one
// session.
type Decision struct {
	Granted bool
}

// Gate asks for consent once per session. Interactive reflects whether
// stdin is a terminal; callers set it from a TTY check.
type Gate struct {
	In           io.Reader
	Out          io.Writer
	Interactive  bool
	Affirmatives []string
}

// NewGate creates a Gate reading from in and writing the prompt to out.
func NewGate(in io.Reader, out io.Writer) *Gate {
	return &Gate{In: in, Out: out, Interactive: true, Affirmatives: DefaultAffirmatives}
}

// Decide returns the permission decision. autoGrant (the -y flag) skips
// the prompt and grants. Without a terminal on stdin the prompt is also
// skipped and the default-deny answer applies. Otherwise one line is
// read; only an affirmative token grants consent.
func (g *Gate) Decide(autoGrant bool) Decision {
	if autoGrant {
		return Decision{Granted: true}
	}
	if !g.Interactive {
		return Decision{Granted: false}
	}

	fmt.Fprintln(g.Out)
	fmt.Fprintln(g.Out, "The agent can run in unattended mode: it will modify files and")
	fmt.Fprintln(g.Out, "execute commands without asking for confirmation each time.")
	fmt.Fprint(g.Out, "Enable unattended mode? [y/N]: ")

	line, err := bufio.NewReader(g.In).ReadString('\n')
	if err != nil && line == "" {
		// EOF with nothing typed: deny.
		return Decision{Granted: false}
	}

	answer := strings.ToLower(strings.TrimSpace(line))
	for _, token := range g.Affirmatives {
		if answer == strings.ToLower(token) {
			return Decision{Granted: true}
		}
	}
	return Decision{Granted: false}
}
