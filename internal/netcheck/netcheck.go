// Package netcheck decides between local and remote execution by probing
// a remote endpoint once, with a bounded timeout.
package netcheck

import (
	"context"
	"net/http"
	"time"
)

// DefaultProbeURL is the cloud endpoint whose reachability selects
// remote mode.
const DefaultProbeURL = "https://api.anthropic.com"

// DefaultTimeout bounds the probe. A slow link counts as unreachable.
const DefaultTimeout = 3 * time.Second

// IsReachable performs a single HTTP probe against url. Any failure,
// including timeout, means "not reachable" - never an error. Reachability
// matters here, not the status code: an HTTP error still proves the
// network path works.
func IsReachable(ctx context.Context, url string, timeout time.Duration) bool {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
