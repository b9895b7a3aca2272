// Package ollama is a minimal client for the local model runtime's HTTP
// API. The launcher uses one endpoint, the OpenAI-compatible model
// listing, both as a liveness signal and to verify the selected model is
// actually installed.
package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrModelAbsent is returned when the selected model is not in the
// runtime's catalog.
var ErrModelAbsent = errors.New("model not installed")

// ModelAbsentError carries the catalog so callers can show the user what
// is installed as a recovery aid.
type ModelAbsentError struct {
	Model   string
	Catalog []string
}

func (e *ModelAbsentError) Error() string {
	return fmt.Sprintf("model %q not installed (run: ollama pull %s)", e.Model, e.Model)
}

func (e *ModelAbsentError) Unwrap() error { return ErrModelAbsent }

// Client talks to the model runtime service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the runtime at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// ListModels fetches the identifiers of all installed models via the
// OpenAI-compatible listing endpoint.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("runtime not reachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("runtime returned status %d for model listing", resp.StatusCode)
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode model listing: %w", err)
	}

	models := make([]string, 0, len(listing.Data))
	for _, m := range listing.Data {
		models = append(models, m.ID)
	}
	return models, nil
}

// VerifyModel checks that model is present in the runtime's catalog.
// On absence it returns a ModelAbsentError carrying the full catalog.
func (c *Client) VerifyModel(ctx context.Context, model string) error {
	catalog, err := c.ListModels(ctx)
	if err != nil {
		return err
	}

	for _, installed := range catalog {
		if modelMatches(model, installed) {
			return nil
		}
	}

	return &ModelAbsentError{Model: model, Catalog: catalog}
}

// modelMatches compares a requested model against an installed tag.
// A request without an explicit tag matches any tag of that model
// ("qwen3-coder" matches "qwen3-coder:30b").
func modelMatches(requested, installed string) bool {
	if requested == installed {
		return true
	}
	if !strings.Contains(requested, ":") {
		return strings.HasPrefix(installed, requested+":")
	}
	return false
}
