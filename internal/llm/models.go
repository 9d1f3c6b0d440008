package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const modelListTimeout = 10 * time.Second

// tagsResponse mirrors the Ollama /api/tags payload, reduced to what
// we read.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Models lists the models installed on the Ollama server, sorted as
// the server reports them. The Genkit plugin exposes no listing call,
// so this talks to the tags endpoint directly.
func (c *Client) Models(ctx context.Context) ([]string, error) {
	if c.provider != "ollama" {
		return nil, ErrModelListUnsupported
	}

	ctx, cancel := context.WithTimeout(ctx, modelListTimeout)
	defer cancel()

	url := strings.TrimSuffix(c.ollamaHost, "/") + "/api/tags"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build model list request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list models: unexpected status %s", resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	return names, nil
}
