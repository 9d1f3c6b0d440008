// Package llm wraps Genkit behind the narrow generation surface the
// rest of the application consumes: streaming chat, one-shot
// completion for title summarization, and model discovery.
package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"
	"golang.org/x/time/rate"

	"github.com/keelanv/parley/internal/config"
	"github.com/keelanv/parley/internal/session"
)

// Sentinel errors for the client.
var (
	ErrConfigNil            = errors.New("config cannot be nil")
	ErrGenkitInit           = errors.New("failed to initialize genkit")
	ErrModelListUnsupported = errors.New("model listing is only available for the ollama provider")
)

// errStopStream signals that the consumer stopped iterating. It never
// escapes StreamChat.
var errStopStream = errors.New("stream consumer stopped")

// Request pacing for the generation backend. Local Ollama handles one
// request at a time anyway; this mostly protects hosted providers from
// bursty title finalizations stacking on top of chat sends.
const (
	requestsPerSecond = 2
	requestBurst      = 4
)

// Client is the generation backend adapter. Safe for concurrent use.
type Client struct {
	g       *genkit.Genkit
	logger  *slog.Logger
	limiter *rate.Limiter

	provider   string
	ollamaHost string

	// ollamaPlugin is non-nil only for the ollama provider, which
	// requires explicit model registration.
	ollamaPlugin *ollama.Ollama

	mu      sync.Mutex
	defined map[string]bool
}

// New initializes Genkit with the configured provider and registers
// the default model.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		logger:     logger,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		provider:   cfg.Provider,
		ollamaHost: cfg.OllamaHost,
		defined:    make(map[string]bool),
	}

	switch cfg.Provider {
	case config.ProviderOllama:
		c.ollamaPlugin = &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		c.g = genkit.Init(ctx, genkit.WithPlugins(c.ollamaPlugin))
		if c.g == nil {
			return nil, ErrGenkitInit
		}
		// Ollama has no model auto-discovery.
		c.ollamaPlugin.DefineModel(c.g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		c.defined[cfg.ModelName] = true
		logger.Info("initialized generation backend",
			"provider", cfg.Provider, "model", cfg.ModelName, "host", cfg.OllamaHost)

	default: // gemini
		c.g = genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if c.g == nil {
			return nil, ErrGenkitInit
		}
		logger.Info("initialized generation backend",
			"provider", cfg.Provider, "model", cfg.ModelName)
	}

	return c, nil
}

// EnsureModel registers bareName with the backend so it can be
// addressed by later generate calls. Only the ollama provider needs
// registration; everything else is a no-op.
func (c *Client) EnsureModel(bareName string) {
	if c.ollamaPlugin == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.defined[bareName] {
		return
	}
	c.ollamaPlugin.DefineModel(c.g, ollama.ModelDefinition{
		Name: bareName,
		Type: "chat",
	}, nil)
	c.defined[bareName] = true
}

// StreamChat sends history to model and yields incremental text
// fragments in arrival order. The sequence terminates on completion,
// on error (yielded as the final element), or when the consumer stops
// iterating.
func (c *Client) StreamChat(ctx context.Context, model string, history []session.Message) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if err := c.limiter.Wait(ctx); err != nil {
			yield("", fmt.Errorf("rate limit wait: %w", err))
			return
		}

		msgs := make([]*ai.Message, 0, len(history))
		for _, m := range history {
			if m.Role == session.RoleUser {
				msgs = append(msgs, ai.NewUserMessage(ai.NewTextPart(m.Content)))
			} else {
				msgs = append(msgs, ai.NewModelMessage(ai.NewTextPart(m.Content)))
			}
		}

		stopped := false
		_, err := genkit.Generate(ctx, c.g,
			ai.WithModelName(model),
			ai.WithMessages(msgs...),
			ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
				if !yield(chunk.Text(), nil) {
					stopped = true
					return errStopStream
				}
				return nil
			}),
		)
		if err != nil && !stopped && !errors.Is(err, errStopStream) {
			yield("", fmt.Errorf("generate: %w", err))
		}
	}
}

// Generate performs a single non-streaming completion.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(model),
		ai.WithPrompt(prompt),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return resp.Text(), nil
}
