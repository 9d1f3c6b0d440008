package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"slices"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. Provider validation
	validProviders := []string{ProviderOllama, ProviderGemini}
	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidProvider, c.Provider, validProviders)
	}

	// 2. API key validation (only the gemini provider needs one;
	// Ollama is a local server with no credentials)
	if c.Provider == ProviderGemini && os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for the gemini provider\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// 3. Model configuration validation
	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}

	if c.Provider == ProviderOllama {
		if c.OllamaHost == "" {
			return fmt.Errorf("%w: ollama_host cannot be empty", ErrInvalidOllamaHost)
		}
		u, err := url.Parse(c.OllamaHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q must be a URL like http://localhost:11434",
				ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	// 4. History limit validation
	if c.MaxHistoryMessages < 1 || c.MaxHistoryMessages > MaxAllowedHistoryMessages {
		return fmt.Errorf("%w: must be between 1 and %d, got %d",
			ErrInvalidHistoryLimit, MaxAllowedHistoryMessages, c.MaxHistoryMessages)
	}

	// 5. PostgreSQL configuration validation
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml",
			ErrInvalidPostgresPassword)
	}

	// Warn on the default dev password but don't block - user might be in dev
	if c.PostgresPassword == "parley_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}

	// 6. PostgreSQL SSL mode validation.
	// Modern SSL modes only - exclude deprecated allow/prefer (MITM vulnerable).
	// Reference: https://www.postgresql.org/docs/current/libpq-ssl.html
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
