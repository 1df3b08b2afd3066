package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"

	"newsfeed/internal/config"
	"newsfeed/internal/ports"
)

// OllamaClient implements ports.TextGenerator against a local Ollama server.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

var _ ports.TextGenerator = (*OllamaClient)(nil)

// NewOllamaClient builds a client from configuration.
func NewOllamaClient(cfg config.OllamaConfig) (*OllamaClient, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse ollama url: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &OllamaClient{
		client:  ollama.NewClient(base, &http.Client{}),
		model:   cfg.Model,
		timeout: timeout,
	}, nil
}

// Generate runs a non-streaming completion and returns the response text.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := false
	var response strings.Builder
	err := c.client.Generate(ctx, &ollama.GenerateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: &stream,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}, func(res ollama.GenerateResponse) error {
		response.WriteString(res.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}

	return response.String(), nil
}
