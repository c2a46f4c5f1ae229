package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"document-qa/internal/config"
	"document-qa/internal/models"
)

// Generator is the part of a langchaingo model the retriever calls.
type Generator interface {
	GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error)
}

// Client sends chat completions to the configured model.
type Client struct {
	llm         Generator
	model       string
	temperature float64
}

// New creates a completion client for cfg.Provider.
func New(cfg config.LLMConfig) (*Client, error) {
	log.Debug().Interface("llmConfig", map[string]any{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Creating completion client")

	var (
		llm Generator
		err error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		llm, err = openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
	case config.ProviderOllama:
		llm, err = ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
	default:
		return nil, fmt.Errorf("%w: completion provider %q", models.ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s client: %w", cfg.Provider, err)
	}
	return NewClient(llm, cfg.Model, cfg.Temperature), nil
}

// NewClient wraps an existing model.
func NewClient(llm Generator, model string, temperature float64) *Client {
	return &Client{llm: llm, model: model, temperature: temperature}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// GenerateContent returns the text of the first choice. Every failure is
// reported as a provider error.
func (c *Client) GenerateContent(ctx context.Context, messages []llms.MessageContent) (string, error) {
	res, err := c.llm.GenerateContent(ctx, messages, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("%w: completion: %w", models.ErrProvider, err)
	}
	if res == nil || len(res.Choices) == 0 {
		return "", fmt.Errorf("%w: completion: %w", models.ErrProvider, errEmptyResponse)
	}
	return res.Choices[0].Content, nil
}

var errEmptyResponse = errors.New("model returned no choices")
