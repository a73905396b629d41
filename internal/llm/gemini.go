package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash"

const systemInstruction = "You are a technical requirement reviewer. Always respond in valid JSON format."

// GeminiConfig configures the Gemini-backed gateway.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiClient implements ModelGateway on top of the Gemini API.
type GeminiClient struct {
	cfg    GeminiConfig
	client *genai.Client
}

// NewGeminiClient constructs a Gemini gateway.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiClient{cfg: cfg, client: client}, nil
}

// Invoke calls the configured default model.
func (c *GeminiClient) Invoke(ctx context.Context, prompt string) (string, error) {
	return c.InvokeModel(ctx, c.cfg.Model, prompt)
}

// InvokeModel calls a specific model with the per-call timeout applied.
func (c *GeminiClient) InvokeModel(ctx context.Context, model, prompt string) (string, error) {
	if strings.TrimSpace(model) == "" {
		model = c.cfg.Model
	}
	callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.client.Models.GenerateContent(callCtx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("gemini request timeout after %s: %w", c.cfg.Timeout, err)
		}
		return "", fmt.Errorf("gemini generate content: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("gemini response did not contain output text")
	}
	return text, nil
}

// Model returns the configured default model identifier.
func (c *GeminiClient) Model() string { return c.cfg.Model }
