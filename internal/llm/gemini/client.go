package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"ats-backend/internal/llm"
	"ats-backend/internal/shared/telemetry"
)

// Client implements llm.Client on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// Config selects the model and credentials. BaseURL is optional.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// NewClient builds a Gemini client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete issues one GenerateContent call and returns its text.
func (c *Client) Complete(ctx context.Context, in llm.Request) (string, error) {
	temp := float32(0)
	gc := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if strings.TrimSpace(in.System) != "" {
		gc.SystemInstruction = genai.NewContentFromText(in.System, genai.RoleUser)
	}
	if in.JSONOutput {
		gc.ResponseMIMEType = "application/json"
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(in.User), gc)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini request: %w", ctx.Err())
		}
		if code, msg, ok := apiStatus(err); ok {
			return "", &llm.StatusError{Provider: "gemini", StatusCode: code, Body: msg}
		}
		return "", fmt.Errorf("gemini request: %w", err)
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", llm.ErrEmptyResponse
	}

	fields := map[string]any{
		"provider":       "gemini",
		"model":          c.model,
		"prompt_version": in.PromptVersion,
	}
	if u := result.UsageMetadata; u != nil {
		fields["prompt_tokens"] = u.PromptTokenCount
		fields["completion_tokens"] = u.CandidatesTokenCount
		fields["total_tokens"] = u.TotalTokenCount
	}
	telemetry.InfoContext(ctx, "llm.response", fields)
	return text, nil
}

func apiStatus(err error) (int, string, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v.Code, v.Message, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return p.Code, p.Message, true
	}
	return 0, "", false
}

var _ llm.Client = (*Client)(nil)
