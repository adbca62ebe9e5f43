// Package gemini implements the order pipeline's model-backed collaborators
// on top of the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrNoFunctionCall is returned when the model answers without calling the
// forced function.
var ErrNoFunctionCall = errors.New("model returned no function call")

// generator is the slice of genai.Models the collaborators use.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client sends single-shot requests to Gemini.
type Client struct {
	models generator
	model  string
	logger *slog.Logger
}

// NewClient creates a Gemini client for model.
func NewClient(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newClient(client.Models, model, logger), nil
}

func newClient(models generator, model string, logger *slog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{models: models, model: model, logger: logger.With("component", "gemini", "model", model)}
}

// callFunction forces the model to call decl and returns its arguments.
func (c *Client) callFunction(ctx context.Context, systemPrompt string, parts []*genai.Part, decl *genai.FunctionDeclaration) (map[string]any, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       ptr[float32](0),
		Tools:             []*genai.Tool{{FunctionDeclarations: []*genai.FunctionDeclaration{decl}}},
		ToolConfig: &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode:                 genai.FunctionCallingConfigModeAny,
				AllowedFunctionNames: []string{decl.Name},
			},
		},
	}

	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", decl.Name, err)
	}
	for _, call := range resp.FunctionCalls() {
		if call.Name == decl.Name {
			c.logger.Debug("function call received", "function", call.Name, "args", call.Args)
			return call.Args, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoFunctionCall, decl.Name)
}

// generateText returns the plain text answer to parts.
func (c *Client) generateText(ctx context.Context, systemPrompt string, parts []*genai.Part) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       ptr[float32](0),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

func ptr[T any](v T) *T { return &v }
