package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel    = "gemini-2.0-flash"
	geminiTemperature     = 0.3
	geminiMaxOutputTokens = 800
	geminiTimeout         = 30 * time.Second
)

// GeminiGenerator answers free-form questions with Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client for model (default gemini-2.0-flash).
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements chatbot.Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, geminiTimeout)
	defer cancel()

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](geminiTemperature),
		MaxOutputTokens: geminiMaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("Gemini generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("Gemini returned an empty response")
	}
	return text, nil
}

// OfflineMessage is what OfflineGenerator answers with.
const OfflineMessage = "I'm currently in offline mode. Please set GEMINI_API_KEY in your .env file to enable AI-powered assistance."

// OfflineGenerator is used when no Gemini key is configured.
type OfflineGenerator struct{}

// Generate implements chatbot.Generator.
func (OfflineGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return OfflineMessage, nil
}
