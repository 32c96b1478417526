package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"clause-extractor/internal/config"
	"clause-extractor/internal/model"
	"clause-extractor/internal/pkg/logger"
)

// GeminiClient extracts clauses through the Google Gemini API.
type GeminiClient struct {
	apiKey string
	model  string
}

func NewGeminiClient(cfg config.GeminiConfig) *GeminiClient {
	return &GeminiClient{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (g *GeminiClient) ExtractClauses(ctx context.Context, input Input) ([]model.Clause, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", ErrAuth)
	}

	prompt := systemPrompt + "\n\n" + buildExtractionPrompt(input)

	start := time.Now()
	var content string
	err := withRetry(ctx, func() error {
		var err error
		content, err = g.generate(ctx, prompt)
		return err
	})
	if err != nil {
		return nil, err
	}

	clauses, err := ParseClauses(content)
	if err != nil {
		return nil, err
	}
	logger.Debug(ctx, "gemini clause extraction complete",
		"model", g.model,
		"clauses", len(clauses),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return clauses, nil
}

func (g *GeminiClient) generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("%w: create gemini client: %v", ErrUnavailable, err)
	}
	defer client.Close()

	gm := client.GenerativeModel(g.model)
	gm.SetTemperature(0.3)

	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", classifyGeminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates returned from Gemini", ErrMalformedResponse)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content returned from Gemini", ErrMalformedResponse)
	}
	if txt, ok := candidate.Content.Parts[0].(genai.Text); ok {
		return string(txt), nil
	}
	return "", fmt.Errorf("%w: unexpected response format from Gemini", ErrMalformedResponse)
}

func classifyGeminiError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: status %d", ErrAuth, apiErr.Code)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: status %d", ErrRateLimited, apiErr.Code)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: status %d", ErrUnavailable, apiErr.Code)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
