package utils

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiReviewClient implements ReviewClientInterface using Google's Gemini models
type GeminiReviewClient struct {
	client *genai.Client
	model  string
}

func NewGeminiReviewClient(apiKey, model string) (*GeminiReviewClient, error) {
	if model == "" {
		model = "gemini-1.5-flash" // Free tier model
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiReviewClient{
		client: client,
		model:  model,
	}, nil
}

func (c *GeminiReviewClient) ReviewCode(ctx context.Context, input CodeReviewInput) (*CodeReviewOutput, error) {
	m := c.client.GenerativeModel(c.model)
	m.ResponseMIMEType = "application/json"
	m.SetTemperature(0.2)
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(reviewSystemPrompt)}}

	resp, err := m.GenerateContent(ctx, genai.Text(buildReviewPrompt(input)))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("gemini: no content")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	return ParseReviewResponse(b.String(), input.FileName)
}

func (c *GeminiReviewClient) Close() error {
	return c.client.Close()
}
