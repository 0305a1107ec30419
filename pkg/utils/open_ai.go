package utils

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type OpenAIReviewClient struct {
	client *openai.Client
	model  string
}

func NewOpenAIReviewClient(apiKey, model string) *OpenAIReviewClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIReviewClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (c *OpenAIReviewClient) ReviewCode(ctx context.Context, input CodeReviewInput) (*CodeReviewOutput, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: reviewSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildReviewPrompt(input)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no choices returned")
	}

	return ParseReviewResponse(resp.Choices[0].Message.Content, input.FileName)
}

func (c *OpenAIReviewClient) Close() error { return nil }
