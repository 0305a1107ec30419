package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type CodeReviewInput struct {
	Code     string
	FileName string
}

type CodeReviewOutput struct {
	Review      string
	Score       int
	IssuesFound int
	Language    string
}

// ReviewClientInterface is the single outbound call to the LLM provider.
type ReviewClientInterface interface {
	ReviewCode(ctx context.Context, input CodeReviewInput) (*CodeReviewOutput, error)
	Close() error
}

// NewReviewClient picks the provider implementation by name.
func NewReviewClient(provider, apiKey, model string) (ReviewClientInterface, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIReviewClient(apiKey, model), nil
	case "gemini":
		return NewGeminiReviewClient(apiKey, model)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s. Use 'openai' or 'gemini'", provider)
	}
}

const reviewSystemPrompt = `You are a senior software engineer performing a code review.
Return JSON only, matching exactly:
{"review": "<markdown review>", "score": <integer 0-100>, "issues_found": <integer>, "language": "<language name>"}
The review must cover correctness, security, performance, readability and concrete suggestions.`

func buildReviewPrompt(input CodeReviewInput) string {
	var b strings.Builder
	if input.FileName != "" {
		fmt.Fprintf(&b, "File: %s\n", input.FileName)
	}
	if lang := DetectLanguage(input.FileName); lang != "" {
		fmt.Fprintf(&b, "Language hint: %s\n", lang)
	}
	b.WriteString("Code:\n```\n")
	b.WriteString(input.Code)
	b.WriteString("\n```\n")
	return b.String()
}

type reviewPayload struct {
	Review      string `json:"review"`
	Score       int    `json:"score"`
	IssuesFound int    `json:"issues_found"`
	Language    string `json:"language"`
}

// ParseReviewResponse accepts the model output. When the model ignores the JSON
// instruction the whole text becomes the review and the metrics stay zero.
func ParseReviewResponse(raw string, fileName string) (*CodeReviewOutput, error) {
	content := cleanJSONResponse(raw)
	if content == "" {
		return nil, fmt.Errorf("empty review response")
	}

	out := &CodeReviewOutput{Language: DetectLanguage(fileName)}

	var payload reviewPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil || strings.TrimSpace(payload.Review) == "" {
		out.Review = strings.TrimSpace(raw)
		return out, nil
	}

	out.Review = strings.TrimSpace(payload.Review)
	out.Score = clamp(payload.Score, 0, 100)
	out.IssuesFound = max(payload.IssuesFound, 0)
	if payload.Language != "" {
		out.Language = payload.Language
	}
	return out, nil
}

// cleanJSONResponse strips markdown fences and prose around the outermost object.
func cleanJSONResponse(response string) string {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
