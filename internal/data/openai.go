package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/elliehq/issue-relay/internal/biz/domain"
	"github.com/elliehq/issue-relay/internal/biz/repo"
)

const analyzerSystemPrompt = `You summarize a short chat transcript that a reviewer flagged as describing a software issue.
Write a one-paragraph summary of the problem being discussed: what is broken, where it was observed, and any reproduction hints.
Do not invent details. Do not include names. Reply with the summary only.`

// analyzerRepo implements the optional OpenAI pre-analysis
type analyzerRepo struct {
	client *openai.Client
	model  string
}

// NewAnalyzerRepo creates the analyzer. Returns nil when no API key is
// configured: analysis is then left entirely to the automation service.
func NewAnalyzerRepo(apiKey, model string) repo.AnalyzerRepo {
	if apiKey == "" {
		return nil
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &analyzerRepo{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Summarize produces a short issue summary of the bundle's context
func (r *analyzerRepo) Summarize(ctx context.Context, bundle *domain.ContextBundle) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var transcript strings.Builder
	for _, m := range bundle.Messages {
		fmt.Fprintf(&transcript, "[%s] %s: %s\n", m.Timestamp.Format("15:04"), m.Sender, m.Text)
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: analyzerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: transcript.String()},
		},
		Temperature: 0.2,
		MaxTokens:   300,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
