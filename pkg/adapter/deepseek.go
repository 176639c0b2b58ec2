package adapter

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekAdapter implements the Adapter interface for DeepSeek models.
// DeepSeek speaks the OpenAI chat completions protocol, so the OpenAI client
// is pointed at its base URL.
type DeepSeekAdapter struct {
	client      openai.Client
	temperature float64
}

// NewDeepSeekAdapter creates a new DeepSeek adapter.
func NewDeepSeekAdapter(apiKey string) (*DeepSeekAdapter, error) {
	return newDeepSeekAdapter(apiKey, deepseekBaseURL)
}

func newDeepSeekAdapter(apiKey, baseURL string) (*DeepSeekAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepseek API key is required")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
	)
	return &DeepSeekAdapter{client: client, temperature: 0.7}, nil
}

// Name returns the adapter identifier.
func (a *DeepSeekAdapter) Name() string {
	return "deepseek"
}

// Models returns the list of supported DeepSeek models.
func (a *DeepSeekAdapter) Models() []string {
	return []string{
		"deepseek-chat",
		"deepseek-reasoner",
	}
}

// Generate sends the request to DeepSeek.
func (a *DeepSeekAdapter) Generate(ctx context.Context, model string, req Request) (*Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    chatMessages(req),
		MaxTokens:   openai.Int(req.maxTokens()),
		Temperature: openai.Float(a.temperature),
	})
	if err != nil {
		return nil, NewGenerationError(a.Name(), model, openAIStatus(err), err)
	}

	return chatResponse(a.Name(), model, resp)
}
