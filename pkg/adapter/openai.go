package adapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIAdapter implements the Adapter interface for OpenAI models.
type OpenAIAdapter struct {
	client openai.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter.
func NewOpenAIAdapter(apiKey string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIAdapter{client: client}, nil
}

// Name returns the adapter identifier.
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Models returns the list of supported OpenAI models.
func (a *OpenAIAdapter) Models() []string {
	return []string{
		"gpt-4o",
		"gpt-4o-mini",
		"gpt-4.1",
	}
}

// Generate sends the request to OpenAI.
func (a *OpenAIAdapter) Generate(ctx context.Context, model string, req Request) (*Response, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(model),
		Messages:            chatMessages(req),
		MaxCompletionTokens: openai.Int(req.maxTokens()),
	})
	if err != nil {
		return nil, NewGenerationError(a.Name(), model, openAIStatus(err), err)
	}

	return chatResponse(a.Name(), model, resp)
}

func chatMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	return append(messages, openai.UserMessage(req.Prompt))
}

func chatResponse(provider, model string, resp *openai.ChatCompletion) (*Response, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, &GenerationError{Provider: provider, Model: model, Err: fmt.Errorf("%s returned no choices", provider)}
	}

	return &Response{
		Content: resp.Choices[0].Message.Content,
		Adapter: provider,
		Model:   model,
		Usage:   newUsage(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	}, nil
}

func openAIStatus(err error) int {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
