package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const coachTemperature = 0.4

func newOpenAIClient(apiKey, baseURL string) openai.Client {
	var opts []option.RequestOption
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

// OpenAIResponses calls the Responses API with the system prompt as
// instructions.
type OpenAIResponses struct {
	client openai.Client
	model  string
}

func NewOpenAIResponses(apiKey, model, baseURL string) *OpenAIResponses {
	return &OpenAIResponses{client: newOpenAIClient(apiKey, baseURL), model: model}
}

func (c *OpenAIResponses) Name() string { return "openai-responses" }

func (c *OpenAIResponses) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:        shared.ResponsesModel(c.model),
		Instructions: openai.String(system),
		Input:        responses.ResponseNewParamsInputUnion{OfString: openai.String(user)},
		Temperature:  openai.Float(coachTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	return resp.OutputText(), nil
}

// OpenAIChat calls Chat Completions. It also serves OpenAI-compatible
// servers such as Ollama through a custom base URL.
type OpenAIChat struct {
	client openai.Client
	model  string
	name   string
}

func NewOpenAIChat(apiKey, model, baseURL string) *OpenAIChat {
	return &OpenAIChat{client: newOpenAIClient(apiKey, baseURL), model: model, name: "openai-chat"}
}

func (c *OpenAIChat) Name() string { return c.name }

func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature: openai.Float(coachTemperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
