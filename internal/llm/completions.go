package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Completions speaks the OpenAI-style chat completions protocol with bearer
// token auth.
type Completions struct {
	name   string
	model  string
	client openai.Client
}

// NewCompletions builds a completions adapter rooted at base.
func NewCompletions(s Settings, base string) *Completions {
	opts := []option.RequestOption{
		option.WithBaseURL(completionsBase(base) + "/"),
		option.WithHTTPClient(s.httpClient()),
		// Retry policy belongs to the caller.
		option.WithMaxRetries(0),
	}
	if s.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.APIKey))
	}
	return &Completions{
		name:   string(s.Provider),
		model:  s.Model,
		client: openai.NewClient(opts...),
	}
}

func (c *Completions) Name() string { return c.name }

// Complete sends one chat completion. A 404 is reported as
// ErrProtocolUnsupported.
func (c *Completions) Complete(ctx context.Context, req Request) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    msgs,
		Temperature: openai.Float(req.Temperature),
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.RawJSON()
			if body == "" {
				body = apiErr.Message
			}
			if apiErr.StatusCode == http.StatusNotFound {
				return "", fmt.Errorf("%s chat completions: %w", c.name, ErrProtocolUnsupported)
			}
			return "", &RequestError{Provider: c.name, StatusCode: apiErr.StatusCode, Body: body}
		}
		return "", fmt.Errorf("%s chat completions: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
