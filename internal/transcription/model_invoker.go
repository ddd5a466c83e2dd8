package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog/log"
)

// ModelConfig describes how to reach the hosted transcription model.
type ModelConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// ModelInvoker calls the hosted chat model directly, embedding the
// prompt from the store. This is the backend the fronting endpoint
// relays to.
type ModelInvoker struct {
	client  openai.Client
	cfg     ModelConfig
	prompts *PromptStore
}

// NewModelInvoker builds a model-backed invoker.
func NewModelInvoker(cfg ModelConfig, prompts *PromptStore) (*ModelInvoker, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if prompts == nil {
		return nil, fmt.Errorf("prompt store is required")
	}

	opts := []option.RequestOption{}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Temperature <= 0 {
		// Low but nonzero: transcription wants near-deterministic output.
		cfg.Temperature = 0.2
	}

	return &ModelInvoker{
		client:  openai.NewClient(opts...),
		cfg:     cfg,
		prompts: prompts,
	}, nil
}

// Transcribe implements Invoker against the hosted model.
func (m *ModelInvoker) Transcribe(ctx context.Context, req Request) (*Result, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, failure(FailureInvalidRequest, err, "%s", err.Error())
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Audio File: %s\n", req.AudioReference)
	if hint, ok := req.LanguageGuidance(); ok {
		fmt.Fprintf(&user, "Language Hint: %s\n", hint)
	}

	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(m.cfg.Model),
		Temperature: openai.Float(m.cfg.Temperature),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(m.prompts.Text()),
			openai.UserMessage(user.String()),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &Error{
				Kind:    FailureUpstream,
				Message: fmt.Sprintf("model API returned status %d", apiErr.StatusCode),
				Details: apiErr.Error(),
				Err:     err,
			}
		}
		return nil, failure(FailureModelUnavailable, err, "model unreachable: %v", err)
	}

	if len(completion.Choices) == 0 {
		return nil, failure(FailureModelRefusal, nil, "model produced no output")
	}
	choice := completion.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, &Error{Kind: FailureModelRefusal, Message: "model declined to transcribe", Details: choice.Message.Refusal}
	}
	if choice.FinishReason == "content_filter" {
		return nil, failure(FailureModelRefusal, nil, "model output was filtered")
	}

	raw := extractJSON(choice.Message.Content)
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		log.Error().Str("payload", choice.Message.Content).Msg("model output is not valid JSON")
		return nil, failure(FailureMalformedOutput, err, "decode model output: %v", err)
	}
	if err := ValidateResult(&result); err != nil {
		log.Error().Str("payload", choice.Message.Content).Msg("model output violates output contract")
		return nil, failure(FailureMalformedOutput, err, "%s", err.Error())
	}
	return &result, nil
}

// extractJSON strips markdown code fences some models wrap around JSON.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	return content
}
