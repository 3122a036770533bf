package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"server/internal/domain"
)

type OpenAIOptions struct {
	APIKey       string
	Model        string
	BaseURL      string
	Organization string
	HTTPClient   *http.Client
}

// OpenAICompleter calls the chat completions API with json_object response
// format.
type OpenAICompleter struct {
	apiKey       string
	model        string
	baseURL      string
	organization string
	client       *http.Client
}

const (
	openAIDefaultTimeout = 30 * time.Second
	openAIMaxRetryWindow = 45 * time.Second
)

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *openAIFormat   `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIFormat struct {
	Type string `json:"type"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func NewOpenAICompleter(opts OpenAIOptions) (*OpenAICompleter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("openai api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	return &OpenAICompleter{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        model,
		baseURL:      baseURL,
		organization: strings.TrimSpace(opts.Organization),
		client:       client,
	}, nil
}

func (o *OpenAICompleter) Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	messages := make([]openAIMessage, 0, 2)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.UserPrompt})

	payload := openAIChatRequest{
		Model:          o.model,
		Messages:       messages,
		Temperature:    req.Temperature,
		ResponseFormat: &openAIFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode openai request: %w", err)
	}

	var out json.RawMessage
	operation := func() error {
		result, opErr := o.call(ctx, body)
		if opErr != nil {
			return opErr
		}
		out = result
		return nil
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(openAIMaxRetryWindow),
	), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *OpenAICompleter) call(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: build openai request: %v", domain.ErrProviderFailure, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	if o.organization != "" {
		httpReq.Header.Set("OpenAI-Organization", o.organization)
	}

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: openai call: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: openai status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, backoff.Permanent(fmt.Errorf("%w: openai status %d", domain.ErrProviderFailure, resp.StatusCode))
	}

	var out openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode openai response: %v", domain.ErrProviderFailure, err))
	}
	if len(out.Choices) == 0 {
		return nil, backoff.Permanent(fmt.Errorf("%w: openai returned no choices", domain.ErrProviderFailure))
	}
	parsed, err := ExtractJSON(out.Choices[0].Message.Content)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return parsed, nil
}
