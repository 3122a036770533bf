package text

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"server/internal/domain"
)

type GeminiOptions struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiCompleter calls the Gemini generateContent API with JSON response
// mode. Transient failures (429, 5xx, transport errors) are retried with
// exponential backoff before the error is surfaced.
type GeminiCompleter struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

const (
	geminiDefaultTimeout = 30 * time.Second
	geminiMaxRetryWindow = 45 * time.Second
)

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	CandidateCount   int     `json:"candidateCount,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func NewGeminiCompleter(opts GeminiOptions) (*GeminiCompleter, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: geminiDefaultTimeout}
	}
	return &GeminiCompleter{
		apiKey:  strings.TrimSpace(opts.APIKey),
		model:   model,
		baseURL: baseURL,
		client:  client,
	}, nil
}

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	payload := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: req.UserPrompt}},
		}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      req.Temperature,
			CandidateCount:   1,
			ResponseMimeType: "application/json",
		},
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		payload.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: req.SystemPrompt}},
		}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode gemini request: %w", err)
	}

	var out json.RawMessage
	operation := func() error {
		result, opErr := g.call(ctx, body)
		if opErr != nil {
			return opErr
		}
		out = result
		return nil
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(geminiMaxRetryWindow),
	), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *GeminiCompleter) call(ctx context.Context, body []byte) (json.RawMessage, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: build gemini request: %v", domain.ErrProviderFailure, err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini call: %v", domain.ErrProviderFailure, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		return nil, backoff.Permanent(fmt.Errorf("%w: gemini status %d", domain.ErrProviderFailure, resp.StatusCode))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: decode gemini response: %v", domain.ErrProviderFailure, err))
	}
	text := extractText(out)
	if text == "" {
		return nil, backoff.Permanent(fmt.Errorf("%w: gemini returned no candidates", domain.ErrProviderFailure))
	}
	parsed, err := ExtractJSON(text)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	return parsed, nil
}

func (g *GeminiCompleter) endpoint() string {
	return fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
}

func extractText(resp geminiResponse) string {
	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text
			}
		}
	}
	return ""
}
