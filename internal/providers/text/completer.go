package text

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
)

// CompletionRequest is one structured-output completion call.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
}

// Completer is the contract for text-generation providers. Implementations
// must return a JSON document; retry policy lives inside the implementation,
// callers treat a returned error as final.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error)
}

// ExtractJSON strips markdown code fences that chat models like to wrap
// around JSON output and validates the remainder parses.
func ExtractJSON(raw string) (json.RawMessage, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion", domain.ErrProviderFailure)
	}
	if !json.Valid([]byte(text)) {
		return nil, fmt.Errorf("%w: completion is not valid JSON", domain.ErrProviderFailure)
	}
	return json.RawMessage(text), nil
}
