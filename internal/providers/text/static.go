package text

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// StaticCompleter produces deterministic synthetic agent output. It keeps the
// worker operational in local and CI environments where no provider key is
// configured, mirroring how asset generation degrades elsewhere in the stack.
type StaticCompleter struct{}

func NewStaticCompleter() *StaticCompleter {
	return &StaticCompleter{}
}

func (s *StaticCompleter) Complete(ctx context.Context, req CompletionRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	titler := cases.Title(language.Und)
	subject := firstLine(req.UserPrompt)
	if subject == "" {
		subject = "Product"
	}
	doc := map[string]any{
		"imagePrompt": fmt.Sprintf("%s, studio product photography, clean composition", titler.String(subject)),
		"camera": map[string]string{
			"shot": "medium close-up",
			"lens": "50mm",
		},
		"environment": map[string]string{
			"location": "studio",
			"lighting": "softbox",
		},
		"onScreenText": map[string]string{
			"text": titler.String(subject),
		},
	}
	return json.Marshal(doc)
}

func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 60 {
				line = line[:60]
			}
			return line
		}
	}
	return ""
}
