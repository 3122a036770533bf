package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/text"
)

// Planner determines how many scenes to produce and what each is for, by
// asking the text provider to interpret the content type's scene policy
// against the user's inputs. The provider decides within the policy bounds;
// the planner only clamps. Output is best effort, not reproducible.
type Planner struct {
	completer text.Completer
	logger    infra.Logger
}

func NewPlanner(completer text.Completer, logger infra.Logger) *Planner {
	return &Planner{completer: completer, logger: logger}
}

type plannerPayload struct {
	Scenes []struct {
		Purpose string `json:"purpose"`
		Notes   string `json:"notes"`
	} `json:"scenes"`
	TextOverlaySuggestions []string `json:"textOverlaySuggestions"`
	ThumbnailPrompt        string   `json:"thumbnailPrompt"`
}

// Plan produces the scene plan for one session.
func (p *Planner) Plan(ctx context.Context, session *GenerationSession) (domain.ScenePlan, error) {
	policy := session.ContentType.ScenePolicy

	raw, err := p.completer.Complete(ctx, text.CompletionRequest{
		SystemPrompt: session.ContentType.Prompting.SystemPrompt,
		UserPrompt:   p.buildPlanningPrompt(session, policy),
		Temperature:  0.5,
	})
	if err != nil {
		return domain.ScenePlan{}, fmt.Errorf("plan scenes: %w", err)
	}

	var payload plannerPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.ScenePlan{}, fmt.Errorf("%w: decode scene plan: %v", domain.ErrProviderFailure, err)
	}

	plan := domain.ScenePlan{
		TextOverlaySuggestions: payload.TextOverlaySuggestions,
		ThumbnailPrompt:        payload.ThumbnailPrompt,
	}
	for _, scene := range payload.Scenes {
		purpose := strings.TrimSpace(scene.Purpose)
		if purpose == "" {
			continue
		}
		plan.Scenes = append(plan.Scenes, domain.PlannedScene{
			Purpose: purpose,
			Notes:   strings.TrimSpace(scene.Notes),
		})
		if len(plan.Scenes) == policy.MaxScenes {
			break
		}
	}

	// Pad up to the policy minimum when the provider planned too few.
	if len(plan.Scenes) < policy.MinScenes {
		p.logger.Warn().
			Str("project_id", session.ProjectID).
			Int("planned", len(plan.Scenes)).
			Int("min", policy.MinScenes).
			Msg("orchestrator: provider under-planned, padding to policy minimum")
		titler := cases.Title(language.Und)
		product := productName(session.Inputs)
		for len(plan.Scenes) < policy.MinScenes {
			n := len(plan.Scenes) + 1
			plan.Scenes = append(plan.Scenes, domain.PlannedScene{
				Purpose: fmt.Sprintf("%s highlight %d", titler.String(product), n),
			})
		}
	}

	for i := range plan.Scenes {
		plan.Scenes[i].Index = i + 1
	}
	return plan, nil
}

func (p *Planner) buildPlanningPrompt(session *GenerationSession, policy domain.SceneGenerationPolicy) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan an advertising storyboard for content type %q.\n", session.ContentType.Name)
	if inputs, err := json.Marshal(session.Inputs); err == nil {
		fmt.Fprintf(&b, "Campaign inputs: %s\n", inputs)
	}
	fmt.Fprintf(&b, "Produce between %d and %d scenes.\n", policy.MinScenes, policy.MaxScenes)
	for _, rule := range policy.Rules {
		fmt.Fprintf(&b, "- %s\n", rule)
	}
	b.WriteString(`
Respond with a JSON object:
{"scenes": [{"purpose": "...", "notes": "..."}], "textOverlaySuggestions": ["..."], "thumbnailPrompt": "..."}
Each scene purpose is one sentence describing that scene's role in the story.`)
	return b.String()
}

func productName(inputs map[string]any) string {
	for _, key := range []string{"product_name", "productName", "title", "name"} {
		if v, ok := inputs[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return "product"
}
