package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/infra"
)

// WorkflowRunner executes a content type's full ordered agent list once for
// one planned scene. Agents run strictly sequentially within a scene; the
// first agent failure fails the whole scene and skips the remaining agents.
// Distinct scenes are independent runner invocations and may run concurrently.
type WorkflowRunner struct {
	executor *AgentExecutor
	logger   infra.Logger
}

func NewWorkflowRunner(executor *AgentExecutor, logger infra.Logger) *WorkflowRunner {
	return &WorkflowRunner{executor: executor, logger: logger}
}

// RunScene produces one SceneResult. The scratchpad is created fresh per
// invocation so concurrent scenes never share agent memory.
func (w *WorkflowRunner) RunScene(
	ctx context.Context,
	session *GenerationSession,
	planned domain.PlannedScene,
) (domain.SceneResult, error) {
	agents := session.ContentType.Prompting.Agents
	if len(agents) == 0 {
		return domain.SceneResult{}, domain.ErrNoAgentsConfigured
	}

	pad := NewScratchpad()
	pad.Reset()

	contributions := make([]domain.AgentContribution, 0, len(agents))
	draft := sceneDraft{}

	for _, agent := range agents {
		if err := ctx.Err(); err != nil {
			return domain.SceneResult{}, err
		}
		contribution, err := w.executor.ExecuteStep(ctx, session, planned, agent, pad)
		if err != nil {
			return domain.SceneResult{}, fmt.Errorf("scene %d: %w", planned.Index, err)
		}
		contributions = append(contributions, contribution)
		draft.merge(contribution.Output)

		w.logger.Debug().
			Str("project_id", session.ProjectID).
			Int("scene_index", planned.Index).
			Str("agent", agent.ID).
			Msg("orchestrator: agent step complete")
	}

	result := draft.toResult(planned, contributions, session)
	if strings.TrimSpace(result.ImagePrompt) == "" {
		return domain.SceneResult{}, fmt.Errorf("scene %d: %w: no agent produced an image prompt",
			planned.Index, domain.ErrProviderFailure)
	}
	return result, nil
}

// sceneDraft accumulates agent contributions into the final scene shape.
// Agents contribute partial documents; later agents override earlier fields
// they set, everything else carries forward.
type sceneDraft struct {
	ImagePrompt      string
	NegativePrompt   string
	Camera           domain.Camera
	Environment      domain.Environment
	OnScreenText     domain.OnScreenText
	CompositionNotes string
}

type draftPayload struct {
	ImagePrompt      string              `json:"imagePrompt"`
	NegativePrompt   string              `json:"negativePrompt"`
	Camera           domain.Camera       `json:"camera"`
	Environment      domain.Environment  `json:"environment"`
	OnScreenText     domain.OnScreenText `json:"onScreenText"`
	CompositionNotes string              `json:"compositionNotes"`

	// Aliases used by simpler agents.
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

func (d *sceneDraft) merge(output json.RawMessage) {
	var payload draftPayload
	if err := json.Unmarshal(output, &payload); err != nil {
		// Non-object output stays in the provenance trail but contributes
		// nothing to the assembled scene.
		return
	}

	setString(&d.ImagePrompt, payload.ImagePrompt)
	setString(&d.ImagePrompt, payload.Prompt)
	setString(&d.NegativePrompt, payload.NegativePrompt)
	setString(&d.CompositionNotes, payload.CompositionNotes)

	setString(&d.Camera.Shot, payload.Camera.Shot)
	setString(&d.Camera.Lens, payload.Camera.Lens)
	setString(&d.Camera.Movement, payload.Camera.Movement)

	setString(&d.Environment.Location, payload.Environment.Location)
	setString(&d.Environment.TimeOfDay, payload.Environment.TimeOfDay)
	setString(&d.Environment.Lighting, payload.Environment.Lighting)

	setString(&d.OnScreenText.Text, payload.OnScreenText.Text)
	setString(&d.OnScreenText.Text, payload.Text)
	setString(&d.OnScreenText.StyleNotes, payload.OnScreenText.StyleNotes)
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func (d *sceneDraft) toResult(
	planned domain.PlannedScene,
	contributions []domain.AgentContribution,
	session *GenerationSession,
) domain.SceneResult {
	return domain.SceneResult{
		Index:              planned.Index,
		Purpose:            planned.Purpose,
		ImagePrompt:        d.ImagePrompt,
		NegativePrompt:     d.NegativePrompt,
		Camera:             d.Camera,
		Environment:        d.Environment,
		OnScreenText:       d.OnScreenText,
		CompositionNotes:   d.CompositionNotes,
		AgentContributions: contributions,
		GenerationContext: domain.GenerationContext{
			ContentTypeName: session.ContentType.Name,
			Inputs:          session.Inputs,
			Purpose:         planned.Purpose,
			Locale:          session.Locale,
		},
	}
}
