package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"server/internal/domain"
	"server/internal/providers/text"
)

// AgentExecutor runs a single agent step against the text provider. Provider
// errors propagate to the workflow runner unchanged; retry policy lives
// inside the provider client, not here.
type AgentExecutor struct {
	completer text.Completer
}

func NewAgentExecutor(completer text.Completer) *AgentExecutor {
	return &AgentExecutor{completer: completer}
}

// ExecuteStep makes exactly one provider call for the given agent, records
// the output in the scratchpad under a key derived from the agent's role, and
// returns the provenance record.
func (e *AgentExecutor) ExecuteStep(
	ctx context.Context,
	session *GenerationSession,
	scene domain.PlannedScene,
	agent domain.AgentSpec,
	pad *Scratchpad,
) (domain.AgentContribution, error) {
	userPrompt := e.buildUserPrompt(session, scene, agent, pad)
	systemPrompt := joinPrompts(session.ContentType.Prompting.SystemPrompt, agent.SystemPrompt)

	output, err := e.completer.Complete(ctx, text.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  agent.Temperature,
	})
	if err != nil {
		return domain.AgentContribution{}, fmt.Errorf("agent %s (scene %d): %w", agent.ID, scene.Index, err)
	}

	pad.Write(scratchpadKey(agent.Role), output)

	return domain.AgentContribution{
		AgentID:   agent.ID,
		AgentName: agent.Name,
		Role:      agent.Role,
		Order:     agent.Order,
		Input:     userPrompt,
		Output:    output,
	}, nil
}

func (e *AgentExecutor) buildUserPrompt(
	session *GenerationSession,
	scene domain.PlannedScene,
	agent domain.AgentSpec,
	pad *Scratchpad,
) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Content type: %s\n", session.ContentType.Name)
	if inputs, err := json.Marshal(session.Inputs); err == nil {
		fmt.Fprintf(&b, "Campaign inputs: %s\n", inputs)
	}
	if session.Locale != "" {
		fmt.Fprintf(&b, "Target locale: %s\n", session.Locale)
	}
	fmt.Fprintf(&b, "\nScene %d purpose: %s\n", scene.Index, scene.Purpose)
	if strings.TrimSpace(scene.Notes) != "" {
		fmt.Fprintf(&b, "Scene notes: %s\n", scene.Notes)
	}

	if snapshot := pad.Snapshot(); len(snapshot) > 0 {
		b.WriteString("\nEarlier contributions to this scene:\n")
		for _, entry := range snapshot {
			fmt.Fprintf(&b, "%s: %s\n", entry.Key, entry.Value)
		}
	}

	b.WriteString("\nYour task:\n")
	b.WriteString(agent.TaskPrompt)
	b.WriteString("\n\nRespond with a single JSON object describing your contribution to the scene.")
	return b.String()
}

func joinPrompts(prompts ...string) string {
	var parts []string
	for _, p := range prompts {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n\n")
}

func scratchpadKey(role string) string {
	key := strings.TrimSpace(strings.ToLower(role))
	key = strings.ReplaceAll(key, " ", "_")
	if key == "" {
		return "agent"
	}
	return key
}
