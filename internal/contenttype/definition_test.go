package contenttype

import (
	"testing"
)

func TestParseDefinitionModernShape(t *testing.T) {
	raw := []byte(`{
		"inputsContract": [
			{"key": "product_name", "type": "string", "required": true, "maxLength": 80},
			{"key": "tone", "type": "enum", "values": ["playful", "serious"]}
		],
		"sceneGenerationPolicy": {"minScenes": 3, "maxScenes": 5, "rules": ["start strong"]},
		"prompting": {
			"systemPrompt": "You write ad storyboards.",
			"executionOrder": "Sequential",
			"agents": [
				{"id": "a2", "name": "Art Director", "role": "art_director", "systemPrompt": "sp2", "taskPrompt": "tp2", "temperature": 0.4, "order": 2},
				{"id": "a1", "name": "Copywriter", "systemPrompt": "sp1", "taskPrompt": "tp1", "temperature": "0.9", "order": 1}
			]
		}
	}`)

	ct, err := ParseDefinition("ct-1", "Product Ad", "ads", 3, raw)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if len(ct.InputsContract) != 2 {
		t.Fatalf("inputs = %d, want 2", len(ct.InputsContract))
	}
	if ct.ScenePolicy.MinScenes != 3 || ct.ScenePolicy.MaxScenes != 5 {
		t.Errorf("policy = %+v", ct.ScenePolicy)
	}
	if ct.Prompting.ExecutionOrder != "sequential" {
		t.Errorf("executionOrder = %q", ct.Prompting.ExecutionOrder)
	}

	agents := ct.Prompting.Agents
	if len(agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(agents))
	}
	if agents[0].ID != "a1" || agents[1].ID != "a2" {
		t.Errorf("agents not sorted by order: %q, %q", agents[0].ID, agents[1].ID)
	}
	if agents[0].Role != "copywriter" {
		t.Errorf("role fallback = %q, want slug of name", agents[0].Role)
	}
	if agents[0].Temperature != 0.9 {
		t.Errorf("string temperature = %v, want 0.9", agents[0].Temperature)
	}
}

func TestParseDefinitionLegacyWorkflowShape(t *testing.T) {
	raw := []byte(`{
		"workflow": {
			"systemPrompt": "legacy system",
			"steps": [
				{"name": "Scene Writer", "prompt": "write the scene", "task": "describe shot"},
				{"name": "Text Overlay", "system_prompt": "overlay sp", "instructions": "add text", "temperature": 9}
			]
		}
	}`)

	ct, err := ParseDefinition("ct-legacy", "Legacy", "ads", 1, raw)
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	agents := ct.Prompting.Agents
	if len(agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(agents))
	}
	if agents[0].SystemPrompt != "write the scene" {
		t.Errorf("prompt alias not honored: %q", agents[0].SystemPrompt)
	}
	if agents[0].TaskPrompt != "describe shot" {
		t.Errorf("task alias not honored: %q", agents[0].TaskPrompt)
	}
	if agents[0].Order != 1 || agents[1].Order != 2 {
		t.Errorf("positional order fallback: %d, %d", agents[0].Order, agents[1].Order)
	}
	if agents[1].SystemPrompt != "overlay sp" {
		t.Errorf("snake_case system prompt: %q", agents[1].SystemPrompt)
	}
	if agents[1].Temperature != defaultAgentTemperature {
		t.Errorf("out-of-range temperature should fall back, got %v", agents[1].Temperature)
	}
	if agents[0].ID != "agent-1" {
		t.Errorf("missing id fallback: %q", agents[0].ID)
	}

	// Defaults when the definition has no policy at all.
	if ct.ScenePolicy.MinScenes != 1 || ct.ScenePolicy.MaxScenes != 6 {
		t.Errorf("default policy = %+v", ct.ScenePolicy)
	}
	if ct.Prompting.ExecutionOrder != "sequential" {
		t.Errorf("executionOrder = %q", ct.Prompting.ExecutionOrder)
	}
}

func TestParseDefinitionRejectsUnknownFieldType(t *testing.T) {
	raw := []byte(`{"inputsContract": [{"key": "x", "type": "matrix"}]}`)
	if _, err := ParseDefinition("ct-bad", "Bad", "ads", 1, raw); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestParseDefinitionNoAgents(t *testing.T) {
	ct, err := ParseDefinition("ct-empty", "Empty", "ads", 1, []byte(`{}`))
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	if len(ct.Prompting.Agents) != 0 {
		t.Fatalf("expected no agents, got %d", len(ct.Prompting.Agents))
	}
}
