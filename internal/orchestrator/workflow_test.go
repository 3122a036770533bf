package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"server/internal/domain"
	"server/internal/providers/text"
)

func newTestRunner(completer text.Completer) *WorkflowRunner {
	return NewWorkflowRunner(NewAgentExecutor(completer), nopLogger)
}

func TestRunSceneExecutesAgentsInOrder(t *testing.T) {
	var order []string
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		switch {
		case strings.Contains(req.UserPrompt, "Set the concept."):
			order = append(order, "a1")
			return json.RawMessage(`{"camera":{"shot":"wide"}}`), nil
		case strings.Contains(req.UserPrompt, "Write the image prompt."):
			order = append(order, "a2")
			return agentJSON("kopi susu on a wooden table"), nil
		}
		return nil, errors.New("unexpected prompt")
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	planned := domain.PlannedScene{Index: 1, Purpose: "hook the viewer"}

	result, err := newTestRunner(completer).RunScene(context.Background(), session, planned)
	if err != nil {
		t.Fatalf("RunScene returned error: %v", err)
	}

	if len(order) != 2 || order[0] != "a1" || order[1] != "a2" {
		t.Fatalf("agent order = %v, want [a1 a2]", order)
	}
	if result.Index != 1 {
		t.Fatalf("Index = %d, want 1", result.Index)
	}
	if result.ImagePrompt != "kopi susu on a wooden table" {
		t.Fatalf("ImagePrompt = %q", result.ImagePrompt)
	}
	if result.Camera.Shot != "wide" {
		t.Fatalf("Camera.Shot = %q, want %q", result.Camera.Shot, "wide")
	}
	if len(result.AgentContributions) != 2 {
		t.Fatalf("AgentContributions len = %d, want 2", len(result.AgentContributions))
	}
	if result.AgentContributions[0].AgentID != "a1" || result.AgentContributions[1].AgentID != "a2" {
		t.Fatalf("contribution ids = [%s %s], want [a1 a2]",
			result.AgentContributions[0].AgentID, result.AgentContributions[1].AgentID)
	}
}

func TestRunSceneLaterAgentsSeeEarlierOutput(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		if strings.Contains(req.UserPrompt, "Set the concept.") {
			return json.RawMessage(`{"concept":"morning ritual"}`), nil
		}
		if !strings.Contains(req.UserPrompt, "morning ritual") {
			t.Fatal("second agent prompt does not include first agent output")
		}
		return agentJSON("steaming cup in dawn light"), nil
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	if _, err := newTestRunner(completer).RunScene(context.Background(), session, domain.PlannedScene{Index: 1, Purpose: "hook"}); err != nil {
		t.Fatalf("RunScene returned error: %v", err)
	}
}

func TestRunSceneFailsFastAndSkipsRemainingAgents(t *testing.T) {
	boom := errors.New("provider down")
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		if strings.Contains(req.UserPrompt, "Set the concept.") {
			return nil, boom
		}
		t.Fatal("second agent executed after first agent failed")
		return nil, nil
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	_, err := newTestRunner(completer).RunScene(context.Background(), session, domain.PlannedScene{Index: 2, Purpose: "demo"})
	if !errors.Is(err, boom) {
		t.Fatalf("RunScene error = %v, want wrapped provider error", err)
	}
	if completer.callCount() != 1 {
		t.Fatalf("Complete calls = %d, want 1", completer.callCount())
	}
}

func TestRunSceneLaterFieldsOverrideEarlier(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		if strings.Contains(req.UserPrompt, "Set the concept.") {
			return json.RawMessage(`{"imagePrompt":"first draft","negativePrompt":"blurry"}`), nil
		}
		return json.RawMessage(`{"imagePrompt":"final cut"}`), nil
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	result, err := newTestRunner(completer).RunScene(context.Background(), session, domain.PlannedScene{Index: 1, Purpose: "hook"})
	if err != nil {
		t.Fatalf("RunScene returned error: %v", err)
	}
	if result.ImagePrompt != "final cut" {
		t.Fatalf("ImagePrompt = %q, want later agent's value", result.ImagePrompt)
	}
	// Fields the later agent did not set carry forward.
	if result.NegativePrompt != "blurry" {
		t.Fatalf("NegativePrompt = %q, want %q", result.NegativePrompt, "blurry")
	}
}

func TestRunSceneRequiresImagePrompt(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return json.RawMessage(`{"compositionNotes":"rule of thirds"}`), nil
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	_, err := newTestRunner(completer).RunScene(context.Background(), session, domain.PlannedScene{Index: 1, Purpose: "hook"})
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("RunScene error = %v, want ErrProviderFailure", err)
	}
}

func TestRunSceneNoAgentsConfigured(t *testing.T) {
	ct := testContentType()
	ct.Prompting.Agents = nil
	session := NewSession("p1", ct, map[string]any{})

	_, err := newTestRunner(&fakeCompleter{}).RunScene(context.Background(), session, domain.PlannedScene{Index: 1, Purpose: "hook"})
	if !errors.Is(err, domain.ErrNoAgentsConfigured) {
		t.Fatalf("RunScene error = %v, want ErrNoAgentsConfigured", err)
	}
}

func TestRunSceneNonObjectOutputKeptInProvenanceOnly(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		if strings.Contains(req.UserPrompt, "Set the concept.") {
			return json.RawMessage(`"just a string"`), nil
		}
		return agentJSON("usable prompt"), nil
	}}

	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})
	result, err := newTestRunner(completer).RunScene(context.Background(), session, domain.PlannedScene{Index: 1, Purpose: "hook"})
	if err != nil {
		t.Fatalf("RunScene returned error: %v", err)
	}
	if result.ImagePrompt != "usable prompt" {
		t.Fatalf("ImagePrompt = %q", result.ImagePrompt)
	}
	if len(result.AgentContributions) != 2 {
		t.Fatalf("AgentContributions len = %d, want 2", len(result.AgentContributions))
	}
	if string(result.AgentContributions[0].Output) != `"just a string"` {
		t.Fatalf("first contribution output = %s", result.AgentContributions[0].Output)
	}
}
