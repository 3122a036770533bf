package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"server/internal/domain"
	"server/internal/providers/text"
)

func TestPlanAssignsSequentialIndices(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return planJSON("hook", "demo", "call to action"), nil
	}}
	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})

	plan, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Scenes) != 3 {
		t.Fatalf("scene count = %d, want 3", len(plan.Scenes))
	}
	for i, scene := range plan.Scenes {
		if scene.Index != i+1 {
			t.Fatalf("scene %d Index = %d, want %d", i, scene.Index, i+1)
		}
	}
	if plan.ThumbnailPrompt != "hero shot" {
		t.Fatalf("ThumbnailPrompt = %q, want %q", plan.ThumbnailPrompt, "hero shot")
	}
	if len(plan.TextOverlaySuggestions) != 1 {
		t.Fatalf("TextOverlaySuggestions len = %d, want 1", len(plan.TextOverlaySuggestions))
	}
}

func TestPlanClampsToPolicyMaximum(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return planJSON("s1", "s2", "s3", "s4", "s5"), nil
	}}
	ct := testContentType()
	ct.ScenePolicy = domain.SceneGenerationPolicy{MinScenes: 1, MaxScenes: 3}
	session := NewSession("p1", ct, map[string]any{"product_name": "kopi susu"})

	plan, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Scenes) != 3 {
		t.Fatalf("scene count = %d, want clamped to 3", len(plan.Scenes))
	}
}

func TestPlanPadsToPolicyMinimum(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return planJSON("hook"), nil
	}}
	ct := testContentType()
	ct.ScenePolicy = domain.SceneGenerationPolicy{MinScenes: 3, MaxScenes: 6}
	session := NewSession("p1", ct, map[string]any{"product_name": "kopi susu"})

	plan, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Scenes) != 3 {
		t.Fatalf("scene count = %d, want padded to 3", len(plan.Scenes))
	}
	for i, scene := range plan.Scenes {
		if scene.Index != i+1 {
			t.Fatalf("scene %d Index = %d, want %d", i, scene.Index, i+1)
		}
		if scene.Purpose == "" {
			t.Fatalf("padded scene %d has empty purpose", i)
		}
	}
}

func TestPlanSkipsScenesWithoutPurpose(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return json.RawMessage(`{"scenes":[{"purpose":"hook"},{"purpose":"  "},{"purpose":"close"}]}`), nil
	}}
	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})

	plan, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if err != nil {
		t.Fatalf("Plan returned error: %v", err)
	}
	if len(plan.Scenes) != 2 {
		t.Fatalf("scene count = %d, want 2", len(plan.Scenes))
	}
	if plan.Scenes[1].Purpose != "close" || plan.Scenes[1].Index != 2 {
		t.Fatalf("scene 2 = %+v, want purpose close at index 2", plan.Scenes[1])
	}
}

func TestPlanDecodeFailure(t *testing.T) {
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return json.RawMessage(`[1,2,3]`), nil
	}}
	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})

	_, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("Plan error = %v, want ErrProviderFailure", err)
	}
}

func TestPlanPropagatesProviderError(t *testing.T) {
	boom := errors.New("quota exceeded")
	completer := &fakeCompleter{fn: func(req text.CompletionRequest) (json.RawMessage, error) {
		return nil, boom
	}}
	session := NewSession("p1", testContentType(), map[string]any{"product_name": "kopi susu"})

	_, err := NewPlanner(completer, nopLogger).Plan(context.Background(), session)
	if !errors.Is(err, boom) {
		t.Fatalf("Plan error = %v, want wrapped provider error", err)
	}
}
