package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"server/internal/domain"
	"server/internal/providers/media"
)

func newTestImageOrchestrator(repo *fakeProjectRepo, images *fakeImageRepo, runner *fakeRunner) *ImageOrchestrator {
	gate := NewGate(repo, nopLogger)
	return NewImageOrchestrator(repo, images, runner, gate, nopLogger, 0)
}

func testSettings() domain.ImageGenerationSettings {
	return domain.ImageGenerationSettings{
		Model:       "gemini-2.5-flash-image",
		NumImages:   2,
		AspectRatio: "9:16",
		Size:        "1080x1920",
	}
}

func testScenes(n int) []domain.SceneResult {
	scenes := make([]domain.SceneResult, 0, n)
	for i := 1; i <= n; i++ {
		scenes = append(scenes, domain.SceneResult{
			Index:       i,
			Purpose:     fmt.Sprintf("purpose %d", i),
			ImagePrompt: fmt.Sprintf("visual %d", i),
		})
	}
	return scenes
}

func projectWithScenes(id string, n int, settings domain.ImageGenerationSettings) *domain.Project {
	p := testProject(id)
	p.Status = domain.ProjectStatusCompleted
	p.Output = &domain.GeneratedOutput{
		Format:                  domain.GeneratedOutputFormat,
		Scenes:                  testScenes(n),
		ImageGenerationSettings: &settings,
	}
	return p
}

func TestValidateImageSettings(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.ImageGenerationSettings)
		wantErr error
	}{
		{name: "valid", mutate: func(s *domain.ImageGenerationSettings) {}},
		{
			name:    "unknown model",
			mutate:  func(s *domain.ImageGenerationSettings) { s.Model = "dall-e-9000" },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "zero images",
			mutate:  func(s *domain.ImageGenerationSettings) { s.NumImages = 0 },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing aspect ratio",
			mutate:  func(s *domain.ImageGenerationSettings) { s.AspectRatio = " " },
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing size",
			mutate:  func(s *domain.ImageGenerationSettings) { s.Size = "" },
			wantErr: domain.ErrValidation,
		},
		{
			name: "edit model without references",
			mutate: func(s *domain.ImageGenerationSettings) {
				s.Model = "gemini-2.5-flash-image-edit"
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "edit model with references",
			mutate: func(s *domain.ImageGenerationSettings) {
				s.Model = "gemini-2.5-flash-image-edit"
				s.ReferenceImageURLs = []string{"https://cdn.test/ref.png"}
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			settings := testSettings()
			tc.mutate(&settings)
			err := ValidateImageSettings(settings)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateImageSettings returned error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("ValidateImageSettings error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestGenerateInsertsOneRowPerUnit(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 3, testSettings()))
	images := &fakeImageRepo{}
	runner := &fakeRunner{}
	orch := newTestImageOrchestrator(repo, images, runner)

	if err := orch.Generate(context.Background(), "p1", testScenes(3), testSettings()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got := images.count("p1"); got != 6 {
		t.Fatalf("image rows = %d, want 6", got)
	}

	rows, _ := images.ListByProject(context.Background(), "p1")
	seen := map[string]bool{}
	for _, row := range rows {
		key := fmt.Sprintf("%d/%d", row.SceneIndex, row.ImageIndex)
		if seen[key] {
			t.Fatalf("duplicate row for %s", key)
		}
		seen[key] = true
		if row.ImageURL == "" {
			t.Fatalf("row %s has empty URL", key)
		}
	}
}

func TestGenerateIsolatesUnitFailures(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 2, testSettings()))
	images := &fakeImageRepo{}
	runner := &fakeRunner{fn: func(modelID string, input media.RunInput) ([]string, error) {
		if input.SceneIndex == 1 && input.ImageIndex == 0 {
			return nil, errors.New("provider 500")
		}
		return []string{fmt.Sprintf("https://cdn.test/%d/%d.png", input.SceneIndex, input.ImageIndex)}, nil
	}}
	orch := newTestImageOrchestrator(repo, images, runner)

	if err := orch.Generate(context.Background(), "p1", testScenes(2), testSettings()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	// One of four units failed; the other three persisted.
	if got := images.count("p1"); got != 3 {
		t.Fatalf("image rows = %d, want 3", got)
	}
}

func TestGenerateStopsAtCancellationCheckpoint(t *testing.T) {
	project := projectWithScenes("p1", 3, testSettings())
	project.Status = domain.ProjectStatusCancelled
	repo := newFakeProjectRepo(project)
	runner := &fakeRunner{}
	orch := newTestImageOrchestrator(repo, &fakeImageRepo{}, runner)

	if err := orch.Generate(context.Background(), "p1", testScenes(3), testSettings()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if runner.callCount() != 0 {
		t.Fatalf("runner calls = %d, want 0 for cancelled project", runner.callCount())
	}
}

func TestGenerateRejectsInvalidSettings(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 1, testSettings()))
	orch := newTestImageOrchestrator(repo, &fakeImageRepo{}, &fakeRunner{})

	settings := testSettings()
	settings.Model = "unknown"
	err := orch.Generate(context.Background(), "p1", testScenes(1), settings)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Generate error = %v, want ErrValidation", err)
	}
}

func TestRegenerateAllClearsBeforeGenerating(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 2, testSettings()))
	images := &fakeImageRepo{}
	// Stale rows from the previous pass.
	_ = images.Insert(context.Background(), []domain.GeneratedImage{
		{ProjectID: "p1", SceneIndex: 1, ImageIndex: 0, ImageURL: "https://cdn.test/stale.png"},
	})
	runner := &fakeRunner{}
	orch := newTestImageOrchestrator(repo, images, runner)

	if err := orch.RegenerateAll(context.Background(), "p1"); err != nil {
		t.Fatalf("RegenerateAll returned error: %v", err)
	}

	if len(images.deletedProjects) != 1 || images.deletedProjects[0] != "p1" {
		t.Fatalf("deletedProjects = %v, want [p1]", images.deletedProjects)
	}
	if got := images.count("p1"); got != 4 {
		t.Fatalf("image rows = %d, want 4", got)
	}
	rows, _ := images.ListByProject(context.Background(), "p1")
	for _, row := range rows {
		if row.ImageURL == "https://cdn.test/stale.png" {
			t.Fatal("stale row survived regeneration")
		}
	}
}

func TestRegenerateSceneTouchesOnlyThatScene(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 3, testSettings()))
	images := &fakeImageRepo{}
	runner := &fakeRunner{}
	orch := newTestImageOrchestrator(repo, images, runner)

	// Populate all scenes first.
	if err := orch.Generate(context.Background(), "p1", testScenes(3), testSettings()); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	before, _ := images.ListByProject(context.Background(), "p1")
	urlsOf := func(rows []domain.GeneratedImage, scene int) map[int]string {
		out := map[int]string{}
		for _, row := range rows {
			if row.SceneIndex == scene {
				out[row.ImageIndex] = row.ImageURL
			}
		}
		return out
	}
	scene1Before := urlsOf(before, 1)
	scene3Before := urlsOf(before, 3)

	if err := orch.RegenerateScene(context.Background(), "p1", 2, ""); err != nil {
		t.Fatalf("RegenerateScene returned error: %v", err)
	}

	if len(images.deletedScenes) != 1 || images.deletedScenes[0] != 2 {
		t.Fatalf("deletedScenes = %v, want [2]", images.deletedScenes)
	}
	after, _ := images.ListByProject(context.Background(), "p1")
	if len(after) != 6 {
		t.Fatalf("image rows = %d, want 6", len(after))
	}
	for idx, url := range urlsOf(after, 1) {
		if scene1Before[idx] != url {
			t.Fatalf("scene 1 image %d changed during scene 2 regeneration", idx)
		}
	}
	for idx, url := range urlsOf(after, 3) {
		if scene3Before[idx] != url {
			t.Fatalf("scene 3 image %d changed during scene 2 regeneration", idx)
		}
	}
}

func TestRegenerateSceneWithPromptOverride(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 2, testSettings()))
	images := &fakeImageRepo{}
	runner := &fakeRunner{}
	orch := newTestImageOrchestrator(repo, images, runner)

	if err := orch.RegenerateScene(context.Background(), "p1", 2, "neon alley at night"); err != nil {
		t.Fatalf("RegenerateScene returned error: %v", err)
	}

	// The override is persisted so later full regenerations use it too.
	project, _ := repo.GetByID(context.Background(), "p1")
	if got := project.Output.Scene(2).ImagePrompt; got != "neon alley at night" {
		t.Fatalf("persisted scene prompt = %q, want override", got)
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.calls) != 2 {
		t.Fatalf("runner calls = %d, want 2", len(runner.calls))
	}
	for _, call := range runner.calls {
		if call.SceneIndex != 2 {
			t.Fatalf("runner called for scene %d, want only scene 2", call.SceneIndex)
		}
		if !strings.Contains(call.Prompt, "neon alley at night") {
			t.Fatalf("instruction %q does not use the override", call.Prompt)
		}
	}
}

func TestRegenerateSceneUnknownIndex(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 2, testSettings()))
	orch := newTestImageOrchestrator(repo, &fakeImageRepo{}, &fakeRunner{})

	err := orch.RegenerateScene(context.Background(), "p1", 9, "")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("RegenerateScene error = %v, want ErrNotFound", err)
	}
}

func TestRegenerateAllWithoutScenes(t *testing.T) {
	project := testProject("p1")
	project.Output = &domain.GeneratedOutput{Format: domain.GeneratedOutputFormat, Scenes: []domain.SceneResult{}}
	repo := newFakeProjectRepo(project)
	orch := newTestImageOrchestrator(repo, &fakeImageRepo{}, &fakeRunner{})

	err := orch.RegenerateAll(context.Background(), "p1")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("RegenerateAll error = %v, want ErrValidation", err)
	}
}

func TestUpdateSettingsValidatesBeforeStoring(t *testing.T) {
	repo := newFakeProjectRepo(projectWithScenes("p1", 1, testSettings()))
	orch := newTestImageOrchestrator(repo, &fakeImageRepo{}, &fakeRunner{})

	bad := testSettings()
	bad.NumImages = 0
	if err := orch.UpdateSettings(context.Background(), "p1", bad); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("UpdateSettings error = %v, want ErrValidation", err)
	}

	good := testSettings()
	good.NumImages = 4
	if err := orch.UpdateSettings(context.Background(), "p1", good); err != nil {
		t.Fatalf("UpdateSettings returned error: %v", err)
	}
	project, _ := repo.GetByID(context.Background(), "p1")
	if project.Output.ImageGenerationSettings.NumImages != 4 {
		t.Fatalf("stored NumImages = %d, want 4", project.Output.ImageGenerationSettings.NumImages)
	}
}
