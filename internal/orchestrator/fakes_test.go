package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/providers/media"
	"server/internal/providers/text"
)

var nopLogger = zerolog.Nop()

type fakeCompleter struct {
	mu    sync.Mutex
	calls []text.CompletionRequest
	fn    func(text.CompletionRequest) (json.RawMessage, error)
}

func (f *fakeCompleter) Complete(ctx context.Context, req text.CompletionRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, errors.New("complete not implemented")
	}
	return f.fn(req)
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]*domain.Project

	// appendOrder records scene indices in the order AppendScene saw them.
	appendOrder []int
	statusLog   []domain.ProjectStatus

	appendErr error
}

func newFakeProjectRepo(projects ...*domain.Project) *fakeProjectRepo {
	repo := &fakeProjectRepo{projects: make(map[string]*domain.Project)}
	for _, p := range projects {
		repo.projects[p.ID] = p
	}
	return repo
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProjectRepo) Status(ctx context.Context, id string) (domain.ProjectStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return "", fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return p.Status, nil
}

func (r *fakeProjectRepo) UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p.Status = status
	r.statusLog = append(r.statusLog, status)
	return nil
}

func (r *fakeProjectRepo) InitOutput(ctx context.Context, id string, output *domain.GeneratedOutput) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	clone := *output
	p.Output = &clone
	return nil
}

func (r *fakeProjectRepo) AppendScene(ctx context.Context, id string, scene domain.SceneResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	p, ok := r.projects[id]
	if !ok || p.Output == nil {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p.Output.Scenes = append(p.Output.Scenes, scene)
	r.appendOrder = append(r.appendOrder, scene.Index)
	return nil
}

func (r *fakeProjectRepo) SetImageSettings(ctx context.Context, id string, settings *domain.ImageGenerationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	if p.Output == nil {
		p.Output = &domain.GeneratedOutput{Format: domain.GeneratedOutputFormat, Scenes: []domain.SceneResult{}}
	}
	p.Output.ImageGenerationSettings = settings
	return nil
}

func (r *fakeProjectRepo) SetScenePrompt(ctx context.Context, id string, sceneIndex int, prompt string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	scene := p.Output.Scene(sceneIndex)
	if scene == nil {
		return fmt.Errorf("scene %d: %w", sceneIndex, domain.ErrNotFound)
	}
	scene.ImagePrompt = prompt
	return nil
}

func (r *fakeProjectRepo) setStatus(id string, status domain.ProjectStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.projects[id]; ok {
		p.Status = status
	}
}

func (r *fakeProjectRepo) scenes(id string) []domain.SceneResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok || p.Output == nil {
		return nil
	}
	return append([]domain.SceneResult(nil), p.Output.Scenes...)
}

func (r *fakeProjectRepo) status(id string) domain.ProjectStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[id].Status
}

type fakeImageRepo struct {
	mu   sync.Mutex
	rows []domain.GeneratedImage

	deletedProjects []string
	deletedScenes   []int
}

func (r *fakeImageRepo) Insert(ctx context.Context, rows []domain.GeneratedImage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
outer:
	for _, row := range rows {
		for _, existing := range r.rows {
			if existing.ProjectID == row.ProjectID &&
				existing.SceneIndex == row.SceneIndex &&
				existing.ImageIndex == row.ImageIndex {
				continue outer
			}
		}
		r.rows = append(r.rows, row)
	}
	return nil
}

func (r *fakeImageRepo) ListByProject(ctx context.Context, projectID string) ([]domain.GeneratedImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.GeneratedImage
	for _, row := range r.rows {
		if row.ProjectID == projectID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (r *fakeImageRepo) DeleteByProject(ctx context.Context, projectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedProjects = append(r.deletedProjects, projectID)
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.ProjectID != projectID {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeImageRepo) DeleteByScene(ctx context.Context, projectID string, sceneIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedScenes = append(r.deletedScenes, sceneIndex)
	kept := r.rows[:0]
	for _, row := range r.rows {
		if row.ProjectID != projectID || row.SceneIndex != sceneIndex {
			kept = append(kept, row)
		}
	}
	r.rows = kept
	return nil
}

func (r *fakeImageRepo) count(projectID string) int {
	rows, _ := r.ListByProject(context.Background(), projectID)
	return len(rows)
}

type fakeTypes struct {
	types map[string]*domain.ContentType
}

func (f *fakeTypes) GetByID(ctx context.Context, id string) (*domain.ContentType, error) {
	ct, ok := f.types[id]
	if !ok {
		return nil, fmt.Errorf("content type %s: %w", id, domain.ErrNotFound)
	}
	return ct, nil
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []media.RunInput
	fn    func(modelID string, input media.RunInput) ([]string, error)
}

func (f *fakeRunner) Run(ctx context.Context, modelID string, input media.RunInput) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, input)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(modelID, input)
	}
	return []string{fmt.Sprintf("https://cdn.test/%s/%d/%d.png", input.ProjectID, input.SceneIndex, input.ImageIndex)}, nil
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// testContentType builds a two-agent storyboard template used across the
// orchestrator tests.
func testContentType() *domain.ContentType {
	return &domain.ContentType{
		ID:       "ct-ad-video",
		Name:     "Product Ad Video",
		Category: "advertising",
		Version:  1,
		InputsContract: []domain.InputField{
			{Key: "product_name", Type: domain.InputTypeString, Required: true, MaxLength: 120},
		},
		ScenePolicy: domain.SceneGenerationPolicy{MinScenes: 1, MaxScenes: 6},
		Prompting: domain.Prompting{
			SystemPrompt: "You are a storyboard team.",
			Agents: []domain.AgentSpec{
				{ID: "a1", Name: "Creative Director", Role: "creative director", TaskPrompt: "Set the concept.", Temperature: 0.7, Order: 1},
				{ID: "a2", Name: "Prompt Writer", Role: "prompt writer", TaskPrompt: "Write the image prompt.", Temperature: 0.7, Order: 2},
			},
		},
	}
}

func testProject(id string) *domain.Project {
	return &domain.Project{
		ID:            id,
		ContentTypeID: "ct-ad-video",
		Inputs:        map[string]any{"product_name": "kopi susu"},
		Status:        domain.ProjectStatusPending,
	}
}

func planJSON(purposes ...string) json.RawMessage {
	type planScene struct {
		Purpose string `json:"purpose"`
	}
	scenes := make([]planScene, 0, len(purposes))
	for _, p := range purposes {
		scenes = append(scenes, planScene{Purpose: p})
	}
	raw, _ := json.Marshal(map[string]any{
		"scenes":                 scenes,
		"textOverlaySuggestions": []string{"limited offer"},
		"thumbnailPrompt":        "hero shot",
	})
	return raw
}

func agentJSON(prompt string) json.RawMessage {
	raw, _ := json.Marshal(map[string]string{"imagePrompt": prompt})
	return raw
}
