package domain

import "context"

// ProjectRepository defines the row-level operations the orchestration core
// needs on content_creation_requests. Every mutation is a targeted partial
// update keyed by project id; there is no full-row save, so a stop-request
// write cannot be clobbered by a concurrent scene append.
type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*Project, error)
	Status(ctx context.Context, id string) (ProjectStatus, error)
	UpdateStatus(ctx context.Context, id string, status ProjectStatus) error
	// InitOutput writes a fresh generated_output envelope (format tag, empty
	// scenes array, overlay suggestions, thumbnail prompt).
	InitOutput(ctx context.Context, id string, output *GeneratedOutput) error
	// AppendScene appends one scene to generated_output->scenes.
	AppendScene(ctx context.Context, id string, scene SceneResult) error
	SetImageSettings(ctx context.Context, id string, settings *ImageGenerationSettings) error
	// SetScenePrompt rewrites one persisted scene's imagePrompt in place.
	SetScenePrompt(ctx context.Context, id string, sceneIndex int, prompt string) error
}

// ImageRepository defines persistence for generated_images rows.
type ImageRepository interface {
	// Insert persists rows, ignoring duplicates of the
	// (project, scene, image) key so that retries are idempotent.
	Insert(ctx context.Context, rows []GeneratedImage) error
	ListByProject(ctx context.Context, projectID string) ([]GeneratedImage, error)
	DeleteByProject(ctx context.Context, projectID string) error
	DeleteByScene(ctx context.Context, projectID string, sceneIndex int) error
}

// ContentTypeRepository loads template definitions.
type ContentTypeRepository interface {
	GetByID(ctx context.Context, id string) (*ContentType, error)
}
