package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/storage"
)

// ProjectStore is the subset of project persistence the HTTP layer needs.
type ProjectStore interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	Status(ctx context.Context, id string) (domain.ProjectStatus, error)
	UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error
}

// ImageStore lists persisted image rows for polling and archive download.
type ImageStore interface {
	ListByProject(ctx context.Context, projectID string) ([]domain.GeneratedImage, error)
}

// ContentTypeSource resolves content type templates.
type ContentTypeSource interface {
	GetByID(ctx context.Context, id string) (*domain.ContentType, error)
}

// Regenerator triggers image regeneration passes and settings updates.
type Regenerator interface {
	RegenerateAll(ctx context.Context, projectID string) error
	RegenerateScene(ctx context.Context, projectID string, sceneIndex int, promptOverride string) error
	UpdateSettings(ctx context.Context, projectID string, settings domain.ImageGenerationSettings) error
}

type App struct {
	Config   *infra.Config
	Logger   infra.Logger
	Projects ProjectStore
	Images   ImageStore
	Types    ContentTypeSource
	Regen    Regenerator
	Files    *storage.FileStore
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, map[string]any{"error": map[string]string{"code": slug, "message": message}})
}

// domainError maps sentinel errors onto HTTP responses. Anything unmapped is
// an internal error and the detail stays in the log, not the response.
func (a *App) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusUnprocessableEntity, "validation_failed", err.Error())
	default:
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("handlers: request failed")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
