package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
	"server/internal/middleware"
	"server/internal/orchestrator"
)

type generateRequest struct {
	ContentTypeID           string                          `json:"contentTypeId"`
	Inputs                  map[string]any                  `json:"inputs"`
	ImageGenerationSettings *domain.ImageGenerationSettings `json:"imageGenerationSettings,omitempty"`
}

type generateResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Generate validates a submission and enqueues it as a pending request. The
// worker picks it up; nothing generates inline. Invalid inputs are rejected
// here and the row is never written.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(projectID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "project id must be a UUID")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.ContentTypeID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "contentTypeId is required")
		return
	}

	ct, err := a.Types.GetByID(r.Context(), req.ContentTypeID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	if req.Inputs == nil {
		req.Inputs = map[string]any{}
	}
	if _, ok := req.Inputs["locale"]; !ok {
		if locale := middleware.LocaleFromContext(r.Context()); locale != "" {
			req.Inputs["locale"] = locale
		}
	}
	if err := domain.ValidateInputs(ct.InputsContract, req.Inputs); err != nil {
		a.domainError(w, r, err)
		return
	}

	project := &domain.Project{
		ID:            projectID,
		ContentTypeID: ct.ID,
		Inputs:        req.Inputs,
	}
	if req.ImageGenerationSettings != nil {
		if err := orchestrator.ValidateImageSettings(*req.ImageGenerationSettings); err != nil {
			a.domainError(w, r, err)
			return
		}
		project.Output = &domain.GeneratedOutput{
			Format:                  domain.GeneratedOutputFormat,
			Scenes:                  []domain.SceneResult{},
			ImageGenerationSettings: req.ImageGenerationSettings,
		}
	}
	if err := a.Projects.Create(r.Context(), project); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.Logger.Info().Str("project_id", projectID).Str("content_type", ct.ID).Msg("handlers: project enqueued")
	a.json(w, http.StatusAccepted, generateResponse{ID: projectID, Status: string(domain.ProjectStatusPending)})
}

type imageRow struct {
	SceneIndex int       `json:"sceneIndex"`
	ImageIndex int       `json:"imageIndex"`
	ImageURL   string    `json:"imageUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GetProject is the polling endpoint: status, the generated output document
// as persisted so far, and every stored image row.
func (a *App) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	project, err := a.Projects.GetByID(r.Context(), projectID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	rows, err := a.Images.ListByProject(r.Context(), projectID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	images := make([]imageRow, 0, len(rows))
	for _, row := range rows {
		images = append(images, imageRow{
			SceneIndex: row.SceneIndex,
			ImageIndex: row.ImageIndex,
			ImageURL:   row.ImageURL,
			CreatedAt:  row.CreatedAt,
		})
	}

	a.json(w, http.StatusOK, map[string]any{
		"id":              project.ID,
		"contentTypeId":   project.ContentTypeID,
		"status":          project.Status,
		"generatedOutput": project.Output,
		"images":          images,
		"createdAt":       project.CreatedAt,
		"updatedAt":       project.UpdatedAt,
	})
}

// Stop flips a running project to cancelled. The worker observes the flag at
// its next checkpoint; work already in flight may still finish.
func (a *App) Stop(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	status, err := a.Projects.Status(r.Context(), projectID)
	if err != nil {
		a.domainError(w, r, err)
		return
	}
	switch status {
	case domain.ProjectStatusCompleted, domain.ProjectStatusFailed:
		a.error(w, http.StatusConflict, "conflict", "project already finished")
		return
	case domain.ProjectStatusCancelled:
		a.json(w, http.StatusOK, map[string]string{"id": projectID, "status": string(status)})
		return
	}
	if err := a.Projects.UpdateStatus(r.Context(), projectID, domain.ProjectStatusCancelled); err != nil {
		a.domainError(w, r, err)
		return
	}
	a.Logger.Info().Str("project_id", projectID).Msg("handlers: stop requested")
	a.json(w, http.StatusOK, map[string]string{"id": projectID, "status": string(domain.ProjectStatusCancelled)})
}

// RegenerateImages re-runs the image stage for every scene. Prerequisites
// are checked synchronously; the regeneration itself runs detached so the
// response does not wait on provider calls.
func (a *App) RegenerateImages(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if err := a.checkRegenPrerequisites(r.Context(), projectID, 0); err != nil {
		a.domainError(w, r, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := a.Regen.RegenerateAll(ctx, projectID); err != nil {
			a.Logger.Error().Err(err).Str("project_id", projectID).Msg("handlers: full image regeneration failed")
		}
	}()
	a.json(w, http.StatusAccepted, map[string]string{"id": projectID, "status": "regenerating"})
}

type sceneRegenRequest struct {
	Prompt string `json:"prompt"`
}

// RegenerateSceneImages re-runs the image stage for one scene, optionally
// rewriting its stored image prompt first.
func (a *App) RegenerateSceneImages(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	sceneIndex, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || sceneIndex < 1 {
		a.error(w, http.StatusBadRequest, "bad_request", "scene index must be a positive integer")
		return
	}

	var req sceneRegenRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
	}

	if err := a.checkRegenPrerequisites(r.Context(), projectID, sceneIndex); err != nil {
		a.domainError(w, r, err)
		return
	}
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if err := a.Regen.RegenerateScene(ctx, projectID, sceneIndex, req.Prompt); err != nil {
			a.Logger.Error().Err(err).
				Str("project_id", projectID).
				Int("scene_index", sceneIndex).
				Msg("handlers: scene image regeneration failed")
		}
	}()
	a.json(w, http.StatusAccepted, map[string]any{"id": projectID, "sceneIndex": sceneIndex, "status": "regenerating"})
}

// UpdateImageSettings replaces the stored image generation settings. The new
// settings apply to later regeneration passes, not to work already in flight.
func (a *App) UpdateImageSettings(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if _, err := uuid.Parse(projectID); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "project id must be a UUID")
		return
	}

	var settings domain.ImageGenerationSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	// The settings write is an UPDATE that matches zero rows for an unknown
	// project, so look the project up first.
	if _, err := a.Projects.Status(r.Context(), projectID); err != nil {
		a.domainError(w, r, err)
		return
	}
	if err := a.Regen.UpdateSettings(r.Context(), projectID, settings); err != nil {
		a.domainError(w, r, err)
		return
	}

	a.Logger.Info().Str("project_id", projectID).Msg("handlers: image settings updated")
	a.json(w, http.StatusOK, map[string]any{"id": projectID, "imageGenerationSettings": settings})
}

// checkRegenPrerequisites rejects a regeneration request up front when it
// could never run: no scenes yet, no settings, invalid settings, or an
// unknown scene index. sceneIndex zero means a full-project pass.
func (a *App) checkRegenPrerequisites(ctx context.Context, projectID string, sceneIndex int) error {
	project, err := a.Projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Output == nil || len(project.Output.Scenes) == 0 {
		return fmt.Errorf("%w: project has no generated scenes", domain.ErrValidation)
	}
	settings := project.Output.ImageGenerationSettings
	if settings == nil {
		return fmt.Errorf("%w: project has no image generation settings", domain.ErrValidation)
	}
	if err := orchestrator.ValidateImageSettings(*settings); err != nil {
		return err
	}
	if sceneIndex > 0 && project.Output.Scene(sceneIndex) == nil {
		return domain.ErrNotFound
	}
	return nil
}
