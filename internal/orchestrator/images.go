package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/media"
)

// ImageOrchestrator issues one image-provider call per (scene, image index)
// pair and persists every success immediately as its own row. Failures are
// isolated to their unit: one bad call is logged and skipped, siblings keep
// going.
type ImageOrchestrator struct {
	projects domain.ProjectRepository
	images   domain.ImageRepository
	runner   media.Runner
	gate     *Gate
	logger   infra.Logger

	rateInterval time.Duration
}

func NewImageOrchestrator(
	projects domain.ProjectRepository,
	images domain.ImageRepository,
	runner media.Runner,
	gate *Gate,
	logger infra.Logger,
	rateInterval time.Duration,
) *ImageOrchestrator {
	return &ImageOrchestrator{
		projects:     projects,
		images:       images,
		runner:       runner,
		gate:         gate,
		logger:       logger,
		rateInterval: rateInterval,
	}
}

// ValidateImageSettings checks the image-generation prerequisites: a
// registered model, counts and framing, and reference images for models that
// cannot run without them.
func ValidateImageSettings(settings domain.ImageGenerationSettings) error {
	spec, ok := media.LookupModel(settings.Model)
	if !ok {
		return fmt.Errorf("%w: unknown image model %q", domain.ErrValidation, settings.Model)
	}
	if settings.NumImages < 1 {
		return fmt.Errorf("%w: numImages must be at least 1", domain.ErrValidation)
	}
	if strings.TrimSpace(settings.AspectRatio) == "" {
		return fmt.Errorf("%w: aspect ratio is required", domain.ErrValidation)
	}
	if strings.TrimSpace(settings.Size) == "" {
		return fmt.Errorf("%w: size is required", domain.ErrValidation)
	}
	if spec.RequiresReferenceImages && len(settings.ReferenceImageURLs) == 0 {
		return fmt.Errorf("%w: model %q requires reference images", domain.ErrValidation, settings.Model)
	}
	return nil
}

// Generate runs the image stage for the given scenes. Scenes are visited in
// order with a cancellation checkpoint before each scene's batch; the units
// within a batch run concurrently and persist independently.
func (g *ImageOrchestrator) Generate(
	ctx context.Context,
	projectID string,
	scenes []domain.SceneResult,
	settings domain.ImageGenerationSettings,
) error {
	if err := ValidateImageSettings(settings); err != nil {
		return err
	}

	var limiter *rate.Limiter
	if g.rateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(g.rateInterval), 1)
	}

	for _, scene := range scenes {
		// Checkpoint: before each scene's image batch.
		if g.gate.Cancelled(ctx, projectID) {
			g.logger.Info().
				Str("project_id", projectID).
				Int("scene_index", scene.Index).
				Msg("images: cancelled, stopping before next scene batch")
			return nil
		}
		g.generateSceneBatch(ctx, projectID, scene, settings, limiter)
	}
	return nil
}

func (g *ImageOrchestrator) generateSceneBatch(
	ctx context.Context,
	projectID string,
	scene domain.SceneResult,
	settings domain.ImageGenerationSettings,
	limiter *rate.Limiter,
) {
	instruction := media.BuildSceneInstruction(scene, settings, "")

	eg, egCtx := errgroup.WithContext(ctx)
	for imageIndex := 0; imageIndex < settings.NumImages; imageIndex++ {
		imageIndex := imageIndex
		eg.Go(func() error {
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					return nil
				}
			}
			urls, err := g.runner.Run(egCtx, settings.Model, media.RunInput{
				Prompt:             instruction,
				NegativePrompt:     scene.NegativePrompt,
				ReferenceImageURLs: settings.ReferenceImageURLs,
				AspectRatio:        settings.AspectRatio,
				Size:               settings.Size,
				ProjectID:          projectID,
				SceneIndex:         scene.Index,
				ImageIndex:         imageIndex,
			})
			if err != nil {
				g.logger.Warn().Err(err).
					Str("project_id", projectID).
					Int("scene_index", scene.Index).
					Int("image_index", imageIndex).
					Msg("images: unit generation failed, skipping")
				return nil
			}
			if len(urls) == 0 {
				return nil
			}
			row := domain.GeneratedImage{
				ProjectID:  projectID,
				SceneIndex: scene.Index,
				ImageIndex: imageIndex,
				ImageURL:   urls[0],
			}
			if err := g.images.Insert(egCtx, []domain.GeneratedImage{row}); err != nil {
				g.logger.Error().Err(err).
					Str("project_id", projectID).
					Int("scene_index", scene.Index).
					Int("image_index", imageIndex).
					Msg("images: persist failed")
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// RegenerateAll clears every image row for the project and regenerates all
// scenes with the stored settings.
func (g *ImageOrchestrator) RegenerateAll(ctx context.Context, projectID string) error {
	project, settings, err := g.loadForRegeneration(ctx, projectID)
	if err != nil {
		return err
	}
	// Old rows must be gone before any new call for the same keys, or stale
	// and fresh URLs would mix under the uniqueness constraint.
	if err := g.images.DeleteByProject(ctx, projectID); err != nil {
		return err
	}
	return g.Generate(ctx, projectID, project.Output.Scenes, settings)
}

// RegenerateScene clears one scene's rows and regenerates only that scene.
// A non-empty promptOverride first rewrites the persisted scene prompt, so
// the override survives later full regenerations.
func (g *ImageOrchestrator) RegenerateScene(ctx context.Context, projectID string, sceneIndex int, promptOverride string) error {
	project, settings, err := g.loadForRegeneration(ctx, projectID)
	if err != nil {
		return err
	}
	scene := project.Output.Scene(sceneIndex)
	if scene == nil {
		return fmt.Errorf("%w: scene %d", domain.ErrNotFound, sceneIndex)
	}

	if override := strings.TrimSpace(promptOverride); override != "" {
		if err := g.projects.SetScenePrompt(ctx, projectID, sceneIndex, override); err != nil {
			return err
		}
		scene.ImagePrompt = override
	}

	if err := g.images.DeleteByScene(ctx, projectID, sceneIndex); err != nil {
		return err
	}
	return g.Generate(ctx, projectID, []domain.SceneResult{*scene}, settings)
}

func (g *ImageOrchestrator) loadForRegeneration(ctx context.Context, projectID string) (*domain.Project, domain.ImageGenerationSettings, error) {
	project, err := g.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, domain.ImageGenerationSettings{}, err
	}
	if project.Output == nil || len(project.Output.Scenes) == 0 {
		return nil, domain.ImageGenerationSettings{}, fmt.Errorf("%w: project has no generated scenes", domain.ErrValidation)
	}
	if project.Output.ImageGenerationSettings == nil {
		return nil, domain.ImageGenerationSettings{}, fmt.Errorf("%w: project has no image generation settings", domain.ErrValidation)
	}
	settings := *project.Output.ImageGenerationSettings
	if err := ValidateImageSettings(settings); err != nil {
		return nil, domain.ImageGenerationSettings{}, err
	}
	return project, settings, nil
}

// UpdateSettings stores new image generation settings for a project after
// validating them, for clients that decide on image generation after the
// storyboard is done.
func (g *ImageOrchestrator) UpdateSettings(ctx context.Context, projectID string, settings domain.ImageGenerationSettings) error {
	if err := ValidateImageSettings(settings); err != nil {
		return err
	}
	return g.projects.SetImageSettings(ctx, projectID, &settings)
}
