package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"server/internal/domain"
	"server/internal/infra"
)

// ContentTypeSource resolves content type templates.
type ContentTypeSource interface {
	GetByID(ctx context.Context, id string) (*domain.ContentType, error)
}

// Orchestrator drives one project generation end to end: resolve the
// workflow, plan scenes, fan the scene workflows out concurrently, persist
// results in plan order, settle the project status and kick off image
// generation when its prerequisites hold.
type Orchestrator struct {
	projects domain.ProjectRepository
	types    ContentTypeSource
	planner  *Planner
	workflow *WorkflowRunner
	imageGen *ImageOrchestrator
	gate     *Gate
	logger   infra.Logger

	// rateInterval paces scene fan-out; zero disables pacing.
	rateInterval time.Duration

	wg sync.WaitGroup
}

type Options struct {
	Projects     domain.ProjectRepository
	Types        ContentTypeSource
	Planner      *Planner
	Workflow     *WorkflowRunner
	ImageGen     *ImageOrchestrator
	Gate         *Gate
	Logger       infra.Logger
	RateInterval time.Duration
}

func New(opts Options) *Orchestrator {
	return &Orchestrator{
		projects:     opts.Projects,
		types:        opts.Types,
		planner:      opts.Planner,
		workflow:     opts.Workflow,
		imageGen:     opts.ImageGen,
		gate:         opts.Gate,
		logger:       opts.Logger,
		rateInterval: opts.RateInterval,
	}
}

// Wait blocks until asynchronously started image generation finishes. Used
// on worker shutdown and by tests.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

type sceneOutcome struct {
	result domain.SceneResult
	err    error
}

// Run executes the whole pipeline for one project. A user-initiated stop is
// not an error: Run returns nil and leaves the status as the stop request set
// it.
func (o *Orchestrator) Run(ctx context.Context, projectID string) error {
	project, err := o.projects.GetByID(ctx, projectID)
	if err != nil {
		return err
	}
	if project.Status == domain.ProjectStatusCancelled {
		return nil
	}

	ct, err := o.types.GetByID(ctx, project.ContentTypeID)
	if err != nil {
		return o.fail(ctx, projectID, fmt.Errorf("resolve content type: %w", err))
	}
	if len(ct.Prompting.Agents) == 0 {
		return o.fail(ctx, projectID, fmt.Errorf("content type %s: %w", ct.ID, domain.ErrNoAgentsConfigured))
	}
	if err := domain.ValidateInputs(ct.InputsContract, project.Inputs); err != nil {
		return o.fail(ctx, projectID, err)
	}

	session := NewSession(projectID, ct, project.Inputs)

	// Checkpoint: before planning.
	if o.gate.Cancelled(ctx, projectID) {
		o.logger.Info().Str("project_id", projectID).Msg("orchestrator: cancelled before planning")
		return nil
	}

	plan, err := o.planner.Plan(ctx, session)
	if err != nil {
		return o.fail(ctx, projectID, err)
	}
	if len(plan.Scenes) == 0 {
		return o.fail(ctx, projectID, fmt.Errorf("%w: empty scene plan", domain.ErrProviderFailure))
	}

	// Write the output envelope up front so polling clients see the format
	// tag and plan-level suggestions while scenes are still generating.
	// Image settings submitted with the request are carried over untouched.
	envelope := &domain.GeneratedOutput{
		Format:                 domain.GeneratedOutputFormat,
		Scenes:                 []domain.SceneResult{},
		TextOverlaySuggestions: plan.TextOverlaySuggestions,
		ThumbnailPrompt:        plan.ThumbnailPrompt,
	}
	var settings *domain.ImageGenerationSettings
	if project.Output != nil {
		settings = project.Output.ImageGenerationSettings
		envelope.ImageGenerationSettings = settings
	}
	if err := o.projects.InitOutput(ctx, projectID, envelope); err != nil {
		return err
	}

	outcomes := o.runScenes(ctx, session, plan)

	// Checkpoint: before the persist pass. Results from scenes that finished
	// after a stop request are discarded here.
	if o.gate.Cancelled(ctx, projectID) {
		o.logger.Info().Str("project_id", projectID).Msg("orchestrator: cancelled before persisting")
		return nil
	}

	persisted, err := o.persistScenes(ctx, projectID, outcomes)
	if err != nil {
		return err
	}
	if persisted == nil {
		// First-planned scene failed; project already marked failed.
		return nil
	}

	if o.imagePrerequisitesMet(settings) {
		o.spawnImageGeneration(ctx, projectID, persisted, *settings)
	}
	return nil
}

// runScenes fans one workflow per planned scene out concurrently and waits
// for every scene to settle. Scene failures are recorded per slot, never
// propagated through the group, so one bad scene cannot cancel its siblings.
func (o *Orchestrator) runScenes(ctx context.Context, session *GenerationSession, plan domain.ScenePlan) []sceneOutcome {
	outcomes := make([]sceneOutcome, len(plan.Scenes))

	var limiter *rate.Limiter
	if o.rateInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(o.rateInterval), 1)
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for i, planned := range plan.Scenes {
		i, planned := i, planned
		eg.Go(func() error {
			// Checkpoint: before this scene's work begins.
			if o.gate.Cancelled(egCtx, session.ProjectID) {
				outcomes[i].err = domain.ErrCancelled
				return nil
			}
			if limiter != nil {
				if err := limiter.Wait(egCtx); err != nil {
					outcomes[i].err = err
					return nil
				}
			}
			result, err := o.workflow.RunScene(egCtx, session, planned)
			if err != nil {
				o.logger.Warn().Err(err).
					Str("project_id", session.ProjectID).
					Int("scene_index", planned.Index).
					Msg("orchestrator: scene workflow failed")
				outcomes[i].err = err
				return nil
			}
			outcomes[i].result = result
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

// persistScenes appends the successful prefix of outcomes in plan order.
// Returns the persisted scenes, or nil when the first-planned scene failed
// and the project was marked failed. Scenes after the first failure are
// omitted so persisted indices stay gap free; the project still completes
// with fewer scenes than planned.
func (o *Orchestrator) persistScenes(ctx context.Context, projectID string, outcomes []sceneOutcome) ([]domain.SceneResult, error) {
	if outcomes[0].err != nil {
		if errors.Is(outcomes[0].err, domain.ErrCancelled) {
			o.logger.Info().Str("project_id", projectID).Msg("orchestrator: first scene cancelled, nothing persisted")
			return nil, nil
		}
		err := o.fail(ctx, projectID, fmt.Errorf("first scene: %w", outcomes[0].err))
		return nil, err
	}

	prefix := len(outcomes)
	for i, outcome := range outcomes {
		if outcome.err != nil {
			prefix = i
			break
		}
	}
	for i := prefix; i < len(outcomes); i++ {
		if outcomes[i].err == nil {
			o.logger.Warn().
				Str("project_id", projectID).
				Int("scene_index", outcomes[i].result.Index).
				Msg("orchestrator: dropping scene after failed predecessor to keep indices gap free")
		}
	}

	persisted := make([]domain.SceneResult, 0, prefix)
	for i := 0; i < prefix; i++ {
		scene := outcomes[i].result
		if err := o.projects.AppendScene(ctx, projectID, scene); err != nil {
			// Already-persisted scenes stay committed; the rest of the pass
			// is abandoned and may be retried externally.
			return nil, err
		}
		persisted = append(persisted, scene)

		// Only the highest successfully persisted plan index flips the
		// status, so clients never read "completed" mid-pass.
		if i == prefix-1 {
			if err := o.projects.UpdateStatus(ctx, projectID, domain.ProjectStatusCompleted); err != nil {
				return nil, err
			}
		}
	}

	o.logger.Info().
		Str("project_id", projectID).
		Int("persisted", len(persisted)).
		Int("planned", len(outcomes)).
		Msg("orchestrator: project completed")
	return persisted, nil
}

func (o *Orchestrator) imagePrerequisitesMet(settings *domain.ImageGenerationSettings) bool {
	if settings == nil {
		return false
	}
	return ValidateImageSettings(*settings) == nil
}

// spawnImageGeneration starts the image stage detached from the scene
// pipeline: its failures never roll back scene completion.
func (o *Orchestrator) spawnImageGeneration(ctx context.Context, projectID string, scenes []domain.SceneResult, settings domain.ImageGenerationSettings) {
	imageCtx := context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.imageGen.Generate(imageCtx, projectID, scenes, settings); err != nil {
			o.logger.Error().Err(err).Str("project_id", projectID).Msg("orchestrator: image generation failed")
		}
	}()
}

// fail stamps the project failed and returns the causing error.
func (o *Orchestrator) fail(ctx context.Context, projectID string, cause error) error {
	o.logger.Error().Err(cause).Str("project_id", projectID).Msg("orchestrator: project failed")
	if err := o.projects.UpdateStatus(ctx, projectID, domain.ProjectStatusFailed); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}
