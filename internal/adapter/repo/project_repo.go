package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ProjectRepositoryPG implements domain.ProjectRepository on top of
// content_creation_requests. All writes are targeted jsonb/column updates so
// concurrent writers (scene appends, stop requests, image settings) never
// overwrite each other's fields.
type ProjectRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepositoryPG {
	return &ProjectRepositoryPG{sql: sql}
}

// Create enqueues a new request row in pending state. Inputs are stored as
// submitted; the output envelope starts either empty or carrying only the
// client's image generation settings.
func (r *ProjectRepositoryPG) Create(ctx context.Context, project *domain.Project) error {
	inputsRaw, err := json.Marshal(project.Inputs)
	if err != nil {
		return fmt.Errorf("encode inputs: %w", err)
	}
	var outputRaw []byte
	if project.Output != nil {
		if outputRaw, err = domain.MarshalOutput(project.Output); err != nil {
			return fmt.Errorf("encode generated output: %w", err)
		}
	}
	row := r.sql.QueryRow(ctx, sqlinline.QInsertRequest, project.ID, project.ContentTypeID, inputsRaw, outputRaw)
	if err := row.Scan(&project.CreatedAt); err != nil {
		return fmt.Errorf("%w: create project: %v", domain.ErrPersistence, err)
	}
	project.Status = domain.ProjectStatusPending
	return nil
}

func (r *ProjectRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRequestByID, id)

	var (
		project   domain.Project
		inputsRaw []byte
		outputRaw []byte
		status    string
	)
	if err := row.Scan(
		&project.ID,
		&project.ContentTypeID,
		&inputsRaw,
		&outputRaw,
		&status,
		&project.CreatedAt,
		&project.UpdatedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: load project: %v", domain.ErrPersistence, err)
	}
	project.Status = domain.ProjectStatus(status)

	if len(inputsRaw) > 0 {
		if err := json.Unmarshal(inputsRaw, &project.Inputs); err != nil {
			return nil, fmt.Errorf("decode project inputs: %w", err)
		}
	}
	if len(outputRaw) > 0 {
		var output domain.GeneratedOutput
		if err := json.Unmarshal(outputRaw, &output); err != nil {
			return nil, fmt.Errorf("decode generated output: %w", err)
		}
		project.Output = &output
	}
	return &project, nil
}

func (r *ProjectRepositoryPG) Status(ctx context.Context, id string) (domain.ProjectStatus, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectRequestStatus, id)
	var status string
	if err := row.Scan(&status); err != nil {
		if infra.IsNoRows(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("%w: load status: %v", domain.ErrPersistence, err)
	}
	return domain.ProjectStatus(status), nil
}

func (r *ProjectRepositoryPG) UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QUpdateRequestStatus, id, string(status)); err != nil {
		return fmt.Errorf("%w: update status: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *ProjectRepositoryPG) InitOutput(ctx context.Context, id string, output *domain.GeneratedOutput) error {
	raw, err := domain.MarshalOutput(output)
	if err != nil {
		return fmt.Errorf("encode generated output: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QInitRequestOutput, id, raw); err != nil {
		return fmt.Errorf("%w: init output: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *ProjectRepositoryPG) AppendScene(ctx context.Context, id string, scene domain.SceneResult) error {
	raw, err := json.Marshal([]domain.SceneResult{scene})
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QAppendRequestScene, id, raw); err != nil {
		return fmt.Errorf("%w: append scene %d: %v", domain.ErrPersistence, scene.Index, err)
	}
	return nil
}

func (r *ProjectRepositoryPG) SetImageSettings(ctx context.Context, id string, settings *domain.ImageGenerationSettings) error {
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode image settings: %w", err)
	}
	if _, err := r.sql.Exec(ctx, sqlinline.QSetRequestImageSettings, id, raw); err != nil {
		return fmt.Errorf("%w: set image settings: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *ProjectRepositoryPG) SetScenePrompt(ctx context.Context, id string, sceneIndex int, prompt string) error {
	// Scenes are persisted as a gap-free prefix ordered by plan index, so
	// plan index i lives at array position i-1.
	position := strconv.Itoa(sceneIndex - 1)
	tag, err := r.sql.Exec(ctx, sqlinline.QSetRequestScenePrompt, id, position, prompt)
	if err != nil {
		return fmt.Errorf("%w: set scene %d prompt: %v", domain.ErrPersistence, sceneIndex, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: scene %d", domain.ErrNotFound, sceneIndex)
	}
	return nil
}

var _ domain.ProjectRepository = (*ProjectRepositoryPG)(nil)
