package repo

import (
	"context"
	"fmt"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ImageRepositoryPG implements domain.ImageRepository.
type ImageRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewImageRepository(sql infra.SQLExecutor) *ImageRepositoryPG {
	return &ImageRepositoryPG{sql: sql}
}

// Insert persists each row independently. The unique key on
// (project_id, scene_index, image_index) plus ON CONFLICT DO NOTHING makes
// the call idempotent under retries.
func (r *ImageRepositoryPG) Insert(ctx context.Context, rows []domain.GeneratedImage) error {
	for _, img := range rows {
		if _, err := r.sql.Exec(
			ctx,
			sqlinline.QInsertGeneratedImage,
			img.ProjectID,
			img.SceneIndex,
			img.ImageIndex,
			img.ImageURL,
		); err != nil {
			return fmt.Errorf("%w: insert image (%s, %d, %d): %v",
				domain.ErrPersistence, img.ProjectID, img.SceneIndex, img.ImageIndex, err)
		}
	}
	return nil
}

func (r *ImageRepositoryPG) ListByProject(ctx context.Context, projectID string) ([]domain.GeneratedImage, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QSelectImagesByProject, projectID)
	if err != nil {
		return nil, fmt.Errorf("%w: list images: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var images []domain.GeneratedImage
	for rows.Next() {
		var img domain.GeneratedImage
		if err := rows.Scan(&img.ProjectID, &img.SceneIndex, &img.ImageIndex, &img.ImageURL, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan image row: %v", domain.ErrPersistence, err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate image rows: %v", domain.ErrPersistence, err)
	}
	return images, nil
}

func (r *ImageRepositoryPG) DeleteByProject(ctx context.Context, projectID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteImagesByProject, projectID); err != nil {
		return fmt.Errorf("%w: delete project images: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (r *ImageRepositoryPG) DeleteByScene(ctx context.Context, projectID string, sceneIndex int) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QDeleteImagesByScene, projectID, sceneIndex); err != nil {
		return fmt.Errorf("%w: delete scene %d images: %v", domain.ErrPersistence, sceneIndex, err)
	}
	return nil
}

var _ domain.ImageRepository = (*ImageRepositoryPG)(nil)
