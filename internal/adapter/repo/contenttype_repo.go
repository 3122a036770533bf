package repo

import (
	"context"
	"fmt"

	"server/internal/contenttype"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// ContentTypeRepositoryPG loads template definitions from content_types.
type ContentTypeRepositoryPG struct {
	sql infra.SQLExecutor
}

func NewContentTypeRepository(sql infra.SQLExecutor) *ContentTypeRepositoryPG {
	return &ContentTypeRepositoryPG{sql: sql}
}

func (r *ContentTypeRepositoryPG) GetByID(ctx context.Context, id string) (*domain.ContentType, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectContentTypeByID, id)

	var (
		ctID, name, category string
		version              int
		definition           []byte
	)
	if err := row.Scan(&ctID, &name, &category, &version, &definition); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: load content type: %v", domain.ErrPersistence, err)
	}
	return contenttype.ParseDefinition(ctID, name, category, version, definition)
}

var _ domain.ContentTypeRepository = (*ContentTypeRepositoryPG)(nil)
