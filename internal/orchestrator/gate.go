package orchestrator

import (
	"context"

	"server/internal/domain"
	"server/internal/infra"
)

// Gate answers "has this project been stopped?" by polling the persisted
// status. Cancellation is cooperative and best effort: a provider call
// already in flight when the flag flips is allowed to finish, and its result
// may still be persisted if no later checkpoint observes the flag.
type Gate struct {
	projects domain.ProjectRepository
	logger   infra.Logger
}

func NewGate(projects domain.ProjectRepository, logger infra.Logger) *Gate {
	return &Gate{projects: projects, logger: logger}
}

// Cancelled reports whether the project has been marked cancelled. A store
// error is logged and treated as "not cancelled" so a transient read failure
// never aborts a healthy run.
func (g *Gate) Cancelled(ctx context.Context, projectID string) bool {
	status, err := g.projects.Status(ctx, projectID)
	if err != nil {
		g.logger.Warn().Err(err).Str("project_id", projectID).Msg("orchestrator: cancellation poll failed")
		return false
	}
	return status == domain.ProjectStatusCancelled
}
