package orchestrator

import (
	"server/internal/domain"
)

// GenerationSession is the ephemeral state of one project-generation
// invocation: the target project, its resolved content type and validated
// inputs. It lives for the duration of one Orchestrator.Run call and is never
// persisted; only scene outputs reach the data store.
type GenerationSession struct {
	ProjectID   string
	ContentType *domain.ContentType
	Inputs      map[string]any
	Locale      string
}

// NewSession builds a session for one run.
func NewSession(projectID string, ct *domain.ContentType, inputs map[string]any) *GenerationSession {
	session := &GenerationSession{
		ProjectID:   projectID,
		ContentType: ct,
		Inputs:      inputs,
	}
	if locale, ok := inputs["locale"].(string); ok {
		session.Locale = locale
	}
	return session
}
