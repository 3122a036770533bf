package contenttype

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"server/internal/domain"
)

const (
	cacheTTL     = 10 * time.Minute
	cacheCleanup = 30 * time.Minute
)

// Store loads content types through a repository with an in-process cache.
// Templates are read-mostly: edits happen in a separate CRUD surface and a
// stale read for a few minutes is acceptable there.
type Store struct {
	repo  domain.ContentTypeRepository
	cache *gocache.Cache
}

func NewStore(repo domain.ContentTypeRepository) *Store {
	return &Store{
		repo:  repo,
		cache: gocache.New(cacheTTL, cacheCleanup),
	}
}

// GetByID returns the normalized content type, from cache when possible.
func (s *Store) GetByID(ctx context.Context, id string) (*domain.ContentType, error) {
	if cached, ok := s.cache.Get(id); ok {
		if ct, ok := cached.(*domain.ContentType); ok {
			return ct, nil
		}
	}
	ct, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, ct, gocache.DefaultExpiration)
	return ct, nil
}
