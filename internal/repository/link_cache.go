package repository

import (
	"context"
	"time"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/models"
)

// LinkCache holds individual link records keyed by short code. Get returns ErrCacheMiss
// when nothing usable is cached.
type LinkCache interface {
	Get(ctx context.Context, code string) (*models.Link, error)
	Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error
	Delete(ctx context.Context, code string) error
}

type memoryLinkCache struct {
	cache *cache.Cache
}

// NewMemoryLinkCache keeps link entries in the process-wide cache next to the document entry.
func NewMemoryLinkCache(c *cache.Cache) LinkCache {
	return &memoryLinkCache{cache: c}
}

func (r *memoryLinkCache) Get(_ context.Context, code string) (*models.Link, error) {
	v, ok := r.cache.Get(r.key(code))
	if !ok {
		return nil, ErrCacheMiss
	}

	link := *v.(*models.Link)
	return &link, nil
}

func (r *memoryLinkCache) Set(_ context.Context, code string, link *models.Link, ttl time.Duration) error {
	cp := *link
	r.cache.Set(r.key(code), &cp, ttl)
	return nil
}

func (r *memoryLinkCache) Delete(_ context.Context, code string) error {
	r.cache.Delete(r.key(code))
	return nil
}

func (r *memoryLinkCache) key(code string) string {
	return "link_" + code
}
