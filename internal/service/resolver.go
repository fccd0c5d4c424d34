package service

import (
	"context"
	"errors"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Resolver находит ссылку по короткому коду: сначала кэш ссылки, затем весь документ
type Resolver struct {
	store  repository.DocumentStore
	links  repository.LinkCache
	logger *zap.Logger
	group  singleflight.Group
}

// NewResolver создаёт резолвер поверх хранилища и кэша ссылок
func NewResolver(store repository.DocumentStore, links repository.LinkCache, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:  store,
		links:  links,
		logger: logger,
	}
}

// Resolve возвращает repository.ErrLinkNotFound, если кода нет в хранилище.
// Ошибки кэша не фатальны: они логируются и считаются промахом.
func (r *Resolver) Resolve(ctx context.Context, code string) (*models.Link, error) {
	link, err := r.links.Get(ctx, code)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		r.logger.Warn("Link cache read failed", zap.String("short_code", code), zap.Error(err))
	}

	// Одновременные промахи по одному коду читают документ один раз. Чтение общее,
	// поэтому отмена запроса, пришедшего первым, не должна обрывать его для остальных.
	v, err, _ := r.group.Do(code, func() (any, error) {
		doc := r.store.Read(context.WithoutCancel(ctx))
		found, ok := doc.Links[code]
		if !ok {
			return nil, repository.ErrLinkNotFound
		}

		if err := r.links.Set(ctx, code, found, cache.LinkTTL); err != nil {
			r.logger.Warn("Failed to cache link", zap.String("short_code", code), zap.Error(err))
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}

	// у каждого вызывающего своя копия
	out := *v.(*models.Link)
	return &out, nil
}

// Invalidate убирает ссылку из кэша после правки или удаления
func (r *Resolver) Invalidate(ctx context.Context, codes ...string) {
	for _, code := range codes {
		if err := r.links.Delete(ctx, code); err != nil {
			r.logger.Warn("Failed to evict cached link", zap.String("short_code", code), zap.Error(err))
		}
	}
}

// Prime кладёт только что созданную ссылку в кэш
func (r *Resolver) Prime(ctx context.Context, link *models.Link) {
	if err := r.links.Set(ctx, link.ShortCode, link, cache.LinkTTL); err != nil {
		r.logger.Warn("Failed to cache link", zap.String("short_code", link.ShortCode), zap.Error(err))
	}
}
