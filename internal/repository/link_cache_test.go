package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLinkCache(t *testing.T) {
	c := cache.NewWithSweep(0)
	links := repository.NewMemoryLinkCache(c)
	ctx := context.Background()

	_, err := links.Get(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	link := &models.Link{ID: "link_1", ShortCode: "abc", OriginalURL: "https://example.com"}
	require.NoError(t, links.Set(ctx, "abc", link, time.Minute))

	// stored under the per-link key of the shared cache
	_, ok := c.Get("link_abc")
	assert.True(t, ok)

	got, err := links.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	// callers get copies
	got.OriginalURL = "https://changed.example"
	again, _ := links.Get(ctx, "abc")
	assert.Equal(t, "https://example.com", again.OriginalURL)

	require.NoError(t, links.Delete(ctx, "abc"))
	_, err = links.Get(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestMemoryLinkCache_Expires(t *testing.T) {
	links := repository.NewMemoryLinkCache(cache.NewWithSweep(0))
	ctx := context.Background()

	require.NoError(t, links.Set(ctx, "abc", &models.Link{ShortCode: "abc"}, 100*time.Millisecond))
	time.Sleep(150 * time.Millisecond)

	_, err := links.Get(ctx, "abc")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}
