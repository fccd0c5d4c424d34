package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/config"
	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres запускает контейнер PostgreSQL и применяет миграции
func setupPostgres(t *testing.T) *repository.PostgresDB {
	t.Helper()
	ctx := t.Context()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("linkhub"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := config.DBConfig{
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "linkhub",
	}
	require.NoError(t, repository.Migrate(repository.DSN(cfg)))

	db, err := repository.NewPostgresDB(cfg)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	return db
}

func TestIntegration_PostgresBackend(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	db := setupPostgres(t)
	backend := repository.NewPostgresBackend(db)
	ctx := context.Background()

	_, err := backend.Load(ctx, repository.DocumentKey)
	assert.ErrorIs(t, err, repository.ErrDocumentNotExist)

	store := repository.NewStore(backend, cache.NewWithSweep(0), nil)
	doc := sampleDocument()
	require.NoError(t, store.Write(ctx, doc))

	// second write replaces the row
	require.NoError(t, store.Update(ctx, func(d *models.Document) error {
		d.Stats["abc123"] = append(d.Stats["abc123"], models.Click{IP: "unknown"})
		return nil
	}))

	fresh := repository.NewStore(backend, cache.NewWithSweep(0), nil)
	got := fresh.Read(ctx)
	require.Contains(t, got.Links, "abc123")
	assert.Equal(t, "https://example.com/a", got.Links["abc123"].OriginalURL)
	assert.Len(t, got.Stats["abc123"], 2)

	// migrations are idempotent
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM kv_documents`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIntegration_RedisLinkCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	ctx := t.Context()
	container, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb, err := repository.NewRedisClient(config.RedisConfig{Host: host, Port: port.Port()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	links := repository.NewRedisLinkCache(rdb)

	_, err = links.Get(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	link := sampleDocument().Links["abc123"]
	require.NoError(t, links.Set(ctx, "abc123", link, cache.LinkTTL))

	got, err := links.Get(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, got.OriginalURL)
	assert.Equal(t, link.ID, got.ID)

	ttl, err := rdb.Client.TTL(ctx, "link:abc123").Result()
	require.NoError(t, err)
	assert.InDelta(t, cache.LinkTTL.Seconds(), ttl.Seconds(), 5)

	require.NoError(t, links.Delete(ctx, "abc123"))
	_, err = links.Get(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}
