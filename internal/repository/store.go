package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/SergeiKhy/linkhub/internal/cache"
	"github.com/SergeiKhy/linkhub/internal/models"
	"go.uber.org/zap"
)

const documentCacheKey = "database"

// Store is the only component that touches the links/stats document. It fronts the
// backend with a short-lived whole-document cache entry and serializes every
// read-modify-write through one mutex, so concurrent writers in this process never
// overwrite each other's changes.
type Store struct {
	backend Backend
	cache   *cache.Cache
	logger  *zap.Logger
	mu      sync.Mutex
}

func NewStore(backend Backend, c *cache.Cache, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		backend: backend,
		cache:   c,
		logger:  logger,
	}
}

// Read returns a private copy of the current document. It never fails: a missing or
// unparsable document reads as empty (and is persisted as such), and a backend outage
// reads as empty without persisting anything.
func (s *Store) Read(ctx context.Context) *models.Document {
	if doc, ok := s.cached(); ok {
		return doc.Clone()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.Debug("Store read abandoned by caller", zap.Error(err))
		} else {
			s.logger.Error("Store unavailable, serving empty document", zap.Error(err))
		}
		return models.NewDocument()
	}
	return doc.Clone()
}

// Write replaces the persisted document and refreshes the cached copy.
func (s *Store) Write(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(ctx, doc.Clone())
}

// Update applies fn to a copy of the current document and persists the result. If fn
// returns an error nothing is written and the error is returned as is.
func (s *Store) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load(ctx)
	if err != nil {
		return err
	}

	doc := current.Clone()
	if err := fn(doc); err != nil {
		return err
	}

	return s.write(ctx, doc)
}

func (s *Store) cached() (*models.Document, bool) {
	v, ok := s.cache.Get(documentCacheKey)
	if !ok {
		return nil, false
	}
	doc, ok := v.(*models.Document)
	return doc, ok
}

// load must be called with mu held. The returned document is shared with the cache.
func (s *Store) load(ctx context.Context) (*models.Document, error) {
	if doc, ok := s.cached(); ok {
		return doc, nil
	}

	data, err := s.backend.Load(ctx, DocumentKey)
	switch {
	case errors.Is(err, ErrDocumentNotExist):
		s.logger.Info("Store document missing, starting empty")
		return s.reset(ctx), nil
	case err != nil:
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	doc := models.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.Error("Store document corrupt, starting empty", zap.Error(err))
		return s.reset(ctx), nil
	}
	doc.Normalize()

	s.cache.Set(documentCacheKey, doc, cache.DocumentTTL)
	return doc, nil
}

// reset persists and caches an empty document. A failed save only gets logged: the
// empty document is still what readers should see.
func (s *Store) reset(ctx context.Context) *models.Document {
	doc := models.NewDocument()
	if err := s.write(ctx, doc); err != nil {
		s.logger.Warn("Failed to persist empty store", zap.Error(err))
		s.cache.Set(documentCacheKey, doc, cache.DocumentTTL)
	}
	return doc
}

func (s *Store) write(ctx context.Context, doc *models.Document) error {
	doc.Normalize()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	if err := s.backend.Save(ctx, DocumentKey, data); err != nil {
		return fmt.Errorf("failed to write store: %w", err)
	}

	s.cache.Set(documentCacheKey, doc, cache.DocumentTTL)
	return nil
}
