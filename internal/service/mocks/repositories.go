package mocks

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SergeiKhy/linkhub/internal/models"
	"github.com/SergeiKhy/linkhub/internal/repository"
)

// ErrWriteFailed is returned by MockDocumentStore while writes are failing
var ErrWriteFailed = errors.New("mock: write failed")

// MockDocumentStore implements repository.DocumentStore in memory
type MockDocumentStore struct {
	mu        sync.Mutex
	doc       *models.Document
	failWrite bool
	reads     int
	writes    int
}

func NewMockDocumentStore() *MockDocumentStore {
	return &MockDocumentStore{doc: models.NewDocument()}
}

func (m *MockDocumentStore) Read(ctx context.Context) *models.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	return m.doc.Clone()
}

func (m *MockDocumentStore) Write(ctx context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrite {
		return ErrWriteFailed
	}
	m.writes++
	m.doc = doc.Clone()
	m.doc.Normalize()
	return nil
}

func (m *MockDocumentStore) Update(ctx context.Context, fn func(doc *models.Document) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWrite {
		return ErrWriteFailed
	}

	doc := m.doc.Clone()
	if err := fn(doc); err != nil {
		return err
	}
	m.writes++
	m.doc = doc
	return nil
}

// SetFailWrite makes every following Write and Update fail with ErrWriteFailed
func (m *MockDocumentStore) SetFailWrite(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = fail
}

// Reads returns how many times Read was called
func (m *MockDocumentStore) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// Writes returns how many writes succeeded
func (m *MockDocumentStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Clicks returns a copy of the click log stored for code
func (m *MockDocumentStore) Clicks(code string) []models.Click {
	m.mu.Lock()
	defer m.mu.Unlock()

	clicks := m.doc.Stats[code]
	out := make([]models.Click, len(clicks))
	copy(out, clicks)
	return out
}

// MockLinkCache implements repository.LinkCache for testing
type MockLinkCache struct {
	mu      sync.RWMutex
	links   map[string]*models.Link
	getErr  error
	deleted []string
}

func NewMockLinkCache() *MockLinkCache {
	return &MockLinkCache{
		links: make(map[string]*models.Link),
	}
}

func (m *MockLinkCache) Get(ctx context.Context, code string) (*models.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	link, exists := m.links[code]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	cp := *link
	return &cp, nil
}

func (m *MockLinkCache) Set(ctx context.Context, code string, link *models.Link, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *link
	m.links[code] = &cp
	return nil
}

func (m *MockLinkCache) Delete(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.links, code)
	m.deleted = append(m.deleted, code)
	return nil
}

// SetGetError makes Get fail, as an unreachable Redis would
func (m *MockLinkCache) SetGetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

// Has reports whether code is cached, ignoring any Get error
func (m *MockLinkCache) Has(code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.links[code]
	return ok
}

// Deleted returns the codes passed to Delete so far
func (m *MockLinkCache) Deleted() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.deleted...)
}

// MockCustomerRepository implements repository.CustomerRepository for testing
type MockCustomerRepository struct {
	mu        sync.RWMutex
	customers map[string]*models.Customer
	err       error
}

func NewMockCustomerRepository(customers ...*models.Customer) *MockCustomerRepository {
	m := &MockCustomerRepository{customers: make(map[string]*models.Customer)}
	for _, c := range customers {
		m.customers[c.ID] = c
	}
	return m
}

func (m *MockCustomerRepository) Get(ctx context.Context, id string) (*models.Customer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.err != nil {
		return nil, m.err
	}
	c, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

// SetError makes Get fail with err
func (m *MockCustomerRepository) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}
