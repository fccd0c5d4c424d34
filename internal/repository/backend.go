package repository

import (
	"context"
	"errors"
)

var (
	ErrDocumentNotExist = errors.New("document does not exist")
	ErrLinkNotFound     = errors.New("link not found")
	ErrCodeExists       = errors.New("short code already exists")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrCacheMiss        = errors.New("cache miss")
)

// Document keys understood by every Backend.
const (
	DocumentKey  = "database"
	CustomersKey = "customers"
)

// Backend persists whole JSON documents by key. Save replaces the document in one step:
// a concurrent Load sees either the old or the new bytes, never a mix.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}
