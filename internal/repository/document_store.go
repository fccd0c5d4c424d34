package repository

import (
	"context"

	"github.com/SergeiKhy/linkhub/internal/models"
)

// DocumentStore is what services need from Store.
type DocumentStore interface {
	Read(ctx context.Context) *models.Document
	Write(ctx context.Context, doc *models.Document) error
	Update(ctx context.Context, fn func(doc *models.Document) error) error
}

var _ DocumentStore = (*Store)(nil)
