package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/SergeiKhy/linkhub/internal/models"
)

// CustomerRepository reads the customers document. The links store only sees customer
// IDs as opaque owner strings.
type CustomerRepository interface {
	Get(ctx context.Context, id string) (*models.Customer, error)
}

type customerRepository struct {
	backend Backend
}

func NewCustomerRepository(backend Backend) CustomerRepository {
	return &customerRepository{backend: backend}
}

func (r *customerRepository) Get(ctx context.Context, id string) (*models.Customer, error) {
	doc, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	customer, ok := doc.Customers[id]
	if !ok {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepository) load(ctx context.Context) (*models.CustomersDocument, error) {
	doc := &models.CustomersDocument{Customers: map[string]*models.Customer{}}

	data, err := r.backend.Load(ctx, CustomersKey)
	if err != nil {
		if errors.Is(err, ErrDocumentNotExist) {
			return doc, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("failed to parse customers: %w", err)
	}
	if doc.Customers == nil {
		doc.Customers = map[string]*models.Customer{}
	}

	return doc, nil
}
