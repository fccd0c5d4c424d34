package models

import (
	"time"
)

// Link is a persisted short link. Field names follow the on-disk document format.
type Link struct {
	ID                  string    `json:"id"`
	OriginalURL         string    `json:"originalUrl"`
	ShortCode           string    `json:"shortCode"`
	CustomerID          string    `json:"customerId"`
	CreatedAt           time.Time `json:"createdAt"`
	CustomCode          bool      `json:"customCode,omitempty"`
	AffiliateCode       string    `json:"affiliateCode,omitempty"`
	AffiliateCommission *float64  `json:"affiliateCommission,omitempty"`
}

type CreateLinkInput struct {
	OriginalURL string
	CustomCode  string
	CustomerID  string
}

// BulkEditMode selects how BulkEditInput rewrites destinations.
type BulkEditMode string

const (
	BulkEditReplace     BulkEditMode = "replace"
	BulkEditFindReplace BulkEditMode = "find-replace"
)

type BulkEditInput struct {
	CustomerID  string
	LinkIDs     []string
	Mode        BulkEditMode
	NewURL      string
	FindText    string
	ReplaceText string
}

// LinkSummary is a link as shown in a customer's link list.
type LinkSummary struct {
	ID          string    `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url,omitempty"`
	OriginalURL string    `json:"original_url"`
	Clicks      int       `json:"clicks"`
	CreatedAt   time.Time `json:"created_at"`
	CustomCode  bool      `json:"custom_code"`
}

// Document is the whole persisted store: links and their click logs, both keyed by short code.
type Document struct {
	Links map[string]*Link   `json:"links"`
	Stats map[string][]Click `json:"stats"`
}

func NewDocument() *Document {
	return &Document{
		Links: make(map[string]*Link),
		Stats: make(map[string][]Click),
	}
}

// Clone returns a deep copy. Cached documents are shared, so callers mutate clones only.
func (d *Document) Clone() *Document {
	out := &Document{
		Links: make(map[string]*Link, len(d.Links)),
		Stats: make(map[string][]Click, len(d.Stats)),
	}
	for code, link := range d.Links {
		l := *link
		if link.AffiliateCommission != nil {
			c := *link.AffiliateCommission
			l.AffiliateCommission = &c
		}
		out.Links[code] = &l
	}
	for code, clicks := range d.Stats {
		if clicks == nil {
			out.Stats[code] = nil
			continue
		}
		cp := make([]Click, len(clicks))
		copy(cp, clicks)
		out.Stats[code] = cp
	}
	return out
}

// Normalize replaces nil maps left by a sparse JSON document.
func (d *Document) Normalize() {
	if d.Links == nil {
		d.Links = make(map[string]*Link)
	}
	if d.Stats == nil {
		d.Stats = make(map[string][]Click)
	}
}

// FindByID looks a link up by its identifier rather than its short code.
func (d *Document) FindByID(id string) (*Link, bool) {
	for _, link := range d.Links {
		if link.ID == id {
			return link, true
		}
	}
	return nil, false
}
