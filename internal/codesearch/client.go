// Package codesearch queries the medical-terminology search endpoint and
// drives the autocomplete fields that let a patient pick a coded allergen or
// disease instead of free text.
package codesearch

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// MinTermLength is the shortest term worth sending to the terminology
// service. Enforced by Autocomplete, not by Client.
const MinTermLength = 3

// Candidate is one coded concept returned by the terminology search.
// Selecting a candidate embeds Code, Name and Source into a resource-create
// payload.
type Candidate struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Source string `json:"source,omitempty"`
}

// Getter is the read slice of the REST client.
type Getter interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// Client wraps the terminology search endpoint. Calls are rate limited so a
// burst of lookups cannot hammer the shared coding service.
type Client struct {
	backend Getter
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates a search client. The limiter allows short bursts while
// capping sustained throughput at a few requests per second.
func NewClient(backend Getter, logger zerolog.Logger) *Client {
	return &Client{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(5), 5),
		logger:  logger,
	}
}

// Search looks term up in the given vocabulary (e.g. "snomed", "icd10").
// The remote service defines the result order; no client-side reordering.
func (c *Client) Search(ctx context.Context, vocabulary, term string) ([]Candidate, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search rate limit: %w", err)
	}

	path := "/medical-codes/search/" + url.PathEscape(vocabulary) + "?term=" + url.QueryEscape(term)
	var candidates []Candidate
	if err := c.backend.Get(ctx, path, &candidates); err != nil {
		return nil, fmt.Errorf("code search failed: %w", err)
	}
	return candidates, nil
}
