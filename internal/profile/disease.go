package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/codesearch"
	"github.com/medvault-health/profile-client/internal/store"
)

// Disease is a diagnosed condition on the patient profile.
type Disease struct {
	UUID        string     `json:"uuid"`
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name"`
	Source      string     `json:"source,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type DiseaseCreate struct {
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name"`
	Source      string     `json:"source,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

type DiseaseUpdate struct {
	Name        *string    `json:"name,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// NewDiseaseStore creates the disease store: pessimistic deletes, newest
// diagnosis first.
func NewDiseaseStore(backend store.Backend, logger zerolog.Logger) *store.Store[Disease] {
	return store.New(store.Config[Disease]{
		EndpointBase:   "/diseases",
		UUIDOf:         func(d Disease) string { return d.UUID },
		Less:           newestDateFirst(func(d Disease) *time.Time { return d.DiagnosedAt }),
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}

// DiseaseFromCandidate builds a create payload from a selected terminology
// candidate.
func DiseaseFromCandidate(c codesearch.Candidate, notes string) DiseaseCreate {
	return DiseaseCreate{
		Code:   c.Code,
		Name:   c.Name,
		Source: c.Source,
		Notes:  notes,
	}
}

// newestDateFirst orders records descending by an optional date; records
// without a date sink to the end.
func newestDateFirst[T any](dateOf func(T) *time.Time) func(a, b T) bool {
	return func(a, b T) bool {
		da, db := dateOf(a), dateOf(b)
		switch {
		case da == nil:
			return false
		case db == nil:
			return true
		default:
			return da.After(*db)
		}
	}
}
