package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/codesearch"
	"github.com/medvault-health/profile-client/internal/store"
)

// InfectiousDisease is an infectious-disease record on the patient profile.
type InfectiousDisease struct {
	UUID        string     `json:"uuid"`
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name"`
	Source      string     `json:"source,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	Chronic     bool       `json:"chronic"`
}

type InfectiousCreate struct {
	Code        string     `json:"code,omitempty"`
	Name        string     `json:"name"`
	Source      string     `json:"source,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	Chronic     bool       `json:"chronic"`
}

type InfectiousUpdate struct {
	Name       *string    `json:"name,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Chronic    *bool      `json:"chronic,omitempty"`
}

// NewInfectiousStore creates the infectious-disease store: pessimistic
// deletes, newest diagnosis first.
func NewInfectiousStore(backend store.Backend, logger zerolog.Logger) *store.Store[InfectiousDisease] {
	return store.New(store.Config[InfectiousDisease]{
		EndpointBase:   "/infectious-diseases",
		UUIDOf:         func(d InfectiousDisease) string { return d.UUID },
		Less:           newestDateFirst(func(d InfectiousDisease) *time.Time { return d.DiagnosedAt }),
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}

// InfectiousFromCandidate builds a create payload from a selected
// terminology candidate.
func InfectiousFromCandidate(c codesearch.Candidate, chronic bool) InfectiousCreate {
	return InfectiousCreate{
		Code:    c.Code,
		Name:    c.Name,
		Source:  c.Source,
		Chronic: chronic,
	}
}
