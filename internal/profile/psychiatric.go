package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// PsychiatricCondition is a psychiatric diagnosis on the patient profile.
type PsychiatricCondition struct {
	UUID        string     `json:"uuid"`
	Name        string     `json:"name"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	InTreatment bool       `json:"in_treatment"`
	Notes       string     `json:"notes,omitempty"`
}

type PsychiatricCreate struct {
	Name        string     `json:"name"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	InTreatment bool       `json:"in_treatment"`
	Notes       string     `json:"notes,omitempty"`
}

type PsychiatricUpdate struct {
	Name        *string    `json:"name,omitempty"`
	DiagnosedAt *time.Time `json:"diagnosed_at,omitempty"`
	InTreatment *bool      `json:"in_treatment,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// NewPsychiatricStore creates the psychiatric-condition store: pessimistic
// deletes, newest diagnosis first.
func NewPsychiatricStore(backend store.Backend, logger zerolog.Logger) *store.Store[PsychiatricCondition] {
	return store.New(store.Config[PsychiatricCondition]{
		EndpointBase:   "/psychiatric-conditions",
		UUIDOf:         func(p PsychiatricCondition) string { return p.UUID },
		Less:           newestDateFirst(func(p PsychiatricCondition) *time.Time { return p.DiagnosedAt }),
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}
