package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// Addiction is a substance-use record on the patient profile.
type Addiction struct {
	UUID      string     `json:"uuid"`
	Substance string     `json:"substance"`
	Status    string     `json:"status,omitempty"` // active, recovering, recovered
	StartedAt *time.Time `json:"started_at,omitempty"`
	QuitAt    *time.Time `json:"quit_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type AddictionCreate struct {
	Substance string     `json:"substance"`
	Status    string     `json:"status,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type AddictionUpdate struct {
	Status *string    `json:"status,omitempty"`
	QuitAt *time.Time `json:"quit_at,omitempty"`
	Notes  *string    `json:"notes,omitempty"`
}

// NewAddictionStore creates the addiction store: pessimistic deletes.
func NewAddictionStore(backend store.Backend, logger zerolog.Logger) *store.Store[Addiction] {
	return store.New(store.Config[Addiction]{
		EndpointBase:   "/addictions",
		UUIDOf:         func(a Addiction) string { return a.UUID },
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}
