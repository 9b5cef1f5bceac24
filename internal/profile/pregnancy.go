package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// Pregnancy is one pregnancy record, current or past.
type Pregnancy struct {
	UUID      string     `json:"uuid"`
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Outcome   string     `json:"outcome,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type PregnancyCreate struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

type PregnancyUpdate struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Outcome   *string    `json:"outcome,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// NewPregnancyStore creates the pregnancy store: pessimistic deletes, most
// recent first.
func NewPregnancyStore(backend store.Backend, logger zerolog.Logger) *store.Store[Pregnancy] {
	return store.New(store.Config[Pregnancy]{
		EndpointBase:   "/pregnancies",
		UUIDOf:         func(p Pregnancy) string { return p.UUID },
		Less:           newestDateFirst(func(p Pregnancy) *time.Time { return p.StartDate }),
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}
