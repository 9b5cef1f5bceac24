package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// Medication is a current or past medication on the patient profile.
type Medication struct {
	UUID      string     `json:"uuid"`
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage,omitempty"`
	Frequency string     `json:"frequency,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

type MedicationCreate struct {
	Name      string     `json:"name"`
	Dosage    string     `json:"dosage,omitempty"`
	Frequency string     `json:"frequency,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
}

type MedicationUpdate struct {
	Name      *string    `json:"name,omitempty"`
	Dosage    *string    `json:"dosage,omitempty"`
	Frequency *string    `json:"frequency,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
}

// NewMedicationStore creates the medication store: pessimistic deletes,
// most recently started first.
func NewMedicationStore(backend store.Backend, logger zerolog.Logger) *store.Store[Medication] {
	return store.New(store.Config[Medication]{
		EndpointBase:   "/medications",
		UUIDOf:         func(m Medication) string { return m.UUID },
		Less:           newestDateFirst(func(m Medication) *time.Time { return m.StartedAt }),
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}
