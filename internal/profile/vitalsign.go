package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// VitalSign is one self-reported measurement (blood pressure, weight,
// glucose, ...).
type VitalSign struct {
	UUID       string    `json:"uuid"`
	Kind       string    `json:"kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	MeasuredAt time.Time `json:"measured_at"`
}

type VitalSignCreate struct {
	Kind       string    `json:"kind"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit,omitempty"`
	MeasuredAt time.Time `json:"measured_at"`
}

type VitalSignUpdate struct {
	Value      *float64   `json:"value,omitempty"`
	Unit       *string    `json:"unit,omitempty"`
	MeasuredAt *time.Time `json:"measured_at,omitempty"`
}

// NewVitalSignStore creates the vital-sign store: pessimistic deletes,
// newest measurement first.
func NewVitalSignStore(backend store.Backend, logger zerolog.Logger) *store.Store[VitalSign] {
	return store.New(store.Config[VitalSign]{
		EndpointBase:   "/vital-signs",
		UUIDOf:         func(v VitalSign) string { return v.UUID },
		Less:           func(a, b VitalSign) bool { return a.MeasuredAt.After(b.MeasuredAt) },
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}
