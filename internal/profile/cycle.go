package profile

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// CycleLog is one logged menstrual cycle. The prediction widget consumes the
// server-computed forecast derived from these logs; the client never
// recomputes it.
type CycleLog struct {
	UUID      string     `json:"uuid"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	FlowLevel string     `json:"flow_level,omitempty"`
	Symptoms  []string   `json:"symptoms,omitempty"`
}

type CycleLogCreate struct {
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	FlowLevel string     `json:"flow_level,omitempty"`
	Symptoms  []string   `json:"symptoms,omitempty"`
}

type CycleLogUpdate struct {
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	FlowLevel *string    `json:"flow_level,omitempty"`
	Symptoms  []string   `json:"symptoms,omitempty"`
}

// NewCycleLogStore creates the cycle-log store: optimistic deletes (logs are
// entered and corrected frequently), newest cycle first.
func NewCycleLogStore(backend store.Backend, logger zerolog.Logger) *store.Store[CycleLog] {
	return store.New(store.Config[CycleLog]{
		EndpointBase:   "/menstrual-cycles",
		UUIDOf:         func(c CycleLog) string { return c.UUID },
		Less:           func(a, b CycleLog) bool { return a.StartDate.After(b.StartDate) },
		DeleteStrategy: store.Optimistic,
	}, backend, logger)
}
