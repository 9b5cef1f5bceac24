package profile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/codesearch"
	"github.com/medvault-health/profile-client/internal/store"
)

// Allergy is a coded allergy or intolerance on the patient profile.
type Allergy struct {
	UUID         string     `json:"uuid"`
	Code         string     `json:"code,omitempty"`
	Name         string     `json:"name"`
	Source       string     `json:"source,omitempty"`
	ReactionType string     `json:"reaction_type,omitempty"`
	Severity     string     `json:"severity,omitempty"`
	DiagnosedAt  *time.Time `json:"diagnosed_at,omitempty"`
	Reactions    []Reaction `json:"reactions,omitempty"`
}

// Reaction is a nested sub-resource of an allergy. Creating one returns the
// full updated parent allergy.
type Reaction struct {
	UUID        string     `json:"uuid"`
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

type AllergyCreate struct {
	Code         string     `json:"code,omitempty"`
	Name         string     `json:"name"`
	Source       string     `json:"source,omitempty"`
	ReactionType string     `json:"reaction_type,omitempty"`
	Severity     string     `json:"severity,omitempty"`
	DiagnosedAt  *time.Time `json:"diagnosed_at,omitempty"`
}

type AllergyUpdate struct {
	Name         *string    `json:"name,omitempty"`
	ReactionType *string    `json:"reaction_type,omitempty"`
	Severity     *string    `json:"severity,omitempty"`
	DiagnosedAt  *time.Time `json:"diagnosed_at,omitempty"`
}

type ReactionCreate struct {
	Description string     `json:"description"`
	OccurredAt  *time.Time `json:"occurred_at,omitempty"`
}

// NewAllergyStore creates the allergy store. Deletes are pessimistic: an
// allergy vanishing from the list before the server confirmed would hide a
// medically relevant row on a mere network blip.
func NewAllergyStore(backend store.Backend, logger zerolog.Logger) *store.Store[Allergy] {
	return store.New(store.Config[Allergy]{
		EndpointBase:   "/allergies",
		UUIDOf:         func(a Allergy) string { return a.UUID },
		DeleteStrategy: store.Pessimistic,
	}, backend, logger)
}

// AllergyFromCandidate builds a create payload from a selected terminology
// candidate, carrying the candidate's code, name and source verbatim.
func AllergyFromCandidate(c codesearch.Candidate, reactionType, severity string) AllergyCreate {
	return AllergyCreate{
		Code:         c.Code,
		Name:         c.Name,
		Source:       c.Source,
		ReactionType: reactionType,
		Severity:     severity,
	}
}

// AddReaction creates a reaction under the allergy and syncs the updated
// parent into the store.
func AddReaction(ctx context.Context, s *store.Store[Allergy], allergyUUID string, r ReactionCreate) (Allergy, error) {
	return s.SubCreate(ctx, allergyUUID, "reactions", r)
}
