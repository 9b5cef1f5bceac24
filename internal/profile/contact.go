package profile

import (
	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// Contact is an emergency contact person.
type Contact struct {
	UUID         string `json:"uuid"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Relationship string `json:"relationship,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
}

type ContactCreate struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Relationship string `json:"relationship,omitempty"`
	PhoneNumber  string `json:"phone_number"`
	Email        string `json:"email,omitempty"`
}

type ContactUpdate struct {
	FirstName    *string `json:"first_name,omitempty"`
	LastName     *string `json:"last_name,omitempty"`
	Relationship *string `json:"relationship,omitempty"`
	PhoneNumber  *string `json:"phone_number,omitempty"`
	Email        *string `json:"email,omitempty"`
}

// NewContactStore creates the contact store. Deletes are optimistic: a
// contact row is trivially re-creatable and the snappy removal matches how
// the list is used.
func NewContactStore(backend store.Backend, logger zerolog.Logger) *store.Store[Contact] {
	return store.New(store.Config[Contact]{
		EndpointBase:   "/contacts",
		UUIDOf:         func(c Contact) string { return c.UUID },
		DeleteStrategy: store.Optimistic,
	}, backend, logger)
}
