// Package emergency builds the break-glass profile summary and serves it on
// the address a printed QR code points at. First responders get a read-only,
// token-addressed snapshot of the facts that matter in an emergency.
package emergency

import (
	"fmt"
	"strings"

	"github.com/medvault-health/profile-client/internal/profile"
)

// Summary entry keys. The set is closed: rendering iterates this list, never
// an untyped map, so display order and content are fixed by schema.
const (
	KeyAllergies   = "allergies"
	KeyDiseases    = "diseases"
	KeyMedications = "medications"
	KeyInfectious  = "infectious_diseases"
	KeyContacts    = "emergency_contacts"
)

var knownKeys = []string{
	KeyAllergies,
	KeyDiseases,
	KeyMedications,
	KeyInfectious,
	KeyContacts,
}

// Entry is one tagged line of the emergency summary.
type Entry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// BuildSummary assembles the tagged entry list from the cached profile.
// Empty collections are omitted.
func BuildSummary(stores *profile.Stores) []Entry {
	var entries []Entry
	add := func(key, label string, parts []string) {
		if len(parts) == 0 {
			return
		}
		entries = append(entries, Entry{Key: key, Label: label, Value: strings.Join(parts, "; ")})
	}

	var allergies []string
	for _, a := range stores.Allergies.Items() {
		line := a.Name
		if a.Severity != "" {
			line += " (" + a.Severity + ")"
		}
		allergies = append(allergies, line)
	}
	add(KeyAllergies, "Allergies", allergies)

	var diseases []string
	for _, d := range stores.Diseases.Items() {
		diseases = append(diseases, d.Name)
	}
	add(KeyDiseases, "Conditions", diseases)

	var medications []string
	for _, m := range stores.Medications.Items() {
		if m.StoppedAt != nil {
			continue
		}
		line := m.Name
		if m.Dosage != "" {
			line += " " + m.Dosage
		}
		medications = append(medications, line)
	}
	add(KeyMedications, "Current medications", medications)

	var infectious []string
	for _, d := range stores.Infectious.Items() {
		if d.ResolvedAt != nil && !d.Chronic {
			continue
		}
		infectious = append(infectious, d.Name)
	}
	add(KeyInfectious, "Infectious diseases", infectious)

	var contacts []string
	for _, c := range stores.Contacts.Items() {
		line := c.FirstName + " " + c.LastName + ": " + c.PhoneNumber
		if c.Relationship != "" {
			line += " (" + c.Relationship + ")"
		}
		contacts = append(contacts, line)
	}
	add(KeyContacts, "Emergency contacts", contacts)

	return entries
}

// ValidateSummary rejects entries outside the known key set.
func ValidateSummary(entries []Entry) error {
	for _, e := range entries {
		known := false
		for _, k := range knownKeys {
			if e.Key == k {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown summary key: %s", e.Key)
		}
		if e.Label == "" {
			return fmt.Errorf("summary entry %s has no label", e.Key)
		}
	}
	return nil
}
