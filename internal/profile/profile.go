// Package profile defines the patient-profile entity types and wires one
// resource store per collection. Each entity file declares its type, its
// create/update payloads, its endpoint and its delete strategy; the generic
// store supplies the rest of the CRUD contract.
package profile

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/store"
)

// Stores bundles every resource store for the signed-in patient.
type Stores struct {
	Allergies   *store.Store[Allergy]
	Diseases    *store.Store[Disease]
	Medications *store.Store[Medication]
	VitalSigns  *store.Store[VitalSign]
	Contacts    *store.Store[Contact]
	Pregnancies *store.Store[Pregnancy]
	CycleLogs   *store.Store[CycleLog]
	Addictions  *store.Store[Addiction]
	Psychiatric *store.Store[PsychiatricCondition]
	Infectious  *store.Store[InfectiousDisease]
}

// NewStores creates the full set of resource stores against one backend.
func NewStores(backend store.Backend, logger zerolog.Logger) *Stores {
	return &Stores{
		Allergies:   NewAllergyStore(backend, logger),
		Diseases:    NewDiseaseStore(backend, logger),
		Medications: NewMedicationStore(backend, logger),
		VitalSigns:  NewVitalSignStore(backend, logger),
		Contacts:    NewContactStore(backend, logger),
		Pregnancies: NewPregnancyStore(backend, logger),
		CycleLogs:   NewCycleLogStore(backend, logger),
		Addictions:  NewAddictionStore(backend, logger),
		Psychiatric: NewPsychiatricStore(backend, logger),
		Infectious:  NewInfectiousStore(backend, logger),
	}
}

// FetchAll loads every collection concurrently. Used by the profile overview
// and the emergency summary, which need the whole bundle at once.
func (s *Stores) FetchAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, fetch := range []func(context.Context){
		s.Allergies.FetchAll,
		s.Diseases.FetchAll,
		s.Medications.FetchAll,
		s.VitalSigns.FetchAll,
		s.Contacts.FetchAll,
		s.Pregnancies.FetchAll,
		s.CycleLogs.FetchAll,
		s.Addictions.FetchAll,
		s.Psychiatric.FetchAll,
		s.Infectious.FetchAll,
	} {
		wg.Add(1)
		go func(f func(context.Context)) {
			defer wg.Done()
			f(ctx)
		}(fetch)
	}
	wg.Wait()
}
