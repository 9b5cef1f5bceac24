package profile

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/codesearch"
)

const allergyUUID = "9c2f4a6e-1b3d-45e7-8f90-a1b2c3d4e5f6"

// mockBackend records every call for request-shape assertions.
type mockBackend struct {
	mu       sync.Mutex
	posts    []string
	postBody interface{}

	getFunc  func(ctx context.Context, path string, out interface{}) error
	postFunc func(ctx context.Context, path string, body, out interface{}) error
}

func (m *mockBackend) Get(ctx context.Context, path string, out interface{}) error {
	if m.getFunc == nil {
		return nil
	}
	return m.getFunc(ctx, path, out)
}

func (m *mockBackend) Post(ctx context.Context, path string, body, out interface{}) error {
	m.mu.Lock()
	m.posts = append(m.posts, path)
	m.postBody = body
	m.mu.Unlock()
	if m.postFunc == nil {
		return nil
	}
	return m.postFunc(ctx, path, body, out)
}

func (m *mockBackend) Put(ctx context.Context, path string, body, out interface{}) error {
	return nil
}

func (m *mockBackend) Delete(ctx context.Context, path string) error {
	return nil
}

// TestCreateAllergyFromCandidate_SingleRequestWithCodeFields tests the
// code-candidate flow end to end at the store boundary: one POST carrying
// the candidate's code, name and source plus the form fields, and exactly
// one new list entry with the server-assigned uuid.
func TestCreateAllergyFromCandidate_SingleRequestWithCodeFields(t *testing.T) {
	backend := &mockBackend{
		postFunc: func(ctx context.Context, path string, body, out interface{}) error {
			payload := body.(AllergyCreate)
			*(out.(*Allergy)) = Allergy{
				UUID:         allergyUUID,
				Code:         payload.Code,
				Name:         payload.Name,
				Source:       payload.Source,
				ReactionType: payload.ReactionType,
				Severity:     payload.Severity,
			}
			return nil
		},
	}
	s := NewAllergyStore(backend, zerolog.Nop())

	candidate := codesearch.Candidate{Code: "419199007", Name: "Allergy to peanuts", Source: "snomed"}
	payload := AllergyFromCandidate(candidate, "Hives", "Moderate")

	created, err := s.Create(context.Background(), payload)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(backend.posts) != 1 {
		t.Fatalf("Expected exactly 1 POST, got %d", len(backend.posts))
	}
	if backend.posts[0] != "/allergies/" {
		t.Errorf("Expected POST to '/allergies/', got '%s'", backend.posts[0])
	}

	sent, err := json.Marshal(backend.postBody)
	if err != nil {
		t.Fatalf("Failed to marshal captured body: %v", err)
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(sent, &fields); err != nil {
		t.Fatalf("Failed to decode captured body: %v", err)
	}
	for key, want := range map[string]string{
		"code":          "419199007",
		"name":          "Allergy to peanuts",
		"source":        "snomed",
		"reaction_type": "Hives",
		"severity":      "Moderate",
	} {
		if got, _ := fields[key].(string); got != want {
			t.Errorf("Expected payload %s='%s', got '%s'", key, want, got)
		}
	}
	if _, present := fields["uuid"]; present {
		t.Error("Create payload must never carry a uuid")
	}

	if created.UUID != allergyUUID {
		t.Errorf("Expected server-assigned uuid, got '%s'", created.UUID)
	}
	count := 0
	for _, a := range s.Items() {
		if a.UUID == allergyUUID {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected new allergy to appear exactly once, got %d", count)
	}
}

// TestAddReaction_SyncsUpdatedParent tests the nested sub-resource flow: the
// backend returns the full updated allergy and the store swaps it in place.
func TestAddReaction_SyncsUpdatedParent(t *testing.T) {
	occurred := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	backend := &mockBackend{
		getFunc: func(ctx context.Context, path string, out interface{}) error {
			*(out.(*[]Allergy)) = []Allergy{{UUID: allergyUUID, Name: "Allergy to peanuts"}}
			return nil
		},
		postFunc: func(ctx context.Context, path string, body, out interface{}) error {
			if path != "/allergies/"+allergyUUID+"/reactions" {
				t.Errorf("Unexpected sub-resource path: %s", path)
			}
			*(out.(*Allergy)) = Allergy{
				UUID: allergyUUID,
				Name: "Allergy to peanuts",
				Reactions: []Reaction{
					{UUID: "r-1", Description: "Hives", OccurredAt: &occurred},
				},
			}
			return nil
		},
	}
	s := NewAllergyStore(backend, zerolog.Nop())
	s.FetchAll(context.Background())

	updated, err := AddReaction(context.Background(), s, allergyUUID, ReactionCreate{
		Description: "Hives",
		OccurredAt:  &occurred,
	})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(updated.Reactions) != 1 {
		t.Fatalf("Expected 1 reaction on updated parent, got %d", len(updated.Reactions))
	}

	items := s.Items()
	if len(items) != 1 {
		t.Fatalf("Expected 1 allergy cached, got %d", len(items))
	}
	if len(items[0].Reactions) != 1 {
		t.Error("Expected cached allergy replaced by updated parent")
	}
}

// TestNewestDateFirst_UndatedRecordsSink tests the shared comparator used by
// the chronological stores.
func TestNewestDateFirst_UndatedRecordsSink(t *testing.T) {
	older := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	less := newestDateFirst(func(d Disease) *time.Time { return d.DiagnosedAt })

	a := Disease{DiagnosedAt: &newer}
	b := Disease{DiagnosedAt: &older}
	c := Disease{}

	if !less(a, b) {
		t.Error("Expected newer diagnosis to sort first")
	}
	if less(c, a) {
		t.Error("Expected undated record to sink below dated ones")
	}
	if !less(b, c) {
		t.Error("Expected dated record to sort above undated one")
	}
}
