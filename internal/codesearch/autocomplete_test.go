package codesearch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockGetter implements Getter with a pluggable func field.
type mockGetter struct {
	mu      sync.Mutex
	calls   []string
	getFunc func(ctx context.Context, path string, out interface{}) error
}

func (m *mockGetter) Get(ctx context.Context, path string, out interface{}) error {
	m.mu.Lock()
	m.calls = append(m.calls, path)
	m.mu.Unlock()
	if m.getFunc == nil {
		return nil
	}
	return m.getFunc(ctx, path, out)
}

func (m *mockGetter) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type resultSink struct {
	mu      sync.Mutex
	results []Result
}

func (r *resultSink) add(res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, res)
}

func (r *resultSink) last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		return Result{}, false
	}
	return r.results[len(r.results)-1], true
}

// TestSearch_BuildsVocabularyPath tests the endpoint shape and decoding.
func TestSearch_BuildsVocabularyPath(t *testing.T) {
	getter := &mockGetter{
		getFunc: func(ctx context.Context, path string, out interface{}) error {
			if path != "/medical-codes/search/snomed?term=peanut" {
				t.Errorf("Unexpected path: %s", path)
			}
			*(out.(*[]Candidate)) = []Candidate{
				{Code: "419199007", Name: "Allergy to peanuts", Source: "snomed"},
			}
			return nil
		},
	}
	client := NewClient(getter, zerolog.Nop())

	candidates, err := client.Search(context.Background(), "snomed", "peanut")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].Code != "419199007" {
		t.Errorf("Expected code '419199007', got '%s'", candidates[0].Code)
	}
}

// TestAutocomplete_ShortTermNeverCallsNetwork tests the minimum-length rule.
func TestAutocomplete_ShortTermNeverCallsNetwork(t *testing.T) {
	getter := &mockGetter{}
	sink := &resultSink{}
	ac := NewAutocomplete(NewClient(getter, zerolog.Nop()), "snomed", 10*time.Millisecond, sink.add)
	defer ac.Close()

	ac.SetTerm("p")
	ac.SetTerm("pe")

	time.Sleep(60 * time.Millisecond)
	if getter.callCount() != 0 {
		t.Errorf("Expected no network calls for short terms, got %d", getter.callCount())
	}
	last, ok := sink.last()
	if !ok {
		t.Fatal("Expected an immediate empty result for short terms")
	}
	if len(last.Candidates) != 0 {
		t.Error("Expected empty candidate list for short term")
	}
}

// TestAutocomplete_DebouncedSingleCall tests that a typing burst settles
// into exactly one lookup for the final term.
func TestAutocomplete_DebouncedSingleCall(t *testing.T) {
	getter := &mockGetter{
		getFunc: func(ctx context.Context, path string, out interface{}) error {
			*(out.(*[]Candidate)) = []Candidate{{Code: "91936005", Name: "Allergy to penicillin"}}
			return nil
		},
	}
	sink := &resultSink{}
	ac := NewAutocomplete(NewClient(getter, zerolog.Nop()), "snomed", 30*time.Millisecond, sink.add)
	defer ac.Close()

	for _, term := range []string{"pen", "peni", "penic", "penici"} {
		ac.SetTerm(term)
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(120 * time.Millisecond)
	if getter.callCount() != 1 {
		t.Fatalf("Expected exactly 1 lookup, got %d", getter.callCount())
	}
	getter.mu.Lock()
	path := getter.calls[0]
	getter.mu.Unlock()
	if !strings.Contains(path, "term=penici") {
		t.Errorf("Expected lookup for final term, got %s", path)
	}
	last, ok := sink.last()
	if !ok || last.Term != "penici" {
		t.Errorf("Expected result for 'penici', got %+v", last)
	}
}

// TestAutocomplete_StaleResponseDiscarded tests that a slow response for a
// superseded term never reaches the consumer.
func TestAutocomplete_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	getter := &mockGetter{
		getFunc: func(ctx context.Context, path string, out interface{}) error {
			if strings.Contains(path, "term=aspirin") {
				<-release // first lookup hangs until after the term changed
			}
			*(out.(*[]Candidate)) = []Candidate{{Code: "X", Name: path}}
			return nil
		},
	}
	sink := &resultSink{}
	ac := NewAutocomplete(NewClient(getter, zerolog.Nop()), "snomed", 5*time.Millisecond, sink.add)
	defer ac.Close()

	ac.SetTerm("aspirin")
	time.Sleep(40 * time.Millisecond) // lookup now in flight

	ac.SetTerm("ibuprofen")
	time.Sleep(40 * time.Millisecond)
	close(release)
	time.Sleep(40 * time.Millisecond)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	for _, res := range sink.results {
		if res.Term == "aspirin" {
			t.Error("Stale result for 'aspirin' must be discarded")
		}
	}
}

// TestAutocomplete_FailureDegradesToEmpty tests that a search error emits an
// empty batch instead of propagating.
func TestAutocomplete_FailureDegradesToEmpty(t *testing.T) {
	getter := &mockGetter{
		getFunc: func(ctx context.Context, path string, out interface{}) error {
			return errors.New("terminology service down")
		},
	}
	sink := &resultSink{}
	ac := NewAutocomplete(NewClient(getter, zerolog.Nop()), "snomed", 10*time.Millisecond, sink.add)
	defer ac.Close()

	ac.SetTerm("latex")
	time.Sleep(80 * time.Millisecond)

	last, ok := sink.last()
	if !ok {
		t.Fatal("Expected an emitted result despite the failure")
	}
	if last.Term != "latex" || len(last.Candidates) != 0 {
		t.Errorf("Expected empty result for 'latex', got %+v", last)
	}
}
