package codesearch

import (
	"context"
	"sync"
	"time"

	"github.com/medvault-health/profile-client/internal/debounce"
)

// Result is one batch of suggestions for the term that produced them. Term
// lets a consumer double-check the batch still matches what is on screen.
type Result struct {
	Term       string
	Candidates []Candidate
}

// Autocomplete turns a stream of keystrokes into at most one terminology
// lookup per settled term. Terms below MinTermLength never reach the
// network; a lookup failure degrades to an empty candidate list so a broken
// search can never block typing or form submission; responses for a term the
// user has already typed past are discarded.
type Autocomplete struct {
	client     *Client
	vocabulary string
	emit       func(Result)
	deb        *debounce.Debouncer[string]

	mu      sync.Mutex
	current string
}

// NewAutocomplete creates an autocomplete for one vocabulary. emit is called
// with each fresh suggestion batch; it runs on the debouncer's goroutine.
func NewAutocomplete(client *Client, vocabulary string, delay time.Duration, emit func(Result)) *Autocomplete {
	a := &Autocomplete{
		client:     client,
		vocabulary: vocabulary,
		emit:       emit,
	}
	a.deb = debounce.New(delay, a.lookup)
	return a
}

// SetTerm submits the current raw input value. Short terms clear the
// suggestions immediately without scheduling a lookup.
func (a *Autocomplete) SetTerm(term string) {
	a.mu.Lock()
	a.current = term
	emit := a.emit
	a.mu.Unlock()

	if len([]rune(term)) < MinTermLength {
		emit(Result{Term: term})
		return
	}
	a.deb.Set(term)
}

// Close cancels any pending lookup. Emit is never called after Close.
func (a *Autocomplete) Close() {
	a.deb.Stop()
	a.mu.Lock()
	a.current = ""
	a.emit = func(Result) {}
	a.mu.Unlock()
}

func (a *Autocomplete) lookup(term string) {
	if a.stale(term) {
		return
	}

	candidates, err := a.client.Search(context.Background(), a.vocabulary, term)
	if err != nil {
		a.client.logger.Warn().Err(err).Str("term", term).Msg("code search degraded to empty result")
		candidates = nil
	}

	// The user may have kept typing while the request was in flight; a
	// batch for a superseded term must not visually win.
	if a.stale(term) {
		return
	}
	a.mu.Lock()
	emit := a.emit
	a.mu.Unlock()
	emit(Result{Term: term, Candidates: candidates})
}

func (a *Autocomplete) stale(term string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current != term
}
