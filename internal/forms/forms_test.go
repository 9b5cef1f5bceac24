package forms

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func registrationSchema() Schema {
	return Schema{Fields: map[string]Field{
		"email":          {Required: true},
		"password":       {Required: true, MinLength: 8},
		"passwordRepeat": {Required: true, Match: "password"},
	}}
}

// TestValidate_RequiredAndMinLength tests the basic field rules.
func TestValidate_RequiredAndMinLength(t *testing.T) {
	_, errs := registrationSchema().Validate(map[string]string{
		"email":    "",
		"password": "short",
	})

	if errs["email"] == "" {
		t.Error("Expected required error on email")
	}
	if errs["password"] == "" {
		t.Error("Expected min-length error on password")
	}
}

// TestValidate_CrossFieldMatch tests that a mismatch error lands on the
// repeat field, not the original.
func TestValidate_CrossFieldMatch(t *testing.T) {
	_, errs := registrationSchema().Validate(map[string]string{
		"email":          "pat@example.com",
		"password":       "correct-horse",
		"passwordRepeat": "correct-h0rse",
	})

	if errs["passwordRepeat"] == "" {
		t.Error("Expected mismatch error on passwordRepeat")
	}
	if errs["password"] != "" {
		t.Errorf("Expected no error on password, got '%s'", errs["password"])
	}
}

// TestValidate_NumericCoercion tests that numeric fields coerce to float64
// and that coercion failure is a field error, not a panic.
func TestValidate_NumericCoercion(t *testing.T) {
	schema := Schema{Fields: map[string]Field{
		"weight": {Required: true, Numeric: true},
	}}

	typed, errs := schema.Validate(map[string]string{"weight": "72.5"})
	if len(errs) != 0 {
		t.Fatalf("Expected no errors, got %v", errs)
	}
	if w, ok := typed["weight"].(float64); !ok || w != 72.5 {
		t.Errorf("Expected typed weight 72.5, got %v", typed["weight"])
	}

	typed, errs = schema.Validate(map[string]string{"weight": "seventy"})
	if errs["weight"] == "" {
		t.Error("Expected coercion failure reported as field error")
	}
	if _, ok := typed["weight"]; ok {
		t.Error("Expected no typed value for failed coercion")
	}
}

// TestSetSchema_RevalidatesEnteredValues tests the language-switch path: a
// new schema re-runs validation over values already entered.
func TestSetSchema_RevalidatesEnteredValues(t *testing.T) {
	form := NewForm(Schema{Fields: map[string]Field{
		"name": {Required: true, Messages: Messages{Required: "This field is required."}},
	}})
	form.SetValue("name", "")

	if msg := form.Errors()["name"]; msg != "This field is required." {
		t.Fatalf("Expected English message, got '%s'", msg)
	}

	form.SetSchema(Schema{Fields: map[string]Field{
		"name": {Required: true, Messages: Messages{Required: "Dieses Feld ist erforderlich."}},
	}})

	if msg := form.Errors()["name"]; msg != "Dieses Feld ist erforderlich." {
		t.Errorf("Expected localized message after schema swap, got '%s'", msg)
	}
}

// TestSubmit_InvalidFormNeverRunsHandler tests that validation gates
// submission.
func TestSubmit_InvalidFormNeverRunsHandler(t *testing.T) {
	form := NewForm(registrationSchema())

	ran := false
	err := form.Submit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		ran = true
		return nil
	})

	if !errors.Is(err, ErrValidation) {
		t.Fatalf("Expected ErrValidation, got: %v", err)
	}
	if ran {
		t.Error("Expected handler not to run for invalid form")
	}
}

// TestSubmit_DoubleClickRunsHandlerOnce tests the submit gate: two rapid
// submits perform exactly one submission.
func TestSubmit_DoubleClickRunsHandlerOnce(t *testing.T) {
	form := NewForm(Schema{Fields: map[string]Field{}})

	entered := make(chan struct{})
	release := make(chan struct{})
	var mu sync.Mutex
	runs := 0

	first := make(chan error, 1)
	go func() {
		first <- form.Submit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
			mu.Lock()
			runs++
			mu.Unlock()
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	if !form.Submitting() {
		t.Error("Expected Submitting true while handler runs")
	}

	// Second click while the first is in flight.
	err := form.Submit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		mu.Lock()
		runs++
		mu.Unlock()
		return nil
	})
	if !errors.Is(err, ErrSubmitInFlight) {
		t.Fatalf("Expected ErrSubmitInFlight, got: %v", err)
	}

	close(release)
	if err := <-first; err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if runs != 1 {
		t.Errorf("Expected handler to run once, ran %d times", runs)
	}
	if form.Submitting() {
		t.Error("Expected Submitting cleared after completion")
	}
}

// TestSubmit_HandlerErrorClearsGate tests that a failed submission re-enables
// the form.
func TestSubmit_HandlerErrorClearsGate(t *testing.T) {
	form := NewForm(Schema{Fields: map[string]Field{}})

	boom := errors.New("server rejected")
	err := form.Submit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Expected handler error surfaced, got: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- form.Submit(context.Background(), func(ctx context.Context, values map[string]interface{}) error {
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected resubmit to succeed, got: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Resubmit blocked; gate not cleared")
	}
}
