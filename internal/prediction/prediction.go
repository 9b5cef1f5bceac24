// Package prediction carries the display contract for the server-computed
// menstrual-cycle forecast. The client renders this data and nothing more:
// no date may be recomputed locally, and any field may be absent, in which
// case a neutral placeholder is shown.
package prediction

import (
	"context"
	"time"
)

// Placeholder is rendered wherever the service sent no date.
const Placeholder = "—"

// Confidence is the closed-set quality label attached to a forecast.
type Confidence string

const (
	ConfidenceInsufficient Confidence = "insufficient-data"
	ConfidenceLow          Confidence = "low"
	ConfidenceMedium       Confidence = "medium"
	ConfidenceHigh         Confidence = "high"
	// ConfidenceUnknown covers labels outside the closed set; rendered
	// like insufficient data rather than crashing or guessing.
	ConfidenceUnknown Confidence = ""
)

// ParseConfidence maps a wire label onto the closed set.
func ParseConfidence(label string) Confidence {
	switch Confidence(label) {
	case ConfidenceInsufficient, ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return Confidence(label)
	}
	return ConfidenceUnknown
}

// Severity is the visual treatment a confidence maps to.
type Severity string

const (
	SeverityNeutral Severity = "neutral"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
)

// Severity returns the visual treatment for the label.
func (c Confidence) Severity() Severity {
	switch c {
	case ConfidenceHigh:
		return SeveritySuccess
	case ConfidenceMedium:
		return SeverityInfo
	case ConfidenceLow:
		return SeverityWarning
	}
	return SeverityNeutral
}

// Window is the fertile window, both ends optional.
type Window struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// Prediction is the forecast as the service sends it.
type Prediction struct {
	NextPeriod    *time.Time `json:"next_period,omitempty"`
	FertileWindow *Window    `json:"fertile_window,omitempty"`
	Confidence    Confidence `json:"confidence"`
}

// Normalize clamps out-of-set confidence labels. Called after decoding.
func (p *Prediction) Normalize() {
	p.Confidence = ParseConfidence(string(p.Confidence))
}

// FormatDate renders an optional date for display.
func FormatDate(t *time.Time) string {
	if t == nil {
		return Placeholder
	}
	return t.Format("Jan 2, 2006")
}

// FormatWindow renders the fertile window, tolerating any combination of
// absent bounds.
func FormatWindow(w *Window) string {
	if w == nil {
		return Placeholder
	}
	return FormatDate(w.Start) + " to " + FormatDate(w.End)
}

// Getter is the read slice of the REST client.
type Getter interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// Client fetches the current forecast.
type Client struct {
	backend Getter
}

// NewClient creates a prediction client.
func NewClient(backend Getter) *Client {
	return &Client{backend: backend}
}

// Get returns the normalized forecast for the signed-in client.
func (c *Client) Get(ctx context.Context) (Prediction, error) {
	var p Prediction
	if err := c.backend.Get(ctx, "/menstrual-cycles/prediction", &p); err != nil {
		return Prediction{}, err
	}
	p.Normalize()
	return p, nil
}
