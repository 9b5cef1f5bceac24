// Package alerts implements the panic button. A raised alert goes to the
// profile backend over REST and is additionally published to the emergency
// dispatch exchange, so degraded backend connectivity does not silence the
// one flow that must not fail quietly.
package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medvault-health/profile-client/internal/messaging"
)

// Alert is the backend's record of a raised alert.
type Alert struct {
	UUID     string    `json:"uuid"`
	Status   string    `json:"status,omitempty"`
	RaisedAt time.Time `json:"raised_at"`
}

// Location is an optional device position attached to the alert.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Poster is the write slice of the REST client.
type Poster interface {
	Post(ctx context.Context, path string, body, out interface{}) error
}

// IdentitySource yields the signed-in client's uuid, empty when signed out.
type IdentitySource interface {
	ClientUUID() string
}

// Dispatcher raises panic alerts.
type Dispatcher struct {
	backend   Poster
	publisher messaging.PublisherInterface
	identity  IdentitySource
	logger    zerolog.Logger
}

// NewDispatcher creates a Dispatcher. publisher may be nil when no broker is
// configured; the REST path then stands alone.
func NewDispatcher(backend Poster, publisher messaging.PublisherInterface, identity IdentitySource, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{backend: backend, publisher: publisher, identity: identity, logger: logger}
}

type panicRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Message   string   `json:"message,omitempty"`
}

// Panic raises an alert. The event is published to the dispatch exchange
// whether or not the REST call succeeded; when the backend did not assign an
// alert uuid, a locally generated one keeps the event traceable. The REST
// error, if any, is returned after the event is out.
func (d *Dispatcher) Panic(ctx context.Context, loc *Location, message string) (Alert, error) {
	req := panicRequest{Message: message}
	var lat, lon *float64
	if loc != nil {
		lat, lon = &loc.Latitude, &loc.Longitude
		req.Latitude, req.Longitude = lat, lon
	}

	var alert Alert
	restErr := d.backend.Post(ctx, "/alerts/panic", req, &alert)
	if restErr != nil {
		d.logger.Error().Err(restErr).Msg("panic alert REST call failed")
	}

	alertUUID := alert.UUID
	if alertUUID == "" {
		alertUUID = uuid.NewString()
	}
	if d.publisher != nil {
		event := messaging.NewPanicRaisedEvent(messaging.PanicRaisedData{
			AlertUUID:  alertUUID,
			ClientUUID: d.identity.ClientUUID(),
			Latitude:   lat,
			Longitude:  lon,
			Message:    message,
			RaisedAt:   time.Now().UTC(),
		})
		if err := d.publisher.Publish(ctx, messaging.EventPanicRaised, event); err != nil {
			d.logger.Error().Err(err).Msg("failed to publish panic event")
		}
	}

	if restErr != nil {
		return Alert{}, restErr
	}
	return alert, nil
}
