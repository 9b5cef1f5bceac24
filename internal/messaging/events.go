package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants
const (
	// Alert events
	EventPanicRaised = "alert.panic.raised"

	// Emergency profile events
	EventEmergencyAccessed = "emergency.profile.accessed"
)

const serviceName = "profile-client"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

func newBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: serviceName,
	}
}

// PanicRaisedEvent represents a panic alert raised by the patient
type PanicRaisedEvent struct {
	BaseEvent
	Data PanicRaisedData `json:"data"`
}

type PanicRaisedData struct {
	AlertUUID  string    `json:"alert_uuid"`
	ClientUUID string    `json:"client_uuid"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Message    string    `json:"message,omitempty"`
	RaisedAt   time.Time `json:"raised_at"`
}

// NewPanicRaisedEvent builds the panic event for dispatch.
func NewPanicRaisedEvent(data PanicRaisedData) PanicRaisedEvent {
	return PanicRaisedEvent{
		BaseEvent: newBaseEvent(EventPanicRaised),
		Data:      data,
	}
}

// EmergencyAccessedEvent represents a read of the shared emergency profile
type EmergencyAccessedEvent struct {
	BaseEvent
	Data EmergencyAccessedData `json:"data"`
}

type EmergencyAccessedData struct {
	ShareToken string    `json:"share_token"`
	RemoteAddr string    `json:"remote_addr,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

// NewEmergencyAccessedEvent builds the access event for dispatch.
func NewEmergencyAccessedEvent(data EmergencyAccessedData) EmergencyAccessedEvent {
	return EmergencyAccessedEvent{
		BaseEvent: newBaseEvent(EventEmergencyAccessed),
		Data:      data,
	}
}
