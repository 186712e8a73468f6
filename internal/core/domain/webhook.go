package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// EndpointStatus represents whether an endpoint receives deliveries.
type EndpointStatus string

const (
	EndpointStatusActive  EndpointStatus = "ACTIVE"
	EndpointStatusPaused  EndpointStatus = "PAUSED"
	EndpointStatusRevoked EndpointStatus = "REVOKED"
)

// WebhookEndpoint is a merchant URL subscribed to a project's payment events.
type WebhookEndpoint struct {
	ID          uuid.UUID      `json:"id"`
	ProjectID   uuid.UUID      `json:"project_id"`
	URL         string         `json:"url"`
	SecretEnc   string         `json:"-"` // AES-256-GCM, never expose
	Status      EndpointStatus `json:"status"`
	EventTypes  []string       `json:"event_types"` // empty = every event
	Description *string        `json:"description,omitempty"`
	LastHitAt   *time.Time     `json:"last_hit_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive returns true if the endpoint should receive deliveries.
func (w *WebhookEndpoint) IsActive() bool {
	return w.Status == EndpointStatusActive
}

// Subscribes reports whether the endpoint's filter admits the webhook event name.
func (w *WebhookEndpoint) Subscribes(eventName string) bool {
	return len(w.EventTypes) == 0 || slices.Contains(w.EventTypes, eventName)
}

// DeliveryStatus is the outcome of one delivery attempt.
type DeliveryStatus string

const (
	DeliveryStatusDelivered DeliveryStatus = "DELIVERED"
	DeliveryStatusFailed    DeliveryStatus = "FAILED"
)

// MaxResponseBodyLength bounds the endpoint response stored per attempt.
const MaxResponseBodyLength = 1024

// EventDelivery records a single delivery attempt. Rows are append-only.
type EventDelivery struct {
	ID           uuid.UUID      `json:"id"`
	EventID      uuid.UUID      `json:"event_id"`
	EndpointID   uuid.UUID      `json:"endpoint_id"`
	EventType    string         `json:"event_type"`
	Payload      string         `json:"payload"` // exact JSON body sent
	Attempt      int            `json:"attempt"`
	Status       DeliveryStatus `json:"status"`
	HTTPStatus   *int           `json:"http_status,omitempty"`
	ResponseBody *string        `json:"response_body,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`
	DeliveredAt  time.Time      `json:"delivered_at"`
}

// Succeeded returns true if the endpoint answered with a 2xx status.
func (d *EventDelivery) Succeeded() bool {
	return d.Status == DeliveryStatusDelivered
}
