package events

import "time"

// Source identifies this service in published CloudEvents.
const Source = "service-parking"

// Topics.
const (
	TopicBookingEvents = "parking.booking.events"
	TopicCatalogEvents = "parking.catalog.events"
)

// Event types.
const (
	BookingConfirmed = "parking.booking.confirmed"
	LedgerCleared    = "parking.ledger.cleared"
	CatalogUpdated   = "parking.catalog.updated"
)

// BookingConfirmedEvent is published after a booking record is persisted.
type BookingConfirmedEvent struct {
	BookingID     string    `json:"booking_id"`
	SessionID     string    `json:"session_id"`
	SpotID        string    `json:"spot_id"`
	SpotName      string    `json:"spot_name"`
	StartTime     string    `json:"start_time"`
	EndTime       string    `json:"end_time"`
	DurationHours int       `json:"duration_hours"`
	Amount        string    `json:"amount"`
	PriceKnown    bool      `json:"price_known"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// LedgerClearedEvent is published after the booking ledger is wiped.
type LedgerClearedEvent struct {
	LedgerKey  string    `json:"ledger_key"`
	Removed    int       `json:"removed"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CatalogUpdatedEvent asks every instance to reload its spot catalog.
type CatalogUpdatedEvent struct {
	Reason     string    `json:"reason,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
