package booking

import "fmt"

// InteractionStatus is the state of one booking interaction.
type InteractionStatus string

const (
	StatusIdle         InteractionStatus = "idle"
	StatusSpotSelected InteractionStatus = "spot_selected"
	StatusFareComputed InteractionStatus = "fare_computed"
	StatusConfirmed    InteractionStatus = "confirmed"
	StatusPersisted    InteractionStatus = "persisted"
)

// validTransitions defines the state machine for a booking interaction.
// Every state before persisted may return to idle (cancel). Confirmed may
// fall back to fare_computed when the ledger write fails.
var validTransitions = map[InteractionStatus][]InteractionStatus{
	StatusIdle:         {StatusSpotSelected},
	StatusSpotSelected: {StatusFareComputed, StatusIdle},
	StatusFareComputed: {StatusFareComputed, StatusConfirmed, StatusIdle},
	StatusConfirmed:    {StatusPersisted, StatusFareComputed, StatusIdle},
	StatusPersisted:    {},
}

// IsValid returns true if the status is a recognized interaction status.
func (s InteractionStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s InteractionStatus) CanTransitionTo(target InteractionStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s InteractionStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// CanBeCancelled returns true if the interaction can return to idle from this status.
func (s InteractionStatus) CanBeCancelled() bool {
	return s == StatusIdle || s.CanTransitionTo(StatusIdle)
}

// String returns the string representation of the status.
func (s InteractionStatus) String() string {
	return string(s)
}

// ParseInteractionStatus converts a string to an InteractionStatus, returning an error if invalid.
func ParseInteractionStatus(s string) (InteractionStatus, error) {
	status := InteractionStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid interaction status: %s", s)
	}
	return status, nil
}
