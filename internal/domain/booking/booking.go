package booking

import (
	"time"

	"github.com/google/uuid"
	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/spot"
)

// Interaction is the aggregate tracking one pass through
// Idle -> SpotSelected -> FareComputed -> Confirmed -> Persisted.
// A persisted interaction is finished; the next booking starts a new one.
type Interaction struct {
	id       uuid.UUID
	status   InteractionStatus
	spot     *spot.ParkingSpot
	estimate *Estimate
	record   *Record

	createdAt time.Time
	updatedAt time.Time
}

// NewInteraction creates an idle interaction.
func NewInteraction() *Interaction {
	now := time.Now().UTC()
	return &Interaction{
		id:        uuid.New(),
		status:    StatusIdle,
		createdAt: now,
		updatedAt: now,
	}
}

// --- Getters ---

// ID returns the interaction's unique identifier.
func (i *Interaction) ID() uuid.UUID { return i.id }

// Status returns the current status.
func (i *Interaction) Status() InteractionStatus { return i.status }

// Spot returns the selected spot, or nil when none is selected.
func (i *Interaction) Spot() *spot.ParkingSpot { return i.spot }

// Estimate returns the computed fare estimate, or nil.
func (i *Interaction) Estimate() *Estimate { return i.estimate }

// Record returns the persisted ledger record, or nil before persistence.
func (i *Interaction) Record() *Record { return i.record }

// CreatedAt returns the creation timestamp.
func (i *Interaction) CreatedAt() time.Time { return i.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (i *Interaction) UpdatedAt() time.Time { return i.updatedAt }

// --- Behavior ---

// SelectSpot moves an idle interaction to spot_selected.
func (i *Interaction) SelectSpot(s spot.ParkingSpot) error {
	if !i.status.CanTransitionTo(StatusSpotSelected) {
		return domain.NewInvalidStateError(string(i.status), string(StatusSpotSelected))
	}
	i.spot = &s
	i.estimate = nil
	i.status = StatusSpotSelected
	i.touch()
	return nil
}

// ApplyEstimate stores a fare estimate for the selected spot. It may be
// applied again to replace an earlier estimate.
func (i *Interaction) ApplyEstimate(est Estimate) error {
	if !i.status.CanTransitionTo(StatusFareComputed) {
		return domain.NewInvalidStateError(string(i.status), string(StatusFareComputed))
	}
	i.estimate = &est
	i.status = StatusFareComputed
	i.touch()
	return nil
}

// Confirm records the user's confirmation of the current estimate.
func (i *Interaction) Confirm() error {
	if !i.status.CanTransitionTo(StatusConfirmed) {
		return domain.NewInvalidStateError(string(i.status), string(StatusConfirmed))
	}
	i.status = StatusConfirmed
	i.touch()
	return nil
}

// MarkPersisted completes the interaction with the stored record.
func (i *Interaction) MarkPersisted(r Record) error {
	if !i.status.CanTransitionTo(StatusPersisted) {
		return domain.NewInvalidStateError(string(i.status), string(StatusPersisted))
	}
	i.record = &r
	i.status = StatusPersisted
	i.touch()
	return nil
}

// RevertConfirmation returns a confirmed interaction to fare_computed after a
// failed ledger write, so the booking is not considered confirmed.
func (i *Interaction) RevertConfirmation() error {
	if i.status != StatusConfirmed {
		return domain.NewInvalidStateError(string(i.status), string(StatusFareComputed))
	}
	i.status = StatusFareComputed
	i.touch()
	return nil
}

// Cancel discards the selection and estimate and returns to idle.
func (i *Interaction) Cancel() error {
	if !i.status.CanBeCancelled() {
		return domain.NewInvalidStateError(string(i.status), string(StatusIdle))
	}
	i.spot = nil
	i.estimate = nil
	i.status = StatusIdle
	i.touch()
	return nil
}

func (i *Interaction) touch() {
	i.updatedAt = time.Now().UTC()
}
