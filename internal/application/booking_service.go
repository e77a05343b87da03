package application

import (
	"context"
	"time"

	"github.com/parkfinder/service-parking/internal/domain"
	"github.com/parkfinder/service-parking/internal/domain/booking"
	"github.com/parkfinder/service-parking/internal/events"
	"github.com/parkfinder/service-parking/internal/kafka"
	"go.uber.org/zap"
)

// maxIDAttempts bounds retries when a generated booking id is already in the ledger.
const maxIDAttempts = 3

// EventPublisher publishes domain events.
type EventPublisher interface {
	PublishEventWithKey(ctx context.Context, topic, key string, ce *kafka.CloudEvent) error
}

// NoopPublisher drops every event. It is used when no brokers are configured.
type NoopPublisher struct{}

// PublishEventWithKey implements EventPublisher.
func (NoopPublisher) PublishEventWithKey(context.Context, string, string, *kafka.CloudEvent) error {
	return nil
}

// BookingService is the application service orchestrating booking use cases.
type BookingService struct {
	sessions       *SessionStore
	catalog        *CatalogCache
	ledger         *booking.Ledger
	estimator      booking.FareEstimator
	ids            booking.IDGenerator
	producer       EventPublisher
	currencySymbol string
	now            func() time.Time
	logger         *zap.Logger
}

// NewBookingService creates a new BookingService.
func NewBookingService(
	sessions *SessionStore,
	catalog *CatalogCache,
	ledger *booking.Ledger,
	estimator booking.FareEstimator,
	ids booking.IDGenerator,
	producer EventPublisher,
	currencySymbol string,
	logger *zap.Logger,
) *BookingService {
	if producer == nil {
		producer = NoopPublisher{}
	}
	return &BookingService{
		sessions:       sessions,
		catalog:        catalog,
		ledger:         ledger,
		estimator:      estimator,
		ids:            ids,
		producer:       producer,
		currencySymbol: currencySymbol,
		now:            time.Now,
		logger:         logger,
	}
}

// GetInteraction returns the session's current booking interaction.
func (s *BookingService) GetInteraction(ctx context.Context, sessionID string) (*InteractionDTO, error) {
	return s.mutate(sessionID, false, func(in *booking.Interaction) error { return nil })
}

// SelectSpot selects a catalog spot. Selecting again before confirming
// replaces the earlier selection and drops its estimate.
func (s *BookingService) SelectSpot(ctx context.Context, sessionID string, req SelectSpotRequest) (*InteractionDTO, error) {
	p, ok := s.catalog.Find(req.SpotID)
	if !ok {
		return nil, domain.NewNotFoundError("ParkingSpot", req.SpotID)
	}

	return s.mutate(sessionID, true, func(in *booking.Interaction) error {
		if in.Status() != booking.StatusIdle {
			if err := in.Cancel(); err != nil {
				return err
			}
		}
		return in.SelectSpot(p)
	})
}

// EstimateFare computes the fare for the selected spot and time range.
func (s *BookingService) EstimateFare(ctx context.Context, sessionID string, req EstimateFareRequest) (*InteractionDTO, error) {
	return s.mutate(sessionID, false, func(in *booking.Interaction) error {
		selected := in.Spot()
		if selected == nil {
			return domain.NewInvalidStateError(in.Status().String(), booking.StatusFareComputed.String())
		}
		est, err := s.estimator.Estimate(booking.FareParams{
			PricePerHour: selected.PricePerHour,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
		})
		if err != nil {
			return domain.NewValidationError(err.Error())
		}
		return in.ApplyEstimate(est)
	})
}

// ConfirmBooking appends the estimated booking to the ledger. If the ledger
// write fails the booking is not confirmed and the interaction stays at
// fare_computed so the user can retry.
func (s *BookingService) ConfirmBooking(ctx context.Context, sessionID string) (*InteractionDTO, error) {
	var confirmed *booking.Record
	var spotID string
	var priceKnown bool
	var duration int

	dto, err := s.mutate(sessionID, false, func(in *booking.Interaction) error {
		if err := in.Confirm(); err != nil {
			return err
		}

		record, err := s.appendRecord(ctx, in)
		if err != nil {
			if revertErr := in.RevertConfirmation(); revertErr != nil {
				s.logger.Error("failed to revert confirmation", zap.Error(revertErr))
			}
			s.logger.Error("booking not confirmed, ledger write failed",
				zap.String("session_id", sessionID),
				zap.String("spot_id", in.Spot().ID),
				zap.Error(err),
			)
			return err
		}

		if err := in.MarkPersisted(record); err != nil {
			return err
		}
		confirmed = &record
		spotID = in.Spot().ID
		priceKnown = in.Estimate().Fare.IsKnown()
		duration = in.Estimate().DurationHours
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("booking confirmed",
		zap.String("booking_id", confirmed.ID),
		zap.String("spot_id", spotID),
		zap.String("amount", confirmed.Amount),
	)
	s.publishEvent(ctx, events.TopicBookingEvents, events.BookingConfirmed, confirmed.ID, events.BookingConfirmedEvent{
		BookingID:     confirmed.ID,
		SessionID:     sessionID,
		SpotID:        spotID,
		SpotName:      confirmed.SpotName,
		StartTime:     confirmed.StartTime,
		EndTime:       confirmed.EndTime,
		DurationHours: duration,
		Amount:        confirmed.Amount,
		PriceKnown:    priceKnown,
		OccurredAt:    confirmed.CreatedAt,
	})
	return dto, nil
}

func (s *BookingService) appendRecord(ctx context.Context, in *booking.Interaction) (booking.Record, error) {
	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		record, err := booking.NewRecord(s.ids.NextID(), in.Spot().Name, *in.Estimate(), s.currencySymbol, s.now())
		if err != nil {
			return booking.Record{}, domain.NewValidationError(err.Error())
		}
		lastErr = s.ledger.Append(ctx, record)
		if lastErr == nil {
			return record, nil
		}
		if !domain.IsConflict(lastErr) {
			return booking.Record{}, lastErr
		}
		s.logger.Warn("booking id collision, retrying", zap.String("booking_id", record.ID))
	}
	return booking.Record{}, lastErr
}

// CancelBooking discards the current selection and returns to idle.
func (s *BookingService) CancelBooking(ctx context.Context, sessionID string) (*InteractionDTO, error) {
	return s.mutate(sessionID, false, func(in *booking.Interaction) error {
		return in.Cancel()
	})
}

// ListBookings returns every ledger record, newest first.
func (s *BookingService) ListBookings(ctx context.Context) ([]booking.Record, error) {
	return s.ledger.ListAll(ctx)
}

// ClearBookings wipes the ledger.
func (s *BookingService) ClearBookings(ctx context.Context) (*ClearResultDTO, error) {
	n, err := s.ledger.Count(ctx)
	if err != nil {
		// a corrupt ledger can still be cleared
		if domain.CodeOf(err) != domain.CodeUnavailable {
			return nil, err
		}
		n = 0
	}
	if err := s.ledger.Clear(ctx); err != nil {
		return nil, err
	}

	s.logger.Info("booking ledger cleared", zap.Int("removed", n))
	s.publishEvent(ctx, events.TopicBookingEvents, events.LedgerCleared, s.ledger.Key(), events.LedgerClearedEvent{
		LedgerKey:  s.ledger.Key(),
		Removed:    n,
		OccurredAt: s.now().UTC(),
	})
	return &ClearResultDTO{Removed: n}, nil
}

// mutate runs fn on the session's interaction under the session lock. With
// restart set, a persisted interaction is first replaced by a fresh idle one.
func (s *BookingService) mutate(sessionID string, restart bool, fn func(in *booking.Interaction) error) (*InteractionDTO, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	var dto InteractionDTO
	err = sess.withInteraction(restart, func(in *booking.Interaction) error {
		if err := fn(in); err != nil {
			return err
		}
		dto = toInteractionDTO(in, s.currencySymbol)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func (s *BookingService) publishEvent(ctx context.Context, topic, eventType, key string, data interface{}) {
	cloudEvent, err := kafka.NewCloudEvent(events.Source, eventType, data)
	if err != nil {
		s.logger.Error("failed to create cloud event",
			zap.String("event_type", eventType),
			zap.Error(err),
		)
		return
	}

	if err := s.producer.PublishEventWithKey(ctx, topic, key, cloudEvent); err != nil {
		s.logger.Error("failed to publish event",
			zap.String("topic", topic),
			zap.String("event_type", eventType),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
