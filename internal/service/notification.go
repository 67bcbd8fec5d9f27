package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"dispatch/internal/domain"
)

// Publisher is the outbound event sink (see notify.KafkaPublisher).
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// NotificationService emits dispatch lifecycle events. Every method is
// fire-and-forget: delivery runs on its own goroutine and a failure is logged,
// never returned, so a broker outage cannot fail a ride operation.
type NotificationService struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewNotificationService creates a new NotificationService. A nil publisher
// disables delivery, which tests and local runs rely on.
func NewNotificationService(publisher Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{publisher: publisher, logger: logger}
}

type notificationEvent struct {
	Type      string    `json:"type"`
	RideID    string    `json:"ride_id"`
	RiderID   string    `json:"rider_id,omitempty"`
	DriverID  string    `json:"driver_id,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OfferCreated notifies a driver about a fresh offer.
func (s *NotificationService) OfferCreated(ctx context.Context, driverID string, ride *domain.Ride, offer *domain.Offer) {
	s.emit(driverID, notificationEvent{
		Type:     "offer_created",
		RideID:   ride.ID,
		DriverID: driverID,
		Detail:   offer.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// DriverAccepted notifies the rider that a driver took the ride.
func (s *NotificationService) DriverAccepted(ctx context.Context, ride *domain.Ride) {
	s.emit(ride.RiderID, notificationEvent{
		Type:     "driver_accepted",
		RideID:   ride.ID,
		RiderID:  ride.RiderID,
		DriverID: ride.DriverID,
	})
}

// RideCanceled notifies the counterparty of a cancellation.
func (s *NotificationService) RideCanceled(ctx context.Context, ride *domain.Ride, canceledBy string) {
	recipient := ride.RiderID
	if canceledBy == ride.RiderID && ride.DriverID != "" {
		recipient = ride.DriverID
	}
	s.emit(recipient, notificationEvent{
		Type:     "ride_canceled",
		RideID:   ride.ID,
		RiderID:  ride.RiderID,
		DriverID: ride.DriverID,
		Detail:   ride.CancelReason,
	})
}

// PaymentFailed notifies the rider that settlement could not collect payment.
func (s *NotificationService) PaymentFailed(ctx context.Context, ride *domain.Ride, reason string) {
	s.emit(ride.RiderID, notificationEvent{
		Type:    "payment_failed",
		RideID:  ride.ID,
		RiderID: ride.RiderID,
		Detail:  reason,
	})
}

func (s *NotificationService) emit(recipient string, event notificationEvent) {
	if s.publisher == nil || recipient == "" {
		return
	}
	event.Timestamp = time.Now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("failed to encode notification", "type", event.Type, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.publisher.Publish(ctx, recipient, payload); err != nil {
			s.logger.Warn("notification publish failed",
				"type", event.Type, "ride_id", event.RideID, "error", err)
		}
	}()
}
