// Package events defines the domain events the ingest pipeline publishes on
// the in-process bus. Downstream modules (UTM sync, alerting) subscribe to
// these instead of being called directly.
package events

import (
	"bookingsync_backend/platform/events"
)

// Event names.
const (
	BookingReconciledName = "ingest.booking.reconciled"
	MessageFailedName     = "ingest.message.failed"
	MessageIgnoredName    = "ingest.message.ignored"
)

// BookingReconciled is published once per distinct booking a processed
// message touched, after the transaction committed.
type BookingReconciled struct {
	events.BaseEvent
	BookingID         string `json:"bookingId"`
	Platform          string `json:"platform"`
	PlatformBookingID string `json:"platformBookingId"`
	Status            string `json:"status"`
}

func (e BookingReconciled) EventName() string { return BookingReconciledName }

// NewBookingReconciled creates a BookingReconciled event.
func NewBookingReconciled(bookingID, platform, platformBookingID, status string) BookingReconciled {
	return BookingReconciled{
		BaseEvent:         events.NewBaseEvent(),
		BookingID:         bookingID,
		Platform:          platform,
		PlatformBookingID: platformBookingID,
		Status:            status,
	}
}

// MessageFailed is published when a message ends a processing attempt in the
// failed state.
type MessageFailed struct {
	events.BaseEvent
	ExternalMessageID string `json:"externalMessageId"`
	Subject           string `json:"subject"`
	Reason            string `json:"reason"`
}

func (e MessageFailed) EventName() string { return MessageFailedName }

// NewMessageFailed creates a MessageFailed event.
func NewMessageFailed(externalID, subject, reason string) MessageFailed {
	return MessageFailed{
		BaseEvent:         events.NewBaseEvent(),
		ExternalMessageID: externalID,
		Subject:           subject,
		Reason:            reason,
	}
}

// MessageIgnored is published when no parser recognized a message. The reason
// carries the per-parser diagnostic report.
type MessageIgnored struct {
	events.BaseEvent
	ExternalMessageID string `json:"externalMessageId"`
	Subject           string `json:"subject"`
	Reason            string `json:"reason"`
}

func (e MessageIgnored) EventName() string { return MessageIgnoredName }

// NewMessageIgnored creates a MessageIgnored event.
func NewMessageIgnored(externalID, subject, reason string) MessageIgnored {
	return MessageIgnored{
		BaseEvent:         events.NewBaseEvent(),
		ExternalMessageID: externalID,
		Subject:           subject,
		Reason:            reason,
	}
}
