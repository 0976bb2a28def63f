// Package transport defines the request and response shapes of the ingest
// ops API, keeping wire concerns out of the domain types.
package transport

import (
	"time"

	"bookingsync_backend/internal/ingest/alias"
	"bookingsync_backend/internal/ingest/domain"
)

// ReprocessRequest triggers one message reprocess.
type ReprocessRequest struct {
	Force bool `json:"force"`
}

// ReprocessResponse reports the outcome of a reprocess call.
type ReprocessResponse struct {
	Status     string   `json:"status"`
	BookingIDs []string `json:"bookingIds,omitempty"`
	Rebuilt    bool     `json:"rebuilt,omitempty"`
	Report     string   `json:"report,omitempty"`
}

// SweepRequest bounds a reprocess sweep.
type SweepRequest struct {
	Limit int `json:"limit" validate:"omitempty,min=1,max=5000"`
}

// BackfillRequest enqueues a mailbox backfill.
type BackfillRequest struct {
	After    string `json:"after" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Before   string `json:"before" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	PageSize int    `json:"pageSize" validate:"omitempty,min=1,max=500"`
	Force    bool   `json:"force"`
}

// MessageResponse is one raw message, body omitted in list views.
type MessageResponse struct {
	ID                string     `json:"id"`
	ExternalMessageID string     `json:"externalMessageId"`
	Subject           string     `json:"subject"`
	Snippet           string     `json:"snippet"`
	ReceivedAt        time.Time  `json:"receivedAt"`
	Status            string     `json:"status"`
	FailureReason     string     `json:"failureReason,omitempty"`
	ProcessedAt       *time.Time `json:"processedAt,omitempty"`
}

// FromMessage maps a domain message to its response shape.
func FromMessage(m domain.RawMessage) MessageResponse {
	return MessageResponse{
		ID:                m.ID.String(),
		ExternalMessageID: m.ExternalMessageID,
		Subject:           m.Subject,
		Snippet:           m.Snippet,
		ReceivedAt:        m.ReceivedAt,
		Status:            string(m.Status),
		FailureReason:     m.FailureReason,
		ProcessedAt:       m.ProcessedAt,
	}
}

// BookingResponse is the booking aggregate for the ops API.
type BookingResponse struct {
	ID                string     `json:"id"`
	Platform          string     `json:"platform"`
	PlatformBookingID string     `json:"platformBookingId"`
	PlatformOrderID   string     `json:"platformOrderId,omitempty"`
	Status            string     `json:"status"`
	PaymentStatus     string     `json:"paymentStatus,omitempty"`
	ChannelID         string     `json:"channelId,omitempty"`
	ProductID         string     `json:"productId,omitempty"`
	ProductName       string     `json:"productName,omitempty"`
	ProductVariant    string     `json:"productVariant,omitempty"`
	GuestName         string     `json:"guestName,omitempty"`
	GuestEmail        string     `json:"guestEmail,omitempty"`
	GuestPhone        string     `json:"guestPhone,omitempty"`
	PartySizeTotal    int        `json:"partySizeTotal"`
	PartySizeAdults   int        `json:"partySizeAdults"`
	PartySizeChildren int        `json:"partySizeChildren"`
	AddonName         string     `json:"addonName,omitempty"`
	AddonQuantity     int        `json:"addonQuantity,omitempty"`
	AddonPerGuest     bool       `json:"addonPerGuest,omitempty"`
	TotalAmount       string     `json:"totalAmount,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	ExperienceDate    *time.Time `json:"experienceDate,omitempty"`
	ExperienceTime    string     `json:"experienceTime,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	StatusChangedAt   time.Time  `json:"statusChangedAt"`
	CancelledAt       *time.Time `json:"cancelledAt,omitempty"`
	SourceReceivedAt  time.Time  `json:"sourceReceivedAt"`
}

// FromBooking maps a booking aggregate to its response shape.
func FromBooking(b domain.Booking) BookingResponse {
	return BookingResponse{
		ID:                b.ID.String(),
		Platform:          string(b.Platform),
		PlatformBookingID: b.PlatformBookingID,
		PlatformOrderID:   b.PlatformOrderID,
		Status:            string(b.Status),
		PaymentStatus:     b.PaymentStatus,
		ChannelID:         b.ChannelID,
		ProductID:         b.ProductID,
		ProductName:       b.ProductName,
		ProductVariant:    b.ProductVariant,
		GuestName:         b.GuestName,
		GuestEmail:        b.GuestEmail,
		GuestPhone:        b.GuestPhone,
		PartySizeTotal:    b.PartySizeTotal,
		PartySizeAdults:   b.PartySizeAdults,
		PartySizeChildren: b.PartySizeChildren,
		AddonName:         b.AddonName,
		AddonQuantity:     b.AddonQuantity,
		AddonPerGuest:     b.AddonPerGuest,
		TotalAmount:       b.TotalAmount,
		Currency:          b.Currency,
		ExperienceDate:    b.ExperienceDate,
		ExperienceTime:    b.ExperienceTime,
		Notes:             b.Notes,
		StatusChangedAt:   b.StatusChangedAt,
		CancelledAt:       b.CancelledAt,
		SourceReceivedAt:  b.SourceReceivedAt,
	}
}

// EventResponse is one audit log entry.
type EventResponse struct {
	ID              string    `json:"id"`
	EventType       string    `json:"eventType"`
	ResultingStatus string    `json:"resultingStatus"`
	OccurredAt      time.Time `json:"occurredAt"`
	RawMessageID    string    `json:"rawMessageId"`
	Payload         any       `json:"payload,omitempty"`
}

// BookingDetailResponse is a booking with its audit trail and addons.
type BookingDetailResponse struct {
	BookingResponse
	Events []EventResponse    `json:"events"`
	Addons []domain.AddonLine `json:"addons,omitempty"`
}

// AliasRequest creates or updates a product alias.
type AliasRequest struct {
	Label     string `json:"label" validate:"required,min=1,max=200"`
	ProductID string `json:"productId" validate:"omitempty,uuid"`
	MatchType string `json:"matchType" validate:"required,oneof=exact contains regex"`
	Priority  int    `json:"priority" validate:"min=0,max=1000"`
	IsActive  bool   `json:"isActive"`
}

// AliasResponse is one alias row.
type AliasResponse struct {
	ID              int64      `json:"id"`
	Label           string     `json:"label"`
	NormalizedLabel string     `json:"normalizedLabel"`
	ProductID       string     `json:"productId,omitempty"`
	MatchType       string     `json:"matchType"`
	Priority        int        `json:"priority"`
	IsActive        bool       `json:"isActive"`
	HitCount        int64      `json:"hitCount"`
	LastSeenAt      *time.Time `json:"lastSeenAt,omitempty"`
}

// FromAlias maps an alias row to its response shape.
func FromAlias(a alias.ProductAlias) AliasResponse {
	resp := AliasResponse{
		ID:              a.ID,
		Label:           a.Label,
		NormalizedLabel: a.NormalizedLabel,
		MatchType:       string(a.MatchType),
		Priority:        a.Priority,
		IsActive:        a.IsActive,
		HitCount:        a.HitCount,
		LastSeenAt:      a.LastSeenAt,
	}
	if a.ProductID != nil {
		resp.ProductID = a.ProductID.String()
	}
	return resp
}
