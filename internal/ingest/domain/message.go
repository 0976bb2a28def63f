package domain

import (
	"time"

	"github.com/google/uuid"
)

// MessageStatus is the ingestion state of a raw inbox message.
type MessageStatus string

const (
	MessageStatusPending    MessageStatus = "pending"
	MessageStatusProcessing MessageStatus = "processing"
	MessageStatusProcessed  MessageStatus = "processed"
	MessageStatusIgnored    MessageStatus = "ignored"
	MessageStatusFailed     MessageStatus = "failed"
)

// RawMessage is one record per external inbox message. It is created on
// first fetch and mutated in place on every (re)processing attempt; the raw
// content is never deleted, only its status is reset.
type RawMessage struct {
	ID                uuid.UUID
	ExternalMessageID string
	ThreadID          string
	Subject           string
	Snippet           string
	Headers           map[string]string
	TextBody          string
	HTMLBody          string
	ReceivedAt        time.Time
	Status            MessageStatus
	FailureReason     string
	ProcessedAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
