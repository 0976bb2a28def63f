// Package utmsync pushes reconciled bookings to the downstream reporting
// service. It subscribes to the booking-reconciled event so the ingestion
// pipeline never blocks on the sync endpoint.
package utmsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"bookingsync_backend/internal/events"
	"bookingsync_backend/platform/config"
	platformevents "bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
)

// Client is the reporting sync client. A nil client is a valid disabled
// state: Push is a no-op.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type syncRequest struct {
	BookingID         string `json:"bookingId"`
	Platform          string `json:"platform"`
	PlatformBookingID string `json:"platformBookingId"`
	Status            string `json:"status"`
}

// NewClient creates the sync client, or nil when no URL is configured.
func NewClient(cfg config.UTMSyncConfig, log *logger.Logger) *Client {
	if cfg.GetUTMSyncURL() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetUTMSyncURL(), "/"),
		apiKey:  cfg.GetUTMSyncAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// Subscribe registers the client on the event bus. Safe on a nil client.
func (c *Client) Subscribe(bus platformevents.Bus) {
	if c == nil {
		return
	}
	bus.Subscribe(events.BookingReconciledName, platformevents.HandlerFunc(c.handleReconciled))
}

func (c *Client) handleReconciled(ctx context.Context, e platformevents.Event) error {
	ev, ok := e.(events.BookingReconciled)
	if !ok {
		return nil
	}
	return c.Push(ctx, ev)
}

// Push sends one reconciled booking to the reporting service.
func (c *Client) Push(ctx context.Context, ev events.BookingReconciled) error {
	if c == nil {
		return nil
	}

	body, err := json.Marshal(syncRequest{
		BookingID:         ev.BookingID,
		Platform:          ev.Platform,
		PlatformBookingID: ev.PlatformBookingID,
		Status:            ev.Status,
	})
	if err != nil {
		return fmt.Errorf("marshal sync payload: %w", err)
	}

	url := fmt.Sprintf("%s/bookings/sync", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("utm sync request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("utm sync returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("booking synced to reporting", "booking_id", ev.BookingID, "platform", ev.Platform)
	return nil
}
