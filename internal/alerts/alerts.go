// Package alerts emails the operator when a message ends processing in the
// failed state, so parse regressions surface without dashboard watching.
package alerts

import (
	"context"
	"fmt"
	"time"

	gomail "github.com/wneessen/go-mail"

	"bookingsync_backend/internal/events"
	"bookingsync_backend/platform/config"
	platformevents "bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
)

// Notifier sends operator alerts over SMTP. A nil notifier is the disabled
// state: Subscribe and Notify are no-ops.
type Notifier struct {
	cfg config.AlertConfig
	log *logger.Logger
}

// NewNotifier creates the notifier, or nil when alerts are disabled.
func NewNotifier(cfg config.AlertConfig, log *logger.Logger) *Notifier {
	if !cfg.GetAlertsEnabled() {
		return nil
	}
	return &Notifier{cfg: cfg, log: log}
}

// Subscribe registers the notifier for message failures. Safe on nil.
func (n *Notifier) Subscribe(bus platformevents.Bus) {
	if n == nil {
		return
	}
	bus.Subscribe(events.MessageFailedName, platformevents.HandlerFunc(n.handleFailed))
}

func (n *Notifier) handleFailed(ctx context.Context, e platformevents.Event) error {
	ev, ok := e.(events.MessageFailed)
	if !ok {
		return nil
	}

	subject := fmt.Sprintf("Ingestion failure: %s", ev.ExternalMessageID)
	body := fmt.Sprintf(
		"Message %s could not be processed.\n\nSubject: %s\nReason: %s\n\nReprocess it via POST /api/v1/ingest/messages/%s/reprocess once the cause is fixed.",
		ev.ExternalMessageID, ev.Subject, ev.Reason, ev.ExternalMessageID,
	)
	if err := n.send(ctx, subject, body); err != nil {
		n.log.Error("failure alert not sent", "message_id", ev.ExternalMessageID, "error", err)
		return err
	}
	return nil
}

func (n *Notifier) send(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(n.cfg.GetAlertFromName(), n.cfg.GetAlertFromAddress()); err != nil {
		return fmt.Errorf("alert from: %w", err)
	}
	if err := msg.To(n.cfg.GetAlertToAddress()); err != nil {
		return fmt.Errorf("alert to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(n.cfg.GetSMTPHost(),
		gomail.WithPort(n.cfg.GetSMTPPort()),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(n.cfg.GetSMTPUsername()),
		gomail.WithPassword(n.cfg.GetSMTPPassword()),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
