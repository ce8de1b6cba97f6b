// Package notify delivers failure notifications for ticket creation.
// Delivery is best effort: callers log a failed notification and carry on.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/h1v3-io/remedyctl/internal/logbuf"
)

// Message describes a failed operation.
type Message struct {
	Subject     string
	Error       string
	CaseID      string
	RunID       string
	Profile     string
	SOAPAction  string
	SOAPPayload string
	Logs        []logbuf.Entry
}

// HasSOAPContext reports whether the request action or payload is attached.
func (m Message) HasSOAPContext() bool {
	return m.SOAPAction != "" || m.SOAPPayload != ""
}

// Notifier delivers a message to one destination.
type Notifier interface {
	// Name returns the sink type (e.g., "mail", "slack").
	Name() string
	// Notify delivers msg.
	Notify(ctx context.Context, msg Message) error
}

// Multi fans a message out to every notifier, attempting all of them.
type Multi struct {
	notifiers []Notifier
	logger    *slog.Logger
}

// NewMulti creates a fan-out notifier.
func NewMulti(logger *slog.Logger, notifiers ...Notifier) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	return &Multi{notifiers: notifiers, logger: logger}
}

func (m *Multi) Name() string { return "multi" }

// Len returns the number of configured sinks.
func (m *Multi) Len() int { return len(m.notifiers) }

func (m *Multi) Notify(ctx context.Context, msg Message) error {
	if len(m.notifiers) == 0 {
		m.logger.Warn("notification not sent: no notifier configured")
		return nil
	}
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			m.logger.Error("notification failed", "notifier", n.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		m.logger.Info("notification sent", "notifier", n.Name())
	}
	return errors.Join(errs...)
}

// textBody renders msg for chat sinks.
func textBody(msg Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n", msg.Subject, msg.Error)
	if msg.CaseID != "" {
		fmt.Fprintf(&b, "case: %s\n", msg.CaseID)
	}
	if msg.Profile != "" {
		fmt.Fprintf(&b, "profile: %s\n", msg.Profile)
	}
	if msg.RunID != "" {
		fmt.Fprintf(&b, "run: %s\n", msg.RunID)
	}
	if msg.SOAPAction != "" {
		fmt.Fprintf(&b, "SOAP action: %s\n", msg.SOAPAction)
	}
	return strings.TrimRight(b.String(), "\n")
}
