package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/h1v3-io/remedyctl/internal/endpoint"
	"github.com/h1v3-io/remedyctl/internal/notify"
	"github.com/h1v3-io/remedyctl/internal/template"
	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// notifyLogLines is how many recent log entries go into a notification.
const notifyLogLines = 50

// CreateRequest describes a ticket to open.
type CreateRequest struct {
	// CaseVar names the variable holding the case id.
	CaseVar      string
	TemplatePath string
	Vars         map[string]string
}

// CreateResult reports the outcome of Create.
type CreateResult struct {
	CaseID   string
	TicketID string
	// Skipped is true when the case already had a ticket and nothing was sent.
	Skipped bool
}

// Create opens a ticket for the case named by req.Vars[req.CaseVar] unless
// one already exists. Every failure is journaled and notified before it is
// returned; nothing is persisted for a failed attempt.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	caseID, ok := req.Vars[req.CaseVar]
	if !ok || caseID == "" {
		return CreateResult{}, o.fail(ctx, "", fmt.Errorf("case variable: %w", &template.MissingVariablesError{Names: []string{req.CaseVar}}))
	}
	log := o.logger.With("case", caseID)

	store, err := o.openStore(ctx)
	if err != nil {
		return CreateResult{}, o.fail(ctx, caseID, err)
	}
	if rec, ok := store.Get(caseID); ok {
		log.Warn("case already escalated", "ticket_id", rec.TicketID)
		return CreateResult{CaseID: caseID, TicketID: rec.TicketID, Skipped: true}, nil
	}
	if o.cfg.Endpoint == nil {
		return CreateResult{}, o.fail(ctx, caseID, errors.New("no endpoint configured"))
	}

	src, err := os.ReadFile(req.TemplatePath)
	if err != nil {
		return CreateResult{}, o.fail(ctx, caseID, fmt.Errorf("read template: %w", err))
	}
	log.Debug("rendering template", "path", req.TemplatePath)
	payload, err := template.Render(string(src), req.Vars)
	if err != nil {
		return CreateResult{}, o.fail(ctx, caseID, err)
	}

	body, err := o.cfg.Endpoint.Post(ctx, payload)
	if err != nil {
		return CreateResult{}, o.fail(ctx, caseID, err)
	}
	ticketID, err := endpoint.ExtractTicketID(body)
	if err != nil {
		return CreateResult{}, o.fail(ctx, caseID, err)
	}

	store.Put(caseID, protocol.CaseRecord{TicketID: ticketID})
	if err := store.Save(ctx); err != nil {
		log.Error("ticket created but case database not updated", "ticket_id", ticketID)
		return CreateResult{}, o.fail(ctx, caseID, fmt.Errorf("ticket %s created: %w", ticketID, err))
	}
	o.record(ctx, protocol.Event{Kind: protocol.EventCreated, CaseID: caseID, TicketID: ticketID})
	log.Info("ticket created", "ticket_id", ticketID)
	return CreateResult{CaseID: caseID, TicketID: ticketID}, nil
}

// fail journals and notifies err, then returns it unchanged.
func (o *Orchestrator) fail(ctx context.Context, caseID string, err error) error {
	o.logger.Error("create failed", "case", caseID, "error", err)
	o.record(ctx, protocol.Event{Kind: protocol.EventFailed, CaseID: caseID, Detail: err.Error()})

	msg := notify.Message{
		Subject: o.cfg.Subject,
		Error:   err.Error(),
		CaseID:  caseID,
		RunID:   o.cfg.RunID,
		Profile: o.cfg.Profile,
	}
	var epErr *endpoint.Error
	if errors.As(err, &epErr) {
		msg.SOAPAction = epErr.SOAPAction
		msg.SOAPPayload = epErr.SOAPPayload
	}
	if o.cfg.Logs != nil {
		msg.Logs = o.cfg.Logs.Tail(slog.LevelInfo, notifyLogLines)
	}
	if nerr := o.cfg.Notifier.Notify(ctx, msg); nerr != nil {
		o.logger.Warn("failure notification not delivered", "error", nerr)
	}
	return err
}
