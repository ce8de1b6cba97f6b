package orchestrator

import (
	"context"

	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// CloseResult reports which cases were removed.
type CloseResult struct {
	Closed  []string
	Missing []string
}

// Close removes every listed case that is present and saves once.
// Unknown cases are logged and skipped.
func (o *Orchestrator) Close(ctx context.Context, cases []string) (CloseResult, error) {
	store, err := o.openStore(ctx)
	if err != nil {
		return CloseResult{}, err
	}

	var res CloseResult
	closed := map[string]string{}
	for _, caseID := range cases {
		rec, ok := store.Delete(caseID)
		if !ok {
			o.logger.Warn("case not present in local case database, ignoring", "case", caseID)
			res.Missing = append(res.Missing, caseID)
			continue
		}
		closed[caseID] = rec.TicketID
		res.Closed = append(res.Closed, caseID)
	}

	if err := store.Save(ctx); err != nil {
		return CloseResult{}, err
	}
	for _, caseID := range res.Closed {
		o.record(ctx, protocol.Event{Kind: protocol.EventClosed, CaseID: caseID, TicketID: closed[caseID]})
	}
	o.logger.Info("cases closed", "count", len(res.Closed))
	return res, nil
}
