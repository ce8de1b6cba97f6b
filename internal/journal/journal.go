// Package journal keeps a local history of case events.
package journal

import (
	"context"

	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// Journal records and queries case events.
type Journal interface {
	// Record appends an event. Missing ID and CreatedAt are filled in.
	Record(ctx context.Context, ev protocol.Event) error
	// List returns events matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]protocol.Event, error)
	// Close releases the underlying storage.
	Close() error
}

// Filter constrains event list queries.
type Filter struct {
	CaseID string
	Kind   protocol.EventKind
	Limit  int // 0 = no limit
}

// Nop is a Journal that records nothing.
type Nop struct{}

func (Nop) Record(context.Context, protocol.Event) error { return nil }

func (Nop) List(context.Context, Filter) ([]protocol.Event, error) { return nil, nil }

func (Nop) Close() error { return nil }
