// Package orchestrator sequences the case database, template rendering,
// endpoint calls and failure reporting behind the create, list, close and
// history commands.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/h1v3-io/remedyctl/internal/casestore"
	"github.com/h1v3-io/remedyctl/internal/journal"
	"github.com/h1v3-io/remedyctl/internal/logbuf"
	"github.com/h1v3-io/remedyctl/internal/notify"
	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// DefaultSubject is the notification subject when none is configured.
const DefaultSubject = "remedyctl error"

// Poster sends a rendered payload to the ticketing endpoint.
type Poster interface {
	Post(ctx context.Context, payload string) (string, error)
}

// Notifier delivers failure notifications.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Config wires an Orchestrator.
type Config struct {
	CaseDB       string
	StoreOptions []casestore.Option
	// Endpoint is required by Create only.
	Endpoint Poster
	Journal  journal.Journal
	Notifier Notifier
	// Logs, when set, is attached to failure notifications.
	Logs    *logbuf.Buffer
	Profile string
	RunID   string
	Subject string
	Logger  *slog.Logger
}

// Orchestrator runs case commands. Each command loads the case database once.
type Orchestrator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Orchestrator. Missing journal and notifier become no-ops.
func New(cfg Config) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewMulti(cfg.Logger)
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	return &Orchestrator{cfg: cfg, logger: cfg.Logger}
}

func (o *Orchestrator) openStore(ctx context.Context) (*casestore.Store, error) {
	opts := append([]casestore.Option{casestore.WithLogger(o.logger)}, o.cfg.StoreOptions...)
	return casestore.Open(ctx, o.cfg.CaseDB, opts...)
}

func (o *Orchestrator) record(ctx context.Context, ev protocol.Event) {
	ev.Profile = o.cfg.Profile
	ev.RunID = o.cfg.RunID
	if err := o.cfg.Journal.Record(ctx, ev); err != nil {
		o.logger.Warn("journal write failed", "kind", ev.Kind, "case", ev.CaseID, "error", err)
	}
}

// List returns every recorded case.
func (o *Orchestrator) List(ctx context.Context) (map[string]protocol.CaseRecord, error) {
	store, err := o.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return store.All(), nil
}

// History returns journal events, newest first.
func (o *Orchestrator) History(ctx context.Context, filter journal.Filter) ([]protocol.Event, error) {
	return o.cfg.Journal.List(ctx, filter)
}
