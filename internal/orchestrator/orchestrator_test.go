package orchestrator

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/h1v3-io/remedyctl/internal/endpoint"
	"github.com/h1v3-io/remedyctl/internal/journal"
	"github.com/h1v3-io/remedyctl/internal/logbuf"
	"github.com/h1v3-io/remedyctl/internal/notify"
	"github.com/h1v3-io/remedyctl/internal/template"
	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

const createTemplate = `<Envelope><Body><Create><Summary>{{ case_name }}</Summary><Details>{{details}}</Details></Create></Body></Envelope>`

type recordingNotifier struct {
	msgs []notify.Message
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	r.msgs = append(r.msgs, msg)
	return r.err
}

type fixture struct {
	dir      string
	casedb   string
	tmpl     string
	hits     *atomic.Int32
	notifier *recordingNotifier
	journal  *journal.SQLiteJournal
	logs     *logbuf.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:      dir,
		casedb:   filepath.Join(dir, "cases.json"),
		tmpl:     filepath.Join(dir, "create.xml"),
		hits:     &atomic.Int32{},
		notifier: &recordingNotifier{},
		logs:     logbuf.New(100),
	}
	require.NoError(t, os.WriteFile(f.tmpl, []byte(createTemplate), 0o644))
	j, err := journal.OpenSQLite(filepath.Join(dir, "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	f.journal = j
	return f
}

func (f *fixture) seed(t *testing.T, cases map[string]protocol.CaseRecord) {
	t.Helper()
	data, err := json.Marshal(cases)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(f.casedb, data, 0o644))
}

func (f *fixture) server(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func (f *fixture) orchestrator(t *testing.T, srvURL string) *Orchestrator {
	t.Helper()
	logger := slog.New(logbuf.NewHandler(slog.NewTextHandler(io.Discard, nil), f.logs, nil))
	cfg := Config{
		CaseDB:   f.casedb,
		Journal:  f.journal,
		Notifier: f.notifier,
		Logs:     f.logs,
		Profile:  "qualification",
		RunID:    "run-1",
		Logger:   logger,
	}
	if srvURL != "" {
		client, err := endpoint.New(srvURL, "urn:Create", endpoint.WithLogger(logger))
		require.NoError(t, err)
		cfg.Endpoint = client
	}
	return New(cfg)
}

func (f *fixture) stored(t *testing.T) map[string]protocol.CaseRecord {
	t.Helper()
	data, err := os.ReadFile(f.casedb)
	require.NoError(t, err)
	out := map[string]protocol.CaseRecord{}
	if len(data) == 0 {
		return out
	}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func (f *fixture) request(vars map[string]string) CreateRequest {
	return CreateRequest{CaseVar: "case_name", TemplatePath: f.tmpl, Vars: vars}
}

func TestCreate_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	srv := f.server(t, http.StatusOK, "<r><Incident_Number>INC000123</Incident_Number></r>")
	o := f.orchestrator(t, srv.URL)

	res, err := o.Create(ctx, f.request(map[string]string{"case_name": "A", "details": "disk full"}))
	require.NoError(t, err)
	assert.Equal(t, CreateResult{CaseID: "A", TicketID: "INC000123"}, res)
	assert.Equal(t, int32(1), f.hits.Load())
	assert.Equal(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC000123"}}, f.stored(t))
	assert.Empty(t, f.notifier.msgs)

	events, err := o.History(ctx, journal.Filter{CaseID: "A"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.EventCreated, events[0].Kind)
	assert.Equal(t, "INC000123", events[0].TicketID)
	assert.Equal(t, "qualification", events[0].Profile)
	assert.Equal(t, "run-1", events[0].RunID)
}

func TestCreate_AlreadyEscalatedSkipsRequest(t *testing.T) {
	f := newFixture(t)
	f.seed(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC000001"}})
	srv := f.server(t, http.StatusOK, "<Incident_Number>INC999</Incident_Number>")
	o := f.orchestrator(t, srv.URL)

	res, err := o.Create(context.Background(), f.request(map[string]string{"case_name": "A", "details": "x"}))
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, "INC000001", res.TicketID)
	assert.Equal(t, int32(0), f.hits.Load())
	assert.Equal(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC000001"}}, f.stored(t))
}

func TestCreate_StatusErrorNotifiesWithSOAPContext(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	srv := f.server(t, http.StatusNotFound, "")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(ctx, f.request(map[string]string{"case_name": "A", "details": "disk full"}))
	require.Error(t, err)

	var epErr *endpoint.Error
	require.ErrorAs(t, err, &epErr)
	assert.Equal(t, http.StatusNotFound, epErr.StatusCode)

	require.Len(t, f.notifier.msgs, 1)
	msg := f.notifier.msgs[0]
	assert.Equal(t, DefaultSubject, msg.Subject)
	assert.Equal(t, "A", msg.CaseID)
	assert.Equal(t, "run-1", msg.RunID)
	assert.Equal(t, "urn:Create", msg.SOAPAction)
	assert.Contains(t, msg.SOAPPayload, "<Summary>A</Summary>")
	assert.Contains(t, msg.Error, "request response error: 404")
	assert.NotEmpty(t, msg.Logs)

	assert.Empty(t, f.stored(t))

	events, err := o.History(ctx, journal.Filter{Kind: protocol.EventFailed})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].CaseID)
}

func TestCreate_ExtractionFailure(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t, http.StatusOK, "<r>no ticket here</r>")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(context.Background(), f.request(map[string]string{"case_name": "A", "details": "x"}))
	require.ErrorIs(t, err, endpoint.ErrTicketNotFound)

	require.Len(t, f.notifier.msgs, 1)
	assert.Empty(t, f.notifier.msgs[0].SOAPAction)
	assert.Empty(t, f.stored(t))
}

func TestCreate_MissingTemplateVariable(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t, http.StatusOK, "<Incident_Number>INC1</Incident_Number>")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(context.Background(), f.request(map[string]string{"case_name": "A"}))
	var missing *template.MissingVariablesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"details"}, missing.Names)
	assert.Equal(t, int32(0), f.hits.Load())
	assert.Len(t, f.notifier.msgs, 1)
}

func TestCreate_MissingCaseVariable(t *testing.T) {
	f := newFixture(t)
	srv := f.server(t, http.StatusOK, "<Incident_Number>INC1</Incident_Number>")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(context.Background(), f.request(map[string]string{"details": "x"}))
	var missing *template.MissingVariablesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"case_name"}, missing.Names)
	assert.Equal(t, int32(0), f.hits.Load())
	assert.Len(t, f.notifier.msgs, 1)
}

func TestCreate_NotificationFailureKeepsError(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = assert.AnError
	srv := f.server(t, http.StatusInternalServerError, "")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(context.Background(), f.request(map[string]string{"case_name": "A", "details": "x"}))
	var epErr *endpoint.Error
	require.ErrorAs(t, err, &epErr)
	assert.NotErrorIs(t, err, assert.AnError)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.seed(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC1"}, "B": {TicketID: "INC2"}})
	o := f.orchestrator(t, "")

	cases, err := o.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC1"}, "B": {TicketID: "INC2"}}, cases)
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t, map[string]protocol.CaseRecord{"A": {TicketID: "INC1"}, "B": {TicketID: "INC2"}})
	o := f.orchestrator(t, "")

	res, err := o.Close(ctx, []string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Closed)
	assert.Equal(t, []string{"C"}, res.Missing)
	assert.Equal(t, map[string]protocol.CaseRecord{"B": {TicketID: "INC2"}}, f.stored(t))

	events, err := o.History(ctx, journal.Filter{Kind: protocol.EventClosed})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "A", events[0].CaseID)
	assert.Equal(t, "INC1", events[0].TicketID)
}

func TestClose_NothingPresent(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, "")

	res, err := o.Close(context.Background(), []string{"X"})
	require.NoError(t, err)
	assert.Empty(t, res.Closed)
	assert.Equal(t, []string{"X"}, res.Missing)
	assert.Empty(t, f.stored(t))
}

func TestCreate_BlankTicketIDNotPersisted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	srv := f.server(t, http.StatusOK, "<r><Incident_Number> </Incident_Number></r>")
	o := f.orchestrator(t, srv.URL)

	_, err := o.Create(ctx, f.request(map[string]string{"case_name": "A", "details": "x"}))
	require.ErrorIs(t, err, endpoint.ErrTicketNotFound)
	assert.Empty(t, f.stored(t))
	require.Len(t, f.notifier.msgs, 1)

	// The case is not marked escalated, so the next attempt reaches the endpoint.
	_, err = o.Create(ctx, f.request(map[string]string{"case_name": "A", "details": "x"}))
	require.Error(t, err)
	assert.Equal(t, int32(2), f.hits.Load())
}

func TestClose_KeepsUnknownFieldsAndValues(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.casedb,
		[]byte(`{"A":{"ticket_id":"INC1","opened":"2024-01-01"},"B":"legacy","C":{"ticket_id":"INC3"}}`), 0o644))
	o := f.orchestrator(t, "")

	res, err := o.Close(context.Background(), []string{"C"})
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, res.Closed)

	data, err := os.ReadFile(f.casedb)
	require.NoError(t, err)
	assert.JSONEq(t, `{"A":{"ticket_id":"INC1","opened":"2024-01-01"},"B":"legacy"}`, string(data))
}
