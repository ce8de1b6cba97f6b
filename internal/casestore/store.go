// Package casestore is the local case database: a JSON file mapping case
// identifiers to ticket records, guarded by an exclusive advisory lock so
// concurrent invocations never interleave reads and writes.
//
// The file is loaded once by Open and written back by Save. Between the two
// the in-memory copy is authoritative; no reload happens. Records are kept as
// the raw JSON read from disk, so a record that is not replaced is written
// back unchanged, including fields and value shapes this package ignores.
package casestore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/h1v3-io/remedyctl/pkg/protocol"
)

// DefaultRetryInterval is how long to wait between lock attempts.
const DefaultRetryInterval = time.Second

// Store holds the case mapping loaded from path.
type Store struct {
	path          string
	cases         map[string]json.RawMessage
	retryInterval time.Duration
	lockTimeout   time.Duration
	logger        *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithRetryInterval sets the pause between lock attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(s *Store) { s.retryInterval = d }
}

// WithLockTimeout bounds the total lock wait. Zero waits forever.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the case database at path, creating its directory and an empty
// file if needed. Content that is not a JSON object yields an empty mapping.
func Open(ctx context.Context, path string, opts ...Option) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{Op: "resolve", Path: path, Err: err}
	}
	s := &Store{
		path:          abs,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	dir := filepath.Dir(abs)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		s.logger.Info("creating case database directory", "dir", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: "mkdir", Path: dir, Err: err}
	}

	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, &Error{Op: "open", Path: abs, Err: err}
	}
	defer f.Close()

	if err := s.lock(ctx, f); err != nil {
		return nil, err
	}
	defer s.unlock(f)

	s.logger.Info("loading case database", "path", abs)
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &Error{Op: "read", Path: abs, Err: err}
	}
	if err := json.Unmarshal(data, &s.cases); err != nil {
		s.logger.Info("cannot load case database, starting empty", "path", abs, "error", err)
		s.cases = nil
	}
	if s.cases == nil {
		s.cases = make(map[string]json.RawMessage)
	}
	return s, nil
}

// Save writes the full mapping back to disk under the lock.
// The file is truncated in place, so a crash mid-write can leave it corrupt.
func (s *Store) Save(ctx context.Context) error {
	data, err := json.Marshal(s.cases)
	if err != nil {
		return &Error{Op: "encode", Path: s.path, Err: err}
	}

	s.logger.Info("saving case database", "path", s.path, "cases", len(s.cases))
	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return &Error{Op: "open", Path: s.path, Err: err}
	}
	defer f.Close()

	if err := s.lock(ctx, f); err != nil {
		return err
	}
	defer s.unlock(f)

	if err := f.Truncate(0); err != nil {
		return &Error{Op: "truncate", Path: s.path, Err: err}
	}
	if _, err := f.Write(data); err != nil {
		return &Error{Op: "write", Path: s.path, Err: err}
	}
	if err := f.Sync(); err != nil {
		return &Error{Op: "sync", Path: s.path, Err: err}
	}
	return nil
}

func (s *Store) lock(ctx context.Context, f *os.File) error {
	var deadline time.Time
	if s.lockTimeout > 0 {
		deadline = time.Now().Add(s.lockTimeout)
	}
	for {
		s.logger.Debug("acquiring lock", "path", s.path)
		err := tryLock(f)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errLocked) {
			s.logger.Error("cannot lock case database", "path", s.path, "error", err)
			return &Error{Op: "lock", Path: s.path, Err: err}
		}
		if !deadline.IsZero() && !time.Now().Add(s.retryInterval).Before(deadline) {
			return &Error{Op: "lock", Path: s.path, Err: ErrLockTimeout}
		}
		s.logger.Info("case database is locked, retrying", "path", s.path, "retry_in", s.retryInterval)
		select {
		case <-ctx.Done():
			return &Error{Op: "lock", Path: s.path, Err: ctx.Err()}
		case <-time.After(s.retryInterval):
		}
	}
}

func (s *Store) unlock(f *os.File) {
	s.logger.Debug("releasing lock", "path", s.path)
	if err := unlock(f); err != nil {
		s.logger.Warn("cannot release case database lock", "path", s.path, "error", err)
	}
}

// Get returns the record for caseID. A value without a readable ticket_id
// yields a zero record but is still reported as present.
func (s *Store) Get(caseID string) (protocol.CaseRecord, bool) {
	raw, ok := s.cases[caseID]
	if !ok {
		return protocol.CaseRecord{}, false
	}
	return s.decode(caseID, raw), true
}

func (s *Store) decode(caseID string, raw json.RawMessage) protocol.CaseRecord {
	var rec protocol.CaseRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Debug("case record has no ticket_id", "case", caseID, "error", err)
		return protocol.CaseRecord{}
	}
	return rec
}

// Has reports whether caseID is recorded.
func (s *Store) Has(caseID string) bool {
	_, ok := s.cases[caseID]
	return ok
}

// Put records caseID. It is not persisted until Save.
func (s *Store) Put(caseID string, rec protocol.CaseRecord) {
	raw, _ := json.Marshal(rec) // a struct of strings always encodes
	s.cases[caseID] = raw
}

// Delete removes caseID and returns the removed record, if it was present.
func (s *Store) Delete(caseID string) (protocol.CaseRecord, bool) {
	rec, ok := s.Get(caseID)
	if ok {
		delete(s.cases, caseID)
	}
	return rec, ok
}

// Len returns the number of recorded cases.
func (s *Store) Len() int { return len(s.cases) }

// All returns a copy of the mapping.
func (s *Store) All() map[string]protocol.CaseRecord {
	out := make(map[string]protocol.CaseRecord, len(s.cases))
	for k, raw := range s.cases {
		out[k] = s.decode(k, raw)
	}
	return out
}

// IDs returns the recorded case identifiers, sorted.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.cases))
	for k := range s.cases {
		ids = append(ids, k)
	}
	sort.Strings(ids)
	return ids
}
