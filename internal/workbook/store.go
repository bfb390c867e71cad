// Package workbook keeps the append-only snapshot log, one sheet per sheet
// key, and persists it.
package workbook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"seatwatch.app/internal/logging"
	"seatwatch.app/internal/models"
)

// Sheet is one append-only log. Rows are positional against Header; a row
// shorter than the header has blank trailing cells.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]any
}

func (s Sheet) clone() Sheet {
	out := Sheet{
		Name:   s.Name,
		Header: append([]string(nil), s.Header...),
		Rows:   make([][]any, len(s.Rows)),
	}
	for i, row := range s.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// Persister is the durable side of the store.
type Persister interface {
	Load() ([]Sheet, error)
	Persist(sheets []Sheet) error
}

// Store is safe for concurrent use. Every mutation holds a single writer lock
// for header extension, row append and flush.
type Store struct {
	mu        sync.Mutex
	sheets    map[string]*Sheet
	order     []string
	persister Persister
	logger    *slog.Logger
	flushes   int
	failures  int
	lastFlush time.Time
}

// Handle refers to one sheet of a store.
type Handle struct {
	store *Store
	key   string
}

func (h Handle) Key() string { return h.key }

// AppendRow appends to the sheet behind the handle.
func (h Handle) AppendRow(ctx context.Context, row models.SnapshotRow) error {
	return h.store.AppendRow(ctx, h.key, row)
}

// New returns an empty store. persister may be nil for a memory-only store.
func New(persister Persister, logger *slog.Logger) *Store {
	return &Store{
		sheets:    make(map[string]*Sheet),
		persister: persister,
		logger:    logging.Component(logger, "workbook"),
	}
}

// Open loads the existing workbook. A missing or unreadable source yields an
// empty store.
func Open(persister Persister, logger *slog.Logger) *Store {
	store := New(persister, logger)
	if persister == nil {
		return store
	}

	sheets, err := persister.Load()
	if err != nil {
		logging.LogError(store.logger, "failed to load workbook, starting empty", err)
		return store
	}
	for _, sheet := range sheets {
		if _, exists := store.sheets[sheet.Name]; exists {
			continue
		}
		loaded := sheet.clone()
		store.sheets[sheet.Name] = &loaded
		store.order = append(store.order, sheet.Name)
	}
	logging.LogOperation(store.logger, "workbook_loaded", slog.Int("sheets", len(store.order)))
	return store
}

// EnsureSheet creates the sheet if it does not exist yet.
func (s *Store) EnsureSheet(key string) Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureSheet(key)
	return Handle{store: s, key: key}
}

func (s *Store) ensureSheet(key string) *Sheet {
	sheet, ok := s.sheets[key]
	if !ok {
		sheet = &Sheet{Name: key}
		s.sheets[key] = sheet
		s.order = append(s.order, key)
	}
	return sheet
}

// AppendRow adds row as the newest row of the sheet, extending the header
// with unseen columns first, then flushes. A flush failure is returned but
// the row stays in memory.
func (s *Store) AppendRow(ctx context.Context, key string, row models.SnapshotRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheet := s.ensureSheet(key)

	known := make(map[string]bool, len(sheet.Header))
	for _, column := range sheet.Header {
		known[column] = true
	}
	for _, column := range row.Columns() {
		if !known[column] {
			sheet.Header = append(sheet.Header, column)
			known[column] = true
		}
	}

	cells := make([]any, len(sheet.Header))
	last := -1
	for i, column := range sheet.Header {
		if value, ok := row.Cell(column); ok {
			cells[i] = value
			last = i
		}
	}
	sheet.Rows = append(sheet.Rows, cells[:last+1])

	return s.flush(ctx)
}

// Flush persists the whole store.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

func (s *Store) flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := s.persister.Persist(s.snapshot()); err != nil {
		s.failures++
		err = fmt.Errorf("persist workbook: %w", err)
		logging.LogError(s.logger, "failed to persist workbook", err,
			slog.Int("sheets", len(s.order)),
			slog.Int("consecutive_failures", s.failures))
		return err
	}
	s.failures = 0
	s.flushes++
	s.lastFlush = time.Now()
	s.logger.Debug("workbook persisted",
		slog.Int("sheets", len(s.order)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (s *Store) snapshot() []Sheet {
	sheets := make([]Sheet, 0, len(s.order))
	for _, key := range s.order {
		sheets = append(sheets, s.sheets[key].clone())
	}
	return sheets
}

// Snapshot returns a copy of every sheet in creation order.
func (s *Store) Snapshot() []Sheet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Sheet returns a copy of one sheet.
func (s *Store) Sheet(key string) (Sheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheet, ok := s.sheets[key]
	if !ok {
		return Sheet{}, false
	}
	return sheet.clone(), true
}

// SheetNames lists sheet keys in creation order.
func (s *Store) SheetNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// Stats describes persistence health.
type Stats struct {
	Sheets              int       `json:"sheets"`
	Flushes             int       `json:"flushes"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastFlush           time.Time `json:"lastFlush"`
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Sheets:              len(s.order),
		Flushes:             s.flushes,
		ConsecutiveFailures: s.failures,
		LastFlush:           s.lastFlush,
	}
}
