// Package sqlite provides a durable causal.EventStore backed by SQLite
// via the pure-Go modernc.org/sqlite driver.
//
// Event ids come from an AUTOINCREMENT primary key, so id assignment is
// the storage engine's own atomic counter: monotonic and never reused,
// even under concurrent writers.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/threadline-ai/causalmem/causal"
)

const schema = `
CREATE TABLE IF NOT EXISTS causal_events (
	event_id          INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp         INTEGER NOT NULL,
	effect_text       TEXT NOT NULL,
	embedding         BLOB NOT NULL,
	cause_id          INTEGER,
	relationship_text TEXT,
	session_id        TEXT,
	conversation_id   TEXT
);
CREATE INDEX IF NOT EXISTS idx_causal_events_timestamp ON causal_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_causal_events_session ON causal_events(session_id);
CREATE INDEX IF NOT EXISTS idx_causal_events_cause ON causal_events(cause_id);
`

// Store is a SQLite-backed causal event log.
type Store struct {
	db     *sql.DB
	mu     sync.Mutex // serializes appends; reads go through the pool
	closed bool
	logger *log.Logger
}

// Open opens (creating if needed) the event database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}

	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Store{
		db:     db,
		logger: log.Default().WithPrefix("causal.sqlite"),
	}, nil
}

// Append inserts ev in a single statement; the row either lands complete
// with its cause link or not at all. Returns the id the engine assigned.
func (s *Store) Append(ctx context.Context, ev *causal.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, causal.ErrStoreClosed
	}

	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO causal_events
			(timestamp, effect_text, embedding, cause_id, relationship_text, session_id, conversation_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ts.UnixNano(),
		ev.EffectText,
		encodeVector(ev.Embedding),
		nullableID(ev.CauseID),
		nullableText(ev.RelationshipText),
		nullableText(ev.SessionID),
		nullableText(ev.ConversationID),
	)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read assigned id: %w", err)
	}
	return id, nil
}

// Get returns the event with the given id, or nil if absent.
func (s *Store) Get(ctx context.Context, id int64) (*causal.Event, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE event_id = ?`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get event %d: %w", id, err)
	}
	return ev, nil
}

// Recent returns matching events ordered newest first.
func (s *Store) Recent(ctx context.Context, q causal.RecentQuery) ([]*causal.Event, error) {
	limit := q.Limit
	if limit <= 0 || limit > causal.MaxScanWindow {
		limit = causal.MaxScanWindow
	}

	query := selectColumns
	var args []any
	var conds []string
	if q.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, q.SessionID)
	} else {
		s.logger.Warn("recent scan without session filter; clamping to global window", "limit", limit)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "timestamp > ?")
		args = append(args, q.Since.UnixNano())
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var out []*causal.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DirectEffectOf returns the earliest event caused by causeID, or nil.
func (s *Store) DirectEffectOf(ctx context.Context, causeID int64) (*causal.Event, error) {
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE cause_id = ? ORDER BY timestamp ASC LIMIT 1`, causeID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("direct effect of %d: %w", causeID, err)
	}
	return ev, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

const selectColumns = `
	SELECT event_id, timestamp, effect_text, embedding, cause_id,
	       relationship_text, session_id, conversation_id
	FROM causal_events`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*causal.Event, error) {
	var (
		ev           causal.Event
		ts           int64
		blob         []byte
		causeID      sql.NullInt64
		relationship sql.NullString
		sessionID    sql.NullString
		convID       sql.NullString
	)
	if err := row.Scan(&ev.ID, &ts, &ev.EffectText, &blob,
		&causeID, &relationship, &sessionID, &convID); err != nil {
		return nil, err
	}

	ev.Timestamp = time.Unix(0, ts)
	ev.Embedding = decodeVector(blob)
	if causeID.Valid {
		id := causeID.Int64
		ev.CauseID = &id
	}
	ev.RelationshipText = relationship.String
	ev.SessionID = sessionID.String
	ev.ConversationID = convID.String
	return &ev, nil
}

// encodeVector packs an embedding as little-endian float32 bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
