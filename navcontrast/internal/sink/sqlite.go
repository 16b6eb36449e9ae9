package sink

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/hazyhaar/navcontrast/dbopen"
	"github.com/hazyhaar/navcontrast/idgen"
	"github.com/hazyhaar/navcontrast/navcontrast/theme"
)

// Schema is the theme history table. The engine never reads it back.
const Schema = `
CREATE TABLE IF NOT EXISTS theme_events (
	id          TEXT PRIMARY KEY,
	page_id     TEXT NOT NULL,
	page_url    TEXT NOT NULL DEFAULT '',
	seq         INTEGER NOT NULL,
	state       TEXT NOT NULL,
	reason      TEXT NOT NULL,
	luminance   REAL NOT NULL,
	is_light    INTEGER NOT NULL,
	fallback    INTEGER NOT NULL DEFAULT 0,
	use_light   INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_theme_events_page ON theme_events(page_id, created_at);
`

// SQLite records every event in a theme_events table.
type SQLite struct {
	db    *sql.DB
	owned bool
}

// OpenSQLite opens (or creates) the history database at path.
func OpenSQLite(path string, opts ...dbopen.Option) (*SQLite, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)
	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &SQLite{db: db, owned: true}, nil
}

// NewSQLite wraps an existing handle and applies the schema. Close does not
// close db.
func NewSQLite(db *sql.DB) (*SQLite, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("sqlite sink: schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Send(ctx context.Context, ev theme.Event) error {
	if ev.ID == "" {
		ev.ID = idgen.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO theme_events
			(id, page_id, page_url, seq, state, reason, luminance, is_light, fallback, use_light, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		ev.ID, ev.PageID, ev.PageURL, int64(ev.Seq), string(ev.State), string(ev.Reason),
		ev.Verdict.Luminance, boolInt(ev.Verdict.IsLight), boolInt(ev.Verdict.Fallback),
		boolInt(ev.Theme.UseLightBackgroundStyling), ev.Error, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("sqlite sink: insert: %w", err)
	}
	return nil
}

// Recent returns the newest events for pageID, newest first.
func (s *SQLite) Recent(ctx context.Context, pageID string, limit int) ([]theme.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, page_url, seq, state, reason, luminance, is_light, fallback, error, created_at
		FROM theme_events
		WHERE page_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: query: %w", err)
	}
	defer rows.Close()

	var out []theme.Event
	for rows.Next() {
		var (
			ev                theme.Event
			seq               int64
			state, reason     string
			isLight, fallback int
		)
		if err := rows.Scan(&ev.ID, &ev.PageID, &ev.PageURL, &seq, &state, &reason,
			&ev.Verdict.Luminance, &isLight, &fallback, &ev.Error, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlite sink: scan: %w", err)
		}
		ev.Seq = uint64(seq)
		ev.State = theme.ScrollState(state)
		ev.Reason = theme.Reason(reason)
		ev.Verdict.IsLight = isLight != 0
		ev.Verdict.Fallback = fallback != 0
		ev.Theme = theme.Derive(ev.State, ev.Verdict.IsLight)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
