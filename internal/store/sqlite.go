package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/graphdesk/server/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db      *sql.DB
	timeout time.Duration
}

// NewSQLiteStore opens (or creates) a SQLite database at dsn and runs the
// migrations. opTimeout bounds every store call; zero disables the deadline.
func NewSQLiteStore(dsn string, opTimeout time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLiteStore{db: db, timeout: opTimeout}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			lineage_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			conversation_id TEXT NOT NULL DEFAULT '',
			transcript_id TEXT NOT NULL DEFAULT '',
			messages TEXT NOT NULL DEFAULT '[]',
			graph_data TEXT NOT NULL DEFAULT '{"nodes":[],"links":[]}',
			version INTEGER NOT NULL DEFAULT 1,
			is_current INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_lineage_version ON sessions(lineage_id, version)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at)`,
		`CREATE TABLE IF NOT EXISTS views (
			view_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			view_type TEXT NOT NULL DEFAULT 'custom',
			filters TEXT,
			layout_config TEXT,
			active_filters TEXT,
			node_positions TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

func (s *SQLiteStore) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver failures onto the storage error taxonomy. Anything it
// does not recognize passes through unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
	}
	var se sqlite3.Error
	if errors.As(err, &se) {
		switch se.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %v", domain.ErrStorageTimeout, err)
		case sqlite3.ErrCantOpen, sqlite3.ErrIoErr, sqlite3.ErrCorrupt:
			return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
	}
	return err
}

func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	messages, graph, err := marshalPayload(session)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO sessions
		(session_id, lineage_id, name, description, conversation_id, transcript_id,
		 messages, graph_data, version, is_current, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.LineageID, session.Name, session.Description,
		session.ConversationID, session.TranscriptID, messages, graph,
		session.Version, session.IsCurrent, session.CreatedAt.UTC(), session.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create session: %w", classify(err))
	}
	return nil
}

const sessionColumns = `session_id, lineage_id, name, description, conversation_id,
	transcript_id, messages, graph_data, version, is_current, created_at, updated_at`

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE session_id = ?`, sessionID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("session", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", classify(err))
	}
	return session, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT
		session_id, lineage_id, name, description, version, is_current,
		json_array_length(messages), json_array_length(graph_data, '$.nodes'),
		created_at, updated_at
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", classify(err))
	}
	defer rows.Close()

	summaries := make([]domain.SessionSummary, 0)
	for rows.Next() {
		var sum domain.SessionSummary
		var msgCount, nodeCount sql.NullInt64
		if err := rows.Scan(&sum.SessionID, &sum.LineageID, &sum.Name, &sum.Description,
			&sum.Version, &sum.IsCurrent, &msgCount, &nodeCount,
			&sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", classify(err))
		}
		sum.MessageCount = int(msgCount.Int64)
		sum.NodeCount = int(nodeCount.Int64)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", classify(err))
	}
	return summaries, nil
}

func (s *SQLiteStore) UpdateSession(ctx context.Context, session *domain.Session) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	messages, graph, err := marshalPayload(session)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE sessions SET
		name = ?, description = ?, conversation_id = ?, transcript_id = ?,
		messages = ?, graph_data = ?, updated_at = ?
		WHERE session_id = ?`,
		session.Name, session.Description, session.ConversationID, session.TranscriptID,
		messages, graph, session.UpdatedAt.UTC(), session.SessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.NewNotFoundError("session", session.SessionID)
	}
	return nil
}

func (s *SQLiteStore) CurrentSession(ctx context.Context, lineageID string) (*domain.Session, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE lineage_id = ? AND is_current = 1`, lineageID)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("lineage", lineageID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", classify(err))
	}
	return session, nil
}

func (s *SQLiteStore) InsertVersion(ctx context.Context, session *domain.Session) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	messages, graph, err := marshalPayload(session)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin version insert: %w", classify(err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET is_current = 0 WHERE lineage_id = ?`, session.LineageID); err != nil {
		return fmt.Errorf("failed to retire current version: %w", classify(err))
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO sessions
		(session_id, lineage_id, name, description, conversation_id, transcript_id,
		 messages, graph_data, version, is_current, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
		session.SessionID, session.LineageID, session.Name, session.Description,
		session.ConversationID, session.TranscriptID, messages, graph,
		session.Version, session.CreatedAt.UTC(), session.UpdatedAt.UTC()); err != nil {
		return fmt.Errorf("failed to insert version: %w", classify(err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit version insert: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) ListVersions(ctx context.Context, lineageID string) ([]domain.VersionInfo, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, version, is_current, created_at
		 FROM sessions WHERE lineage_id = ? ORDER BY version ASC`, lineageID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", classify(err))
	}
	defer rows.Close()

	versions := make([]domain.VersionInfo, 0)
	for rows.Next() {
		var v domain.VersionInfo
		if err := rows.Scan(&v.SessionID, &v.Version, &v.IsCurrent, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", classify(err))
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", classify(err))
	}
	if len(versions) == 0 {
		return nil, domain.NewNotFoundError("lineage", lineageID)
	}
	return versions, nil
}

func (s *SQLiteStore) DeleteLineage(ctx context.Context, lineageID string) (int, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE lineage_id = ?`, lineageID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete lineage: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify(err)
	}
	if n == 0 {
		return 0, domain.NewNotFoundError("lineage", lineageID)
	}
	return int(n), nil
}

func (s *SQLiteStore) CreateView(ctx context.Context, view *domain.CustomView) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	activeFilters, err := json.Marshal(view.ActiveFilters)
	if err != nil {
		return fmt.Errorf("failed to marshal active filters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO views
		(view_id, name, description, view_type, filters, layout_config,
		 active_filters, node_positions, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		view.ViewID, view.Name, view.Description, string(view.ViewType),
		nullableJSON(view.Filters), nullableJSON(view.LayoutConfig),
		string(activeFilters), nullableJSON(view.NodePositions),
		view.CreatedAt.UTC(), view.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create view: %w", classify(err))
	}
	return nil
}

func (s *SQLiteStore) GetView(ctx context.Context, viewID string) (*domain.CustomView, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT view_id, name, description, view_type,
		filters, layout_config, active_filters, node_positions, created_at, updated_at
		FROM views WHERE view_id = ?`, viewID)
	view, err := scanView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("view", viewID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get view: %w", classify(err))
	}
	return view, nil
}

func (s *SQLiteStore) ListViews(ctx context.Context) ([]domain.CustomView, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT view_id, name, description, view_type,
		filters, layout_config, active_filters, node_positions, created_at, updated_at
		FROM views ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", classify(err))
	}
	defer rows.Close()

	views := make([]domain.CustomView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan view: %w", classify(err))
		}
		views = append(views, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list views: %w", classify(err))
	}
	return views, nil
}

func (s *SQLiteStore) DeleteView(ctx context.Context, viewID string) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `DELETE FROM views WHERE view_id = ?`, viewID)
	if err != nil {
		return fmt.Errorf("failed to delete view: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 0 {
		return domain.NewNotFoundError("view", viewID)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()
	return classify(s.db.PingContext(ctx))
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func marshalPayload(session *domain.Session) (messages, graph string, err error) {
	msgs := session.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	m, err := json.Marshal(msgs)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal messages: %w", err)
	}
	g, err := json.Marshal(session.GraphData)
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal graph data: %w", err)
	}
	return string(m), string(g), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	var messages, graph string
	if err := row.Scan(&session.SessionID, &session.LineageID, &session.Name,
		&session.Description, &session.ConversationID, &session.TranscriptID,
		&messages, &graph, &session.Version, &session.IsCurrent,
		&session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(messages), &session.Messages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal messages: %w", err)
	}
	if err := json.Unmarshal([]byte(graph), &session.GraphData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph data: %w", err)
	}
	return &session, nil
}

func scanView(row rowScanner) (*domain.CustomView, error) {
	var view domain.CustomView
	var viewType string
	var filters, layout, activeFilters, positions sql.NullString
	if err := row.Scan(&view.ViewID, &view.Name, &view.Description, &viewType,
		&filters, &layout, &activeFilters, &positions,
		&view.CreatedAt, &view.UpdatedAt); err != nil {
		return nil, err
	}
	view.ViewType = domain.ViewType(viewType)
	if filters.Valid && filters.String != "" {
		view.Filters = json.RawMessage(filters.String)
	}
	if layout.Valid && layout.String != "" {
		view.LayoutConfig = json.RawMessage(layout.String)
	}
	if activeFilters.Valid && activeFilters.String != "" {
		if err := json.Unmarshal([]byte(activeFilters.String), &view.ActiveFilters); err != nil {
			return nil, fmt.Errorf("failed to unmarshal active filters: %w", err)
		}
	}
	if positions.Valid && positions.String != "" {
		view.NodePositions = json.RawMessage(positions.String)
	}
	return &view, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
