// Package storage provides durable, ordered storage for sessions and
// messages backed by an embedded SQLite database.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/driftcode/agentserver/pkg/types"
)

// ErrNotFound is returned when a session or message lookup finds nothing.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL,
	working_dir   TEXT NOT NULL,
	title         TEXT,
	total_tokens  INTEGER NOT NULL DEFAULT 0,
	current_plan  TEXT,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	seq           INTEGER NOT NULL,
	role          TEXT NOT NULL,
	content       TEXT,
	content_kind  TEXT,
	tool_call_id  TEXT,
	tool_calls    TEXT,
	created_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);
`

// Store is the durable, ordered backing store for sessions and messages.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// applies the schema. path may be ":memory:" for ephemeral stores
// used in tests.
func Open(path string) (*Store, error) {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	db, err := sql.Open("sqlite", path+sep+"_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite is not safe for concurrent writers

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateSession inserts a new session row in the given initial status.
func (s *Store) CreateSession(ctx context.Context, id, workingDir string, status types.SessionStatus) error {
	now := time.Now().UnixMilli()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, working_dir, total_tokens, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?)`,
		id, string(status), workingDir, now, now,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns the persisted session record, or ErrNotFound.
func (s *Store) GetSession(ctx context.Context, id string) (*types.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, working_dir, title, total_tokens, current_plan, created_at, updated_at
		 FROM sessions WHERE id = ?`, id)

	var sess types.Session
	var title, plan sql.NullString
	var status string
	if err := row.Scan(&sess.ID, &status, &sess.WorkingDir, &title, &sess.TotalTokens, &plan, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.Status = types.SessionStatus(status)
	sess.Title = title.String
	if plan.Valid {
		sess.CurrentPlan = &plan.String
	}
	return &sess, nil
}

func (s *Store) touch(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE sessions SET updated_at = ? WHERE id = ?`, time.Now().UnixMilli(), id)
	return err
}

// UpdateSessionStatus transitions a session's status.
func (s *Store) UpdateSessionStatus(ctx context.Context, id string, status types.SessionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UnixMilli(), id)
	return checkUpdated(res, err, "update session status")
}

// UpdateSessionWorkingDir changes the session's working directory.
func (s *Store) UpdateSessionWorkingDir(ctx context.Context, id, dir string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET working_dir = ?, updated_at = ? WHERE id = ?`,
		dir, time.Now().UnixMilli(), id)
	return checkUpdated(res, err, "update session working dir")
}

// UpdateSessionTitle changes the session's title.
func (s *Store) UpdateSessionTitle(ctx context.Context, id, title string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?`,
		title, time.Now().UnixMilli(), id)
	return checkUpdated(res, err, "update session title")
}

// UpdateSessionPlan replaces the session's current-plan text, or clears
// it when text is nil.
func (s *Store) UpdateSessionPlan(ctx context.Context, id string, text *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET current_plan = ?, updated_at = ? WHERE id = ?`,
		text, time.Now().UnixMilli(), id)
	return checkUpdated(res, err, "update session plan")
}

// IncrementSessionTokens atomically adds delta to the session's
// cumulative token counter.
func (s *Store) IncrementSessionTokens(ctx context.Context, id string, delta int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET total_tokens = total_tokens + ?, updated_at = ? WHERE id = ?`,
		delta, time.Now().UnixMilli(), id)
	return checkUpdated(res, err, "increment session tokens")
}

// DeleteSession removes a session and, atomically, all of its
// messages. Returns false if the session did not exist.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
		return false, fmt.Errorf("delete session messages: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	return n > 0, nil
}

// AppendMessage persists a message, returning its assigned sequence
// number (ascending, append order, within the session).
func (s *Store) AppendMessage(ctx context.Context, sessionID string, msg types.Message) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	defer tx.Rollback()

	var nextSeq int
	row := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID)
	if err := row.Scan(&nextSeq); err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}

	content, contentKind, err := encodeContent(msg)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	toolCalls, err := encodeToolCalls(msg.ToolCalls)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, seq, role, content, content_kind, tool_call_id, tool_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, nextSeq, string(msg.Role), content, contentKind, nullableString(msg.ToolCallID), toolCalls, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	if err := s.touch(ctx, tx, sessionID); err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("append message: %w", err)
	}
	return nextSeq, nil
}

// ListMessages returns a session's messages ordered by sequence
// number ascending.
func (s *Store) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, role, content, content_kind, tool_call_id, tool_calls, created_at
		 FROM messages WHERE session_id = ? ORDER BY seq ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var seq int
		var role string
		var content, contentKind, toolCallID, toolCalls sql.NullString
		var createdAt int64
		if err := rows.Scan(&seq, &role, &content, &contentKind, &toolCallID, &toolCalls, &createdAt); err != nil {
			return nil, fmt.Errorf("list messages: %w", err)
		}
		msg := types.Message{
			Seq:       seq,
			Role:      types.Role(role),
			CreatedAt: createdAt,
		}
		if toolCallID.Valid {
			msg.ToolCallID = toolCallID.String
		}
		if toolCalls.Valid && toolCalls.String != "" {
			refs, err := decodeToolCalls(toolCalls.String)
			if err != nil {
				return nil, fmt.Errorf("list messages: %w", err)
			}
			msg.ToolCalls = refs
		}
		if content.Valid {
			if err := decodeContent(&msg, content.String, contentKind.String); err != nil {
				return nil, fmt.Errorf("list messages: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return out, nil
}

// CountMessages returns the number of persisted messages for a session.
func (s *Store) CountMessages(ctx context.Context, sessionID string) (int, error) {
	var n int
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE session_id = ?`, sessionID)
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// FirstUserMessage returns a 100-character ellipsis preview of the
// session's first user message, or nil if there is none.
func (s *Store) FirstUserMessage(ctx context.Context, sessionID string) (*string, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT content FROM messages WHERE session_id = ? AND role = ? ORDER BY seq ASC LIMIT 1`,
		sessionID, string(types.RoleUser))

	var content sql.NullString
	if err := row.Scan(&content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("first user message: %w", err)
	}
	if !content.Valid {
		return nil, nil
	}
	preview := previewOf(content.String)
	return &preview, nil
}

// ListSessions returns a page of session summaries ordered by
// creation time descending, plus the total session count.
func (s *Store) ListSessions(ctx context.Context, limit, offset int) ([]types.SessionSummary, int, error) {
	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, working_dir, title, total_tokens, current_plan, created_at, updated_at
		 FROM sessions ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []types.SessionSummary
	for rows.Next() {
		var sum types.SessionSummary
		var title, plan sql.NullString
		var status string
		if err := rows.Scan(&sum.ID, &status, &sum.WorkingDir, &title, &sum.TotalTokens, &plan, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("list sessions: %w", err)
		}
		sum.Status = types.SessionStatus(status)
		sum.Title = title.String
		count, err := s.CountMessages(ctx, sum.ID)
		if err != nil {
			return nil, 0, err
		}
		sum.MessageCount = count
		preview, err := s.FirstUserMessage(ctx, sum.ID)
		if err != nil {
			return nil, 0, err
		}
		if preview != nil {
			sum.Preview = *preview
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	return out, total, nil
}

func checkUpdated(res sql.Result, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

const previewLen = 100

func previewOf(text string) string {
	r := []rune(text)
	if len(r) <= previewLen {
		return text
	}
	return strings.TrimSpace(string(r[:previewLen])) + "…"
}

// contentKindString and contentKindBlocks tag which union arm a
// message's content column holds, so rehydration never has to guess
// from the payload's shape.
const (
	contentKindString = "s"
	contentKindBlocks = "b"
)

// encodeContent serializes a message's content payload alongside an
// explicit kind marker, so a plain string that happens to start with
// "[" is never mistaken for a serialized block array on read-back.
func encodeContent(msg types.Message) (content any, kind any, err error) {
	if s, ok := msg.StringContent(); ok {
		return s, contentKindString, nil
	}
	blocks, ok := msg.BlockContent()
	if !ok {
		return nil, nil, nil
	}
	data, err := json.Marshal(blocks)
	if err != nil {
		return nil, nil, err
	}
	return string(data), contentKindBlocks, nil
}

func decodeContent(msg *types.Message, raw, kind string) error {
	if kind == contentKindBlocks {
		var blocks []types.ContentBlock
		if err := json.Unmarshal([]byte(raw), &blocks); err != nil {
			return err
		}
		msg.SetBlockContent(blocks)
		return nil
	}
	msg.SetStringContent(raw)
	return nil
}

func encodeToolCalls(refs []types.ToolCallRef) (any, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(refs)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeToolCalls(raw string) ([]types.ToolCallRef, error) {
	var refs []types.ToolCallRef
	if err := json.Unmarshal([]byte(raw), &refs); err != nil {
		return nil, err
	}
	return refs, nil
}
