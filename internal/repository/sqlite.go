package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/speechcoach/coach/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
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

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			mode TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL,
			text TEXT,
			audio_path TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	// Metadata columns arrived after the first schema; add them to existing DBs.
	columns := []struct{ name, ddl string }{
		{"topic", "ALTER TABLE sessions ADD COLUMN topic TEXT NOT NULL DEFAULT 'General'"},
		{"language", "ALTER TABLE sessions ADD COLUMN language TEXT NOT NULL DEFAULT 'en'"},
		{"model", "ALTER TABLE sessions ADD COLUMN model TEXT"},
	}
	for _, c := range columns {
		if err := s.ensureColumn("sessions", c.name, c.ddl); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) ensureColumn(tableName, columnName, ddl string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", tableName))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull int
		var dfltValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == columnName {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	_, err = s.db.Exec(ddl)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session. Empty topic and language are filled with defaults.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	if session.Topic == "" {
		session.Topic = domain.DefaultTopic
	}
	if session.Language == "" {
		session.Language = domain.DefaultLanguage
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, mode, created_at, topic, language, model) VALUES (?, ?, ?, ?, ?, ?)`,
		session.SessionID, session.Mode, session.CreatedAt, session.Topic, session.Language, nullString(session.Model))
	return err
}

// GetSession retrieves a session by ID. It returns nil when the session does not exist.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	var model sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, mode, created_at, topic, language, model FROM sessions WHERE id = ?`,
		sessionID).Scan(&session.SessionID, &session.Mode, &session.CreatedAt, &session.Topic, &session.Language, &model)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if model.Valid {
		session.Model = &model.String
	}
	return &session, nil
}

// SessionExists reports whether a session with the given ID exists.
func (s *SQLiteStore) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE id = ?`, sessionID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetOrCreateSession gets an existing session or creates one with the given
// mode. The boolean reports whether the session was created.
func (s *SQLiteStore) GetOrCreateSession(ctx context.Context, sessionID string, mode domain.SessionMode) (*domain.Session, bool, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if session != nil {
		return session, false, nil
	}

	session = &domain.Session{
		SessionID: sessionID,
		Mode:      mode,
		CreatedAt: time.Now().UTC(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, mode, created_at, topic, language) VALUES (?, ?, ?, ?, ?)`,
		session.SessionID, session.Mode, session.CreatedAt, domain.DefaultTopic, domain.DefaultLanguage)
	if err != nil {
		return nil, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	// Another turn may have created it concurrently; read back what is stored.
	stored, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, fmt.Errorf("session %s vanished after insert", sessionID)
	}
	return stored, n == 1, nil
}

// UpdateSessionMetadata sets the non-nil metadata fields of a session.
func (s *SQLiteStore) UpdateSessionMetadata(ctx context.Context, sessionID string, meta domain.SessionMetadata) error {
	var sets []string
	var args []interface{}
	if meta.Topic != nil {
		sets = append(sets, "topic = ?")
		args = append(args, *meta.Topic)
	}
	if meta.Language != nil {
		sets = append(sets, "language = ?")
		args = append(args, *meta.Language)
	}
	if meta.Model != nil {
		sets = append(sets, "model = ?")
		args = append(args, nullString(meta.Model))
	}

	if len(sets) == 0 {
		ok, err := s.SessionExists(ctx, sessionID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrUnknownSession
		}
		return nil
	}

	args = append(args, sessionID)
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUnknownSession
	}
	return nil
}

// ListSessions returns every session, newest first, with message aggregates.
func (s *SQLiteStore) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, created_at, topic, language, model FROM sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}

	summaries := []domain.SessionSummary{}
	for rows.Next() {
		var sum domain.SessionSummary
		var model sql.NullString
		if err := rows.Scan(&sum.SessionID, &sum.Mode, &sum.CreatedAt, &sum.Topic, &sum.Language, &model); err != nil {
			rows.Close()
			return nil, err
		}
		if model.Valid {
			sum.Model = &model.String
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	// Single-connection in-memory databases cannot run these while rows is open.
	for i := range summaries {
		if err := s.summarize(ctx, &summaries[i]); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

func (s *SQLiteStore) summarize(ctx context.Context, sum *domain.SessionSummary) error {
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE session_id = ?`, sum.SessionID).Scan(&sum.MessageCount); err != nil {
		return err
	}
	if sum.MessageCount == 0 {
		return nil
	}

	var first, last time.Time
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE session_id = ? ORDER BY id ASC LIMIT 1`, sum.SessionID).Scan(&first); err != nil {
		return err
	}
	if err := s.db.QueryRowContext(ctx,
		`SELECT created_at FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT 1`, sum.SessionID).Scan(&last); err != nil {
		return err
	}
	sum.DurationSeconds = last.Sub(first).Seconds()

	var text sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT text FROM messages WHERE session_id = ? AND text IS NOT NULL ORDER BY id ASC LIMIT 1`, sum.SessionID).Scan(&text)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if text.Valid {
		sum.FirstMessage = &text.String
	}
	text = sql.NullString{}
	err = s.db.QueryRowContext(ctx,
		`SELECT text FROM messages WHERE session_id = ? AND text IS NOT NULL ORDER BY id DESC LIMIT 1`, sum.SessionID).Scan(&text)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if text.Valid {
		sum.LastMessage = &text.String
	}
	return nil
}

// DeleteSession removes a session's messages and then the session itself.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrUnknownSession
	}
	return tx.Commit()
}

// DeleteAllSessions removes every message and session and returns how many
// sessions were deleted.
func (s *SQLiteStore) DeleteAllSessions(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(n), nil
}

// AppendMessage appends a message to its session's log and sets its sequence ID.
func (s *SQLiteStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, sender, text, audio_path, created_at) VALUES (?, ?, ?, ?, ?)`,
		message.SessionID, message.Sender, nullString(message.Text), nullString(message.AudioPath), message.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	message.ID = id
	return nil
}

// GetMessages retrieves all messages of a session in sequence order.
func (s *SQLiteStore) GetMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, session_id, sender, text, audio_path, created_at FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID)
}

// GetMessagesBefore retrieves the messages of a session whose sequence ID is
// below beforeID, in sequence order.
func (s *SQLiteStore) GetMessagesBefore(ctx context.Context, sessionID string, beforeID int64) ([]domain.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, session_id, sender, text, audio_path, created_at FROM messages WHERE session_id = ? AND id < ? ORDER BY id ASC`,
		sessionID, beforeID)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...interface{}) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var text, audioPath sql.NullString
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Sender, &text, &audioPath, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if text.Valid {
			msg.Text = &text.String
		}
		if audioPath.Valid {
			msg.AudioPath = &audioPath.String
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
