package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateConversation records the start of a run.
func (s *SQLiteStore) CreateConversation(ctx context.Context, c Conversation) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if c.Status == "" {
		c.Status = StatusRunning
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, prompt, mode, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, c.ID, c.Prompt, c.Mode, c.Status, c.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

// FinishConversation stores the final status of a run.
func (s *SQLiteStore) FinishConversation(ctx context.Context, id, status, reason string, runErr error) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	errStr := ""
	if runErr != nil {
		errStr = runErr.Error()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE conversations
		SET status = ?, termination_reason = ?, error = ?, finished_at = ?
		WHERE id = ?
	`, status, reason, errStr, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to finish conversation: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const conversationColumns = `
	c.id, c.prompt, c.mode, c.status, c.termination_reason, c.error, c.created_at, c.finished_at,
	(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)`

// GetConversation returns one conversation by ID.
func (s *SQLiteStore) GetConversation(ctx context.Context, id string) (*Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+conversationColumns+` FROM conversations c WHERE c.id = ?`, id)
	c, err := scanConversation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns the most recent conversations first.
// limit <= 0 returns all of them.
func (s *SQLiteStore) ListConversations(ctx context.Context, limit int) ([]Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations c
		ORDER BY c.created_at DESC, c.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	list := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return list, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(r rowScanner) (Conversation, error) {
	var c Conversation
	var finished sql.NullTime
	err := r.Scan(&c.ID, &c.Prompt, &c.Mode, &c.Status, &c.TerminationReason, &c.Error,
		&c.CreatedAt, &finished, &c.MessageCount)
	if err != nil {
		return Conversation{}, err
	}
	if finished.Valid {
		c.FinishedAt = finished.Time
	}
	return c, nil
}
