package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SaveMessages appends turns to a conversation in one transaction.
func (s *SQLiteStore) SaveMessages(ctx context.Context, conversationID string, turns []Turn) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Begin transaction with serializable isolation (BEGIN IMMEDIATE)
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, round, speaker, content, is_terminal, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, turn := range turns {
		ts := turn.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := stmt.ExecContext(ctx, conversationID, turn.Round, turn.Speaker, turn.Content, turn.IsTerminal, ts.UTC()); err != nil {
			return fmt.Errorf("failed to save message %d: %w", turn.Round, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetHistory retrieves all messages of a conversation in round order.
// Returns empty slice (not nil) if no history exists.
func (s *SQLiteStore) GetHistory(ctx context.Context, conversationID string) ([]Turn, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT round, speaker, content, is_terminal, timestamp
		FROM messages
		WHERE conversation_id = ?
		ORDER BY round ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	history := []Turn{}
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.Round, &turn.Speaker, &turn.Content, &turn.IsTerminal, &turn.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		history = append(history, turn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return history, nil
}
