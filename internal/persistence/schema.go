package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		mode TEXT NOT NULL,
		status TEXT NOT NULL,
		termination_reason TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_conversations_created_at ON conversations(created_at);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		conversation_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		speaker TEXT NOT NULL,
		content TEXT NOT NULL,
		is_terminal INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME NOT NULL,
		FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation_round
		ON messages(conversation_id, round);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
