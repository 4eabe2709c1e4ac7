package migrations

// Initial schema for the chat message store. Lookups are room-scoped and
// ordered by (created_at, id), matching the broadcast ordering rule.
const initialSchema = `
CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    tenant_id TEXT NOT NULL,
    channel_id TEXT,
    dm_thread_id TEXT,
    author_user_id TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    edited_at TIMESTAMP,
    CHECK ((channel_id IS NOT NULL) != (dm_thread_id IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS idx_messages_channel
    ON messages(channel_id, created_at, id);

CREATE INDEX IF NOT EXISTS idx_messages_dm_thread
    ON messages(dm_thread_id, created_at, id);

CREATE INDEX IF NOT EXISTS idx_messages_created_at
    ON messages(created_at);
`

// GetInitialSchema returns the schema applied on startup.
func GetInitialSchema() string {
	return initialSchema
}
