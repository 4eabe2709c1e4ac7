package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"chatsync/internal/migrations"
	"chatsync/internal/models"
	"chatsync/internal/security"

	_ "github.com/mattn/go-sqlite3"
)

// Database is the SQLite-backed message store. Each message is written with a
// single INSERT, so the persistence step of the ingest pipeline is atomic:
// either the record exists with its server-assigned id and timestamp, or the
// write failed and nothing was stored.
type Database struct {
	db        *sql.DB
	encryptor *encryptor
}

func New(dbPath string) (*Database, error) {
	if len(dbPath) == 0 || dbPath[0] == '\x00' {
		return nil, fmt.Errorf("invalid database path")
	}

	if err := security.ValidateFilePath(dbPath); err != nil {
		return nil, fmt.Errorf("invalid database path: %w", err)
	}

	file, err := os.OpenFile(dbPath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create database file: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close database file: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize encryptor: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Database{db: db, encryptor: enc}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

// SaveMessage persists a message. The body is encrypted at rest when the
// encryption secret is configured.
func (d *Database) SaveMessage(ctx context.Context, msg *models.Message) error {
	body, err := d.encryptor.Encrypt(msg.Body)
	if err != nil {
		return fmt.Errorf("failed to encrypt message body: %w", err)
	}

	query := `
		INSERT INTO messages (
			id, tenant_id, channel_id, dm_thread_id,
			author_user_id, body, created_at, edited_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = d.db.ExecContext(ctx, query,
		msg.ID,
		msg.TenantID,
		msg.ChannelID,
		msg.DMThreadID,
		msg.AuthorUserID,
		body,
		msg.CreatedAt,
		msg.EditedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}

	return nil
}

// GetMessageByID fetches one message, or nil when it does not exist.
func (d *Database) GetMessageByID(ctx context.Context, id string) (*models.Message, error) {
	query := `
		SELECT id, tenant_id, channel_id, dm_thread_id,
		       author_user_id, body, created_at, edited_at
		FROM messages
		WHERE id = ?
	`

	msg, err := d.scanMessage(d.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// GetRoomMessages returns the messages of a channel or DM thread in
// (created_at, id) order, the same total order receivers establish from the
// broadcast stream.
func (d *Database) GetRoomMessages(ctx context.Context, channelID, dmThreadID *string, limit int) ([]*models.Message, error) {
	var query string
	var key interface{}

	switch {
	case channelID != nil && *channelID != "":
		query = `
			SELECT id, tenant_id, channel_id, dm_thread_id,
			       author_user_id, body, created_at, edited_at
			FROM messages
			WHERE channel_id = ?
			ORDER BY created_at, id
			LIMIT ?
		`
		key = *channelID
	case dmThreadID != nil && *dmThreadID != "":
		query = `
			SELECT id, tenant_id, channel_id, dm_thread_id,
			       author_user_id, body, created_at, edited_at
			FROM messages
			WHERE dm_thread_id = ?
			ORDER BY created_at, id
			LIMIT ?
		`
		key = *dmThreadID
	default:
		return nil, fmt.Errorf("either channel id or dm thread id is required")
	}

	if limit <= 0 {
		limit = 100
	}

	rows, err := d.db.QueryContext(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query room messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*models.Message
	for rows.Next() {
		msg, err := d.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate room messages: %w", err)
	}

	return messages, nil
}

// CleanupOldMessages deletes messages older than the retention window.
func (d *Database) CleanupOldMessages(ctx context.Context, retentionDays int) error {
	if retentionDays <= 0 {
		return fmt.Errorf("retention days must be positive")
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	_, err := d.db.ExecContext(ctx, `DELETE FROM messages WHERE created_at < ?`, cutoff)
	if err != nil {
		return fmt.Errorf("failed to cleanup old messages: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *Database) scanMessage(row rowScanner) (*models.Message, error) {
	msg := &models.Message{}
	var body string

	err := row.Scan(
		&msg.ID,
		&msg.TenantID,
		&msg.ChannelID,
		&msg.DMThreadID,
		&msg.AuthorUserID,
		&body,
		&msg.CreatedAt,
		&msg.EditedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Body, err = d.encryptor.Decrypt(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message body: %w", err)
	}
	return msg, nil
}
