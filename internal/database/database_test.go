package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"chatsync/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testMessage(id, channelID string, at time.Time) *models.Message {
	return &models.Message{
		ID:           id,
		TenantID:     "t1",
		ChannelID:    strPtr(channelID),
		AuthorUserID: "u1",
		Body:         "hello from " + id,
		CreatedAt:    at,
	}
}

func TestNew_InvalidPath(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"traversal", "../escape.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := New(tt.path)
			assert.Error(t, err)
			assert.Nil(t, db)
		})
	}
}

func TestDatabase_SaveAndGetMessage(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	msg := testMessage("m1", "c1", now)

	require.NoError(t, db.SaveMessage(ctx, msg))

	got, err := db.GetMessageByID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "m1", got.ID)
	assert.Equal(t, "t1", got.TenantID)
	require.NotNil(t, got.ChannelID)
	assert.Equal(t, "c1", *got.ChannelID)
	assert.Nil(t, got.DMThreadID)
	assert.Equal(t, "hello from m1", got.Body)
	assert.True(t, now.Equal(got.CreatedAt.UTC()))
	assert.Nil(t, got.EditedAt)
}

func TestDatabase_GetMessageByIDNotFound(t *testing.T) {
	db := setupTestDB(t)

	got, err := db.GetMessageByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDatabase_SaveMessageDuplicateID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := testMessage("m1", "c1", time.Now().UTC())
	require.NoError(t, db.SaveMessage(ctx, msg))
	assert.Error(t, db.SaveMessage(ctx, msg))
}

func TestDatabase_SaveMessageRequiresTarget(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	// Schema-level guard: exactly one of channel_id and dm_thread_id.
	neither := &models.Message{
		ID: "m1", TenantID: "t1", AuthorUserID: "u1", Body: "x", CreatedAt: time.Now().UTC(),
	}
	assert.Error(t, db.SaveMessage(ctx, neither))

	both := testMessage("m2", "c1", time.Now().UTC())
	both.DMThreadID = strPtr("d1")
	assert.Error(t, db.SaveMessage(ctx, both))
}

func TestDatabase_GetRoomMessagesOrdering(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	// Same timestamp: id breaks the tie lexicographically.
	require.NoError(t, db.SaveMessage(ctx, testMessage("m-b", "c1", base)))
	require.NoError(t, db.SaveMessage(ctx, testMessage("m-a", "c1", base)))
	require.NoError(t, db.SaveMessage(ctx, testMessage("m-c", "c1", base.Add(-time.Minute))))
	require.NoError(t, db.SaveMessage(ctx, testMessage("other", "c2", base)))

	messages, err := db.GetRoomMessages(ctx, strPtr("c1"), nil, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)

	assert.Equal(t, "m-c", messages[0].ID)
	assert.Equal(t, "m-a", messages[1].ID)
	assert.Equal(t, "m-b", messages[2].ID)
}

func TestDatabase_GetRoomMessagesDMThread(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	msg := &models.Message{
		ID:           "m1",
		TenantID:     "t1",
		DMThreadID:   strPtr("d1"),
		AuthorUserID: "u1",
		Body:         "dm hello",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, db.SaveMessage(ctx, msg))

	messages, err := db.GetRoomMessages(ctx, nil, strPtr("d1"), 10)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "dm hello", messages[0].Body)
}

func TestDatabase_GetRoomMessagesRequiresKey(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetRoomMessages(context.Background(), nil, nil, 10)
	assert.Error(t, err)
}

func TestDatabase_GetRoomMessagesLimit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := string(rune('a' + i))
		require.NoError(t, db.SaveMessage(ctx, testMessage("m-"+id, "c1", base.Add(time.Duration(i)*time.Second))))
	}

	messages, err := db.GetRoomMessages(ctx, strPtr("c1"), nil, 2)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m-a", messages[0].ID)
	assert.Equal(t, "m-b", messages[1].ID)
}

func TestDatabase_CleanupOldMessages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	old := testMessage("m-old", "c1", time.Now().UTC().AddDate(0, 0, -40))
	fresh := testMessage("m-fresh", "c1", time.Now().UTC())
	require.NoError(t, db.SaveMessage(ctx, old))
	require.NoError(t, db.SaveMessage(ctx, fresh))

	require.NoError(t, db.CleanupOldMessages(ctx, 30))

	gone, err := db.GetMessageByID(ctx, "m-old")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := db.GetMessageByID(ctx, "m-fresh")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestDatabase_CleanupOldMessagesInvalidRetention(t *testing.T) {
	db := setupTestDB(t)

	assert.Error(t, db.CleanupOldMessages(context.Background(), 0))
	assert.Error(t, db.CleanupOldMessages(context.Background(), -7))
}

func TestDatabase_BodyEncryptedAtRest(t *testing.T) {
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "test-secret-please-ignore")

	dbPath := filepath.Join(t.TempDir(), "enc.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ctx := context.Background()
	msg := testMessage("m1", "c1", time.Now().UTC())
	msg.Body = "very private"
	require.NoError(t, db.SaveMessage(ctx, msg))

	// Round-trips through the store API.
	got, err := db.GetMessageByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "very private", got.Body)

	// The raw column does not contain the plaintext.
	raw, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	var stored string
	require.NoError(t, raw.QueryRow(`SELECT body FROM messages WHERE id = ?`, "m1").Scan(&stored))
	assert.NotEqual(t, "very private", stored)
	assert.NotContains(t, stored, "private")
}

func TestEncryptor_PassthroughWithoutSecret(t *testing.T) {
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "")

	enc, err := newEncryptor()
	require.NoError(t, err)

	out, err := enc.Encrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", out)

	back, err := enc.Decrypt("plain")
	require.NoError(t, err)
	assert.Equal(t, "plain", back)
}

func TestEncryptor_RoundTrip(t *testing.T) {
	t.Setenv("CHATSYNC_ENCRYPTION_SECRET", "round-trip-secret")

	enc, err := newEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.Encrypt("hello")
	require.NoError(t, err)
	assert.NotEqual(t, "hello", ciphertext)

	plaintext, err := enc.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)

	_, err = enc.Decrypt("not base64 and too short")
	assert.Error(t, err)
}
