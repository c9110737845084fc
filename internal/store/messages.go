package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"channelchat-backend/internal/apperr"
	"channelchat-backend/internal/models"
	"channelchat-backend/internal/snowflake"
)

// MessageStore is the durable home of messages. Create assigns the id and
// both timestamps; everything else round-trips what Create persisted.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, draft models.Message) (models.Message, error) {
	id, err := snowflake.Generate()
	if err != nil {
		return models.Message{}, err
	}

	// created_at comes from the id's own timestamp, so ordering by
	// (created_at, id) can never disagree with the id order
	now := time.UnixMilli(snowflake.ExtractTimestamp(id)).UTC()
	draft.ID = id
	draft.CreatedAt = now
	draft.UpdatedAt = now

	var content, fileKey, fileContentType, fileName sql.NullString
	if draft.File != nil {
		fileKey = sql.NullString{String: draft.File.Key, Valid: true}
		fileContentType = sql.NullString{String: draft.File.ContentType, Valid: true}
		fileName = sql.NullString{String: draft.File.FileName, Valid: true}
	} else {
		content = sql.NullString{String: draft.Content, Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO messages VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		draft.ID, draft.ChannelID, draft.AuthorID, draft.Type,
		content, fileKey, fileContentType, fileName,
		draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return models.Message{}, err
	}

	return draft, nil
}

func (s *MessageStore) Get(ctx context.Context, id int64) (models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, channel_id, author_id, msg_type, content, file_key, file_content_type, file_name, created_at, updated_at FROM messages WHERE id = ?",
		id)

	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, apperr.NotFound("message %d", id)
	}
	return msg, err
}

// ListByChannel returns the channel's messages ordered by (created_at, id)
// descending, id breaking timestamp ties.
func (s *MessageStore) ListByChannel(ctx context.Context, channelID int64, limit, offset int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, channel_id, author_id, msg_type, content, file_key, file_content_type, file_name, created_at, updated_at FROM messages WHERE channel_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		channelID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

func (s *MessageStore) ListByAuthorInChannel(ctx context.Context, channelID, authorID int64, limit, offset int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, channel_id, author_id, msg_type, content, file_key, file_content_type, file_name, created_at, updated_at FROM messages WHERE channel_id = ? AND author_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		channelID, authorID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectMessages(rows)
}

// UpdateContent rewrites a text message's content and bumps updated_at.
// Author and type checks belong to the caller.
func (s *MessageStore) UpdateContent(ctx context.Context, id int64, content string) (models.Message, error) {
	_, err := s.db.ExecContext(ctx,
		"UPDATE messages SET content = ?, updated_at = ? WHERE id = ?",
		content, time.Now().UTC(), id)
	if err != nil {
		return models.Message{}, err
	}
	return s.Get(ctx, id)
}

func (s *MessageStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", id)
	return err
}

// DeleteByChannel clears a channel's history; reserved to the channel owner.
func (s *MessageStore) DeleteByChannel(ctx context.Context, channelID int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE channel_id = ?", channelID)
	return err
}

func (s *MessageStore) ChannelExists(ctx context.Context, channelID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM channels WHERE id = ?)", channelID).Scan(&exists)
	return exists, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (models.Message, error) {
	var msg models.Message
	var content, fileKey, fileContentType, fileName sql.NullString

	err := row.Scan(&msg.ID, &msg.ChannelID, &msg.AuthorID, &msg.Type,
		&content, &fileKey, &fileContentType, &fileName,
		&msg.CreatedAt, &msg.UpdatedAt)
	if err != nil {
		return models.Message{}, err
	}

	msg.Content = content.String
	if fileKey.Valid {
		msg.File = &models.FileDescriptor{
			Key:         fileKey.String,
			ContentType: fileContentType.String,
			FileName:    fileName.String,
		}
	}
	return msg, nil
}

func collectMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
