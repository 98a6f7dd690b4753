package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waha-crm/internal/domain"
)

type MessageRepository interface {
	Create(ctx context.Context, message domain.Message) error
	ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
	ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error)
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

func (r *PgMessageRepository) Create(ctx context.Context, message domain.Message) error {
	const query = `
		INSERT INTO messages (id, conversation_id, content, from_bot, media_type, media_url, media_filename, media_mimetype, media_size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var mediaType, mediaURL, mediaFilename, mediaMimetype, mediaSize interface{}
	if message.HasMedia() {
		mediaType = message.MediaType
		mediaURL = message.MediaURL
		mediaFilename = message.MediaFilename
		mediaMimetype = message.MediaMimetype
		mediaSize = message.MediaSize
	}

	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.ConversationID,
		message.Content,
		message.FromBot,
		mediaType,
		mediaURL,
		mediaFilename,
		mediaMimetype,
		mediaSize,
		message.CreatedAt,
	)
	return err
}

func (r *PgMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, content, from_bot, media_type, media_url, media_filename, media_mimetype, media_size, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// ListRecent devuelve los últimos N mensajes en orden cronológico; alimenta el
// contexto del autoresponder.
func (r *PgMessageRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}
	const query = `
		SELECT id, conversation_id, content, from_bot, media_type, media_url, media_filename, media_mimetype, media_size, created_at
		FROM (
			SELECT id, conversation_id, content, from_bot, media_type, media_url, media_filename, media_mimetype, media_size, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`
	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows pgx.Rows) ([]domain.Message, error) {
	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var mediaType, mediaURL, mediaFilename, mediaMimetype *string
		var mediaSize *int64

		err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Content,
			&msg.FromBot,
			&mediaType,
			&mediaURL,
			&mediaFilename,
			&mediaMimetype,
			&mediaSize,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if mediaType != nil {
			msg.MediaType = *mediaType
		}
		if mediaURL != nil {
			msg.MediaURL = *mediaURL
		}
		if mediaFilename != nil {
			msg.MediaFilename = *mediaFilename
		}
		if mediaMimetype != nil {
			msg.MediaMimetype = *mediaMimetype
		}
		if mediaSize != nil {
			msg.MediaSize = *mediaSize
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
