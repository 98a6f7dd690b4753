package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waha-crm/internal/domain"
)

type ConversationRepository interface {
	Create(ctx context.Context, conv domain.Conversation) error
	GetByID(ctx context.Context, id string) (domain.Conversation, error)
	GetOpenByLeadID(ctx context.Context, leadID string) (domain.Conversation, error)
	List(ctx context.Context) ([]domain.Conversation, error)
	UpdateFlow(ctx context.Context, id, status, menu string, step int) error
	TouchActivity(ctx context.Context, id string, at time.Time) error
	Close(ctx context.Context, id string, at time.Time) error
	CountStartedOn(ctx context.Context, day time.Time) (int, error)
}

type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, conv domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, lead_id, protocol, status, current_menu, current_step, started_at, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		conv.ID,
		conv.LeadID,
		conv.Protocol,
		conv.Status,
		conv.CurrentMenu,
		conv.CurrentStep,
		conv.StartedAt,
		conv.LastActivityAt,
	)
	return err
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	const query = `
		SELECT id, lead_id, protocol, status, current_menu, current_step, started_at, ended_at, last_activity_at
		FROM conversations
		WHERE id = $1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

// GetOpenByLeadID devuelve la conversación no cerrada más reciente del lead.
func (r *PgConversationRepository) GetOpenByLeadID(ctx context.Context, leadID string) (domain.Conversation, error) {
	const query = `
		SELECT id, lead_id, protocol, status, current_menu, current_step, started_at, ended_at, last_activity_at
		FROM conversations
		WHERE lead_id = $1 AND status <> 'closed'
		ORDER BY started_at DESC
		LIMIT 1
	`
	return r.scanOne(r.pool.QueryRow(ctx, query, leadID))
}

// List devuelve todas las conversaciones con su lead, ordenadas por actividad.
func (r *PgConversationRepository) List(ctx context.Context) ([]domain.Conversation, error) {
	const query = `
		SELECT c.id, c.lead_id, c.protocol, c.status, c.current_menu, c.current_step,
		       c.started_at, c.ended_at, c.last_activity_at,
		       l.id, l.name, l.phone, l.created_at, l.updated_at
		FROM conversations c
		JOIN leads l ON l.id = c.lead_id
		ORDER BY c.last_activity_at DESC
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		var lead domain.Lead
		var menu *string
		var endedAt *time.Time

		err = rows.Scan(
			&conv.ID,
			&conv.LeadID,
			&conv.Protocol,
			&conv.Status,
			&menu,
			&conv.CurrentStep,
			&conv.StartedAt,
			&endedAt,
			&conv.LastActivityAt,
			&lead.ID,
			&lead.Name,
			&lead.Phone,
			&lead.CreatedAt,
			&lead.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if menu != nil {
			conv.CurrentMenu = *menu
		}
		conv.EndedAt = endedAt
		conv.Lead = &lead
		conversations = append(conversations, conv)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *PgConversationRepository) UpdateFlow(ctx context.Context, id, status, menu string, step int) error {
	const query = `
		UPDATE conversations
		SET status = $2, current_menu = $3, current_step = $4
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, status, menu, step)
	return err
}

func (r *PgConversationRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE conversations
		SET last_activity_at = $2
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgConversationRepository) Close(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE conversations
		SET status = 'closed', ended_at = $2, last_activity_at = $2
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

// CountStartedOn cuenta conversaciones iniciadas en el día dado; alimenta el
// secuencial del protocolo.
func (r *PgConversationRepository) CountStartedOn(ctx context.Context, day time.Time) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM conversations
		WHERE started_at >= $1 AND started_at < $2
	`
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	var count int
	err := r.pool.QueryRow(ctx, query, start, end).Scan(&count)
	return count, err
}

func (r *PgConversationRepository) scanOne(row pgx.Row) (domain.Conversation, error) {
	var conv domain.Conversation
	var menu *string
	var endedAt *time.Time

	err := row.Scan(
		&conv.ID,
		&conv.LeadID,
		&conv.Protocol,
		&conv.Status,
		&menu,
		&conv.CurrentStep,
		&conv.StartedAt,
		&endedAt,
		&conv.LastActivityAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, err
	}
	if err != nil {
		return domain.Conversation{}, err
	}
	if menu != nil {
		conv.CurrentMenu = *menu
	}
	conv.EndedAt = endedAt
	return conv, nil
}
