package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"waha-crm/internal/domain"
)

type LeadRepository interface {
	UpsertByPhone(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetByID(ctx context.Context, id string) (domain.Lead, error)
	GetByPhone(ctx context.Context, phone string) (domain.Lead, error)
}

type PgLeadRepository struct {
	pool *pgxpool.Pool
}

func NewPgLeadRepository(pool *pgxpool.Pool) *PgLeadRepository {
	return &PgLeadRepository{pool: pool}
}

// UpsertByPhone crea el lead si el teléfono no existe; si existe, actualiza
// el nombre solo cuando llega uno no vacío.
func (r *PgLeadRepository) UpsertByPhone(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	const query = `
		INSERT INTO leads (id, name, phone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO UPDATE
		SET name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE leads.name END,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, name, phone, created_at, updated_at
	`
	var out domain.Lead
	err := r.pool.QueryRow(ctx, query,
		lead.ID,
		lead.Name,
		lead.Phone,
		lead.CreatedAt,
		lead.UpdatedAt,
	).Scan(&out.ID, &out.Name, &out.Phone, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func (r *PgLeadRepository) GetByID(ctx context.Context, id string) (domain.Lead, error) {
	const query = `
		SELECT id, name, phone, created_at, updated_at
		FROM leads
		WHERE id = $1
	`
	var lead domain.Lead
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, err
	}
	return lead, err
}

func (r *PgLeadRepository) GetByPhone(ctx context.Context, phone string) (domain.Lead, error) {
	const query = `
		SELECT id, name, phone, created_at, updated_at
		FROM leads
		WHERE phone = $1
	`
	var lead domain.Lead
	err := r.pool.QueryRow(ctx, query, phone).Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, err
	}
	return lead, err
}
