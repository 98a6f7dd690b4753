package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"waha-crm/internal/domain"
)

type KnowledgeRepository interface {
	Create(ctx context.Context, entry domain.KnowledgeEntry) error
	Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.KnowledgeEntry, error)
}

type PgKnowledgeRepository struct {
	pool *pgxpool.Pool
}

func NewPgKnowledgeRepository(pool *pgxpool.Pool) *PgKnowledgeRepository {
	return &PgKnowledgeRepository{pool: pool}
}

func (r *PgKnowledgeRepository) Create(ctx context.Context, entry domain.KnowledgeEntry) error {
	const query = `
		INSERT INTO knowledge_entries (id, title, content, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.Title,
		entry.Content,
		entry.Embedding,
		entry.CreatedAt,
	)
	return err
}

// Search devuelve las k entradas más cercanas por distancia coseno.
func (r *PgKnowledgeRepository) Search(ctx context.Context, queryEmbedding pgvector.Vector, k int) ([]domain.KnowledgeEntry, error) {
	if k <= 0 {
		k = 3
	}
	const query = `
		SELECT id, title, content, embedding, created_at
		FROM knowledge_entries
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, queryEmbedding, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.KnowledgeEntry
	for rows.Next() {
		var entry domain.KnowledgeEntry
		err = rows.Scan(
			&entry.ID,
			&entry.Title,
			&entry.Content,
			&entry.Embedding,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}
