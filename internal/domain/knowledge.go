package domain

import (
	"time"

	pgvector "github.com/pgvector/pgvector-go"
)

// KnowledgeEntry es una entrada de la base de conocimiento usada por el
// autoresponder para armar contexto.
type KnowledgeEntry struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Embedding pgvector.Vector `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}
