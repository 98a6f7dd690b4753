package domain

import "time"

// Tipos de media soportados en mensajes.
const (
	MediaTypeImage    = "image"
	MediaTypeDocument = "document"
)

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	FromBot        bool      `json:"from_bot"`
	MediaType      string    `json:"media_type,omitempty"`
	MediaURL       string    `json:"media_url,omitempty"`
	MediaFilename  string    `json:"media_filename,omitempty"`
	MediaMimetype  string    `json:"media_mimetype,omitempty"`
	MediaSize      int64     `json:"media_size,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasMedia es verdadero solo para mensajes de imagen o documento.
func (m Message) HasMedia() bool {
	return m.MediaType == MediaTypeImage || m.MediaType == MediaTypeDocument
}
