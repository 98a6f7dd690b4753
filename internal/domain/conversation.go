package domain

import "time"

// Estados posibles de una conversación.
const (
	ConversationStatusMenu    = "menu"
	ConversationStatusAI      = "ai"
	ConversationStatusWaiting = "waiting"
	ConversationStatusActive  = "active"
	ConversationStatusClosed  = "closed"
)

type Conversation struct {
	ID             string     `json:"id"`
	LeadID         string     `json:"lead_id"`
	Protocol       string     `json:"protocol"`
	Status         string     `json:"status"`
	CurrentMenu    string     `json:"current_menu,omitempty"`
	CurrentStep    int        `json:"current_step"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	LastActivityAt time.Time  `json:"last_activity_at"`

	// Lead embebido en listados; nil cuando no se hizo join.
	Lead *Lead `json:"lead,omitempty"`
}

// Open indica si la conversación sigue aceptando mensajes.
func (c Conversation) Open() bool {
	return c.Status != ConversationStatusClosed
}
