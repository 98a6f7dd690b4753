package service

import (
	"context"
	"strings"

	pgvector "github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"waha-crm/internal/llm"
	"waha-crm/internal/repository"
)

const fallbackReply = "No momento não consegui gerar uma resposta. Um atendente vai falar com você em breve."

const responderBasePrompt = "Você é o assistente virtual de atendimento da empresa. " +
	"Responda em português, de forma curta e cordial, usando apenas as informações " +
	"da base de conhecimento abaixo. Se não souber, ofereça encaminhar para um atendente."

// Autoresponder genera respuestas automáticas con contexto de la base de
// conocimiento y el historial reciente de la conversación.
type Autoresponder struct {
	logger    *zap.Logger
	llmClient llm.Client
	knowledge repository.KnowledgeRepository
	messages  repository.MessageRepository
	history   int
}

func NewAutoresponder(logger *zap.Logger, llmClient llm.Client, knowledge repository.KnowledgeRepository, messages repository.MessageRepository) *Autoresponder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Autoresponder{
		logger:    logger,
		llmClient: llmClient,
		knowledge: knowledge,
		messages:  messages,
		history:   10,
	}
}

// Reply nunca devuelve error: ante cualquier falla cae al texto de respaldo
// para no romper la recepción del mensaje.
func (a *Autoresponder) Reply(ctx context.Context, conversationID, userText string) string {
	system := a.buildSystemPrompt(ctx, userText)
	history := a.buildHistory(ctx, conversationID, userText)

	reply, err := a.llmClient.Generate(ctx, system, history)
	if err != nil {
		a.logger.Warn("autoresponder generate failed",
			zap.Error(err),
			zap.String("conversation_id", conversationID),
		)
		return fallbackReply
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return fallbackReply
	}
	return reply
}

func (a *Autoresponder) buildSystemPrompt(ctx context.Context, userText string) string {
	var b strings.Builder
	b.WriteString(responderBasePrompt)

	entries := a.searchKnowledge(ctx, userText)
	if len(entries) == 0 {
		return b.String()
	}

	b.WriteString("\n\nBase de conhecimento:")
	for _, entry := range entries {
		b.WriteString("\n- ")
		b.WriteString(entry)
	}
	return b.String()
}

// searchKnowledge tolera fallas: sin embedding o sin repo simplemente no hay
// contexto adicional.
func (a *Autoresponder) searchKnowledge(ctx context.Context, userText string) []string {
	if a.knowledge == nil {
		return nil
	}
	embedding, err := a.llmClient.Embed(ctx, userText)
	if err != nil {
		a.logger.Warn("knowledge embed failed", zap.Error(err))
		return nil
	}
	entries, err := a.knowledge.Search(ctx, pgvector.NewVector(embedding), 3)
	if err != nil {
		a.logger.Warn("knowledge search failed", zap.Error(err))
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.Title+": "+entry.Content)
	}
	return out
}

func (a *Autoresponder) buildHistory(ctx context.Context, conversationID, userText string) []llm.ChatMessage {
	recent, err := a.messages.ListRecent(ctx, conversationID, a.history)
	if err != nil {
		a.logger.Warn("history load failed", zap.Error(err))
		return []llm.ChatMessage{{Role: "user", Content: userText}}
	}

	history := make([]llm.ChatMessage, 0, len(recent)+1)
	for _, msg := range recent {
		role := "user"
		if msg.FromBot {
			role = "assistant"
		}
		history = append(history, llm.ChatMessage{Role: role, Content: msg.Content})
	}
	if len(history) == 0 || history[len(history)-1].Content != userText {
		history = append(history, llm.ChatMessage{Role: "user", Content: userText})
	}
	return history
}
