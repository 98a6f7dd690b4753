package http

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"waha-crm/internal/domain"
)

type mockLeadRepo struct {
	byID    map[string]domain.Lead
	byPhone map[string]string
}

func newMockLeadRepo() *mockLeadRepo {
	return &mockLeadRepo{
		byID:    make(map[string]domain.Lead),
		byPhone: make(map[string]string),
	}
}

func (m *mockLeadRepo) UpsertByPhone(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	if id, ok := m.byPhone[lead.Phone]; ok {
		existing := m.byID[id]
		if lead.Name != "" {
			existing.Name = lead.Name
		}
		m.byID[id] = existing
		return existing, nil
	}
	m.byID[lead.ID] = lead
	m.byPhone[lead.Phone] = lead.ID
	return lead, nil
}

func (m *mockLeadRepo) GetByID(_ context.Context, id string) (domain.Lead, error) {
	lead, ok := m.byID[id]
	if !ok {
		return domain.Lead{}, pgx.ErrNoRows
	}
	return lead, nil
}

func (m *mockLeadRepo) GetByPhone(_ context.Context, phone string) (domain.Lead, error) {
	id, ok := m.byPhone[phone]
	if !ok {
		return domain.Lead{}, pgx.ErrNoRows
	}
	return m.GetByID(context.Background(), id)
}

type mockConversationRepo struct {
	byID map[string]domain.Conversation
}

func newMockConversationRepo() *mockConversationRepo {
	return &mockConversationRepo{byID: make(map[string]domain.Conversation)}
}

func (m *mockConversationRepo) Create(_ context.Context, conv domain.Conversation) error {
	m.byID[conv.ID] = conv
	return nil
}

func (m *mockConversationRepo) GetByID(_ context.Context, id string) (domain.Conversation, error) {
	conv, ok := m.byID[id]
	if !ok {
		return domain.Conversation{}, pgx.ErrNoRows
	}
	return conv, nil
}

func (m *mockConversationRepo) GetOpenByLeadID(_ context.Context, leadID string) (domain.Conversation, error) {
	for _, conv := range m.byID {
		if conv.LeadID == leadID && conv.Status != domain.ConversationStatusClosed {
			return conv, nil
		}
	}
	return domain.Conversation{}, pgx.ErrNoRows
}

func (m *mockConversationRepo) List(_ context.Context) ([]domain.Conversation, error) {
	out := make([]domain.Conversation, 0, len(m.byID))
	for _, conv := range m.byID {
		out = append(out, conv)
	}
	return out, nil
}

func (m *mockConversationRepo) UpdateFlow(_ context.Context, id, status, menu string, step int) error {
	conv, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.Status = status
	conv.CurrentMenu = menu
	conv.CurrentStep = step
	m.byID[id] = conv
	return nil
}

func (m *mockConversationRepo) TouchActivity(_ context.Context, id string, at time.Time) error {
	conv, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.LastActivityAt = at
	m.byID[id] = conv
	return nil
}

func (m *mockConversationRepo) Close(_ context.Context, id string, at time.Time) error {
	conv, ok := m.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	conv.Status = domain.ConversationStatusClosed
	conv.EndedAt = &at
	m.byID[id] = conv
	return nil
}

func (m *mockConversationRepo) CountStartedOn(_ context.Context, _ time.Time) (int, error) {
	return len(m.byID), nil
}

type mockMessageRepo struct {
	messages []domain.Message
}

func (m *mockMessageRepo) Create(_ context.Context, message domain.Message) error {
	m.messages = append(m.messages, message)
	return nil
}

func (m *mockMessageRepo) ListByConversationID(_ context.Context, conversationID string) ([]domain.Message, error) {
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) ListRecent(ctx context.Context, conversationID string, limit int) ([]domain.Message, error) {
	all, err := m.ListByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
