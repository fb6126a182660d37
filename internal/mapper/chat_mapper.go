package mapper

import (
	"bottarot-be/internal/entity"
	"bottarot-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSummaryToEntity(s *model.ChatSummary) entity.ChatSummary {
	return entity.ChatSummary{
		Id:         s.Id,
		Title:      s.Title,
		IsFavorite: s.IsFavorite,
		CreatedAt:  s.CreatedAt,
	}
}

func (m *ChatMapper) ChatSummariesToEntities(rows []*model.ChatSummary) []entity.ChatSummary {
	out := make([]entity.ChatSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, m.ChatSummaryToEntity(r))
	}
	return out
}
