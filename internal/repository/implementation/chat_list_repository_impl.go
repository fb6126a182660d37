package implementation

import (
	"context"
	"fmt"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/mapper"
	"bottarot-be/internal/model"
	"bottarot-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatListRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatListRepository(db *gorm.DB) contract.ChatListRepository {
	return &ChatListRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatListRepositoryImpl) List(ctx context.Context, userId uuid.UUID) ([]entity.ChatSummary, error) {
	var rows []*model.ChatSummary
	if err := r.db.WithContext(ctx).
		Raw("SELECT * FROM get_chat_list(?)", userId).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("get_chat_list: %w", err)
	}
	return r.mapper.ChatSummariesToEntities(rows), nil
}

func (r *ChatListRepositoryImpl) Delete(ctx context.Context, chatId, userId uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Exec("SELECT delete_chat(?, ?)", chatId, userId).Error; err != nil {
		return fmt.Errorf("delete_chat: %w", err)
	}
	return nil
}

func (r *ChatListRepositoryImpl) Rename(ctx context.Context, chatId, userId uuid.UUID, title string) error {
	if err := r.db.WithContext(ctx).
		Exec("SELECT update_chat_title(?, ?, ?)", chatId, userId, title).Error; err != nil {
		return fmt.Errorf("update_chat_title: %w", err)
	}
	return nil
}

func (r *ChatListRepositoryImpl) ToggleFavorite(ctx context.Context, chatId, userId uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Exec("SELECT toggle_chat_favorite(?, ?)", chatId, userId).Error; err != nil {
		return fmt.Errorf("toggle_chat_favorite: %w", err)
	}
	return nil
}
