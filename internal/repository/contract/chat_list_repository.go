package contract

import (
	"context"

	"bottarot-be/internal/entity"

	"github.com/google/uuid"
)

// ChatListRepository talks to the chat RPC functions exposed by the database.
type ChatListRepository interface {
	List(ctx context.Context, userId uuid.UUID) ([]entity.ChatSummary, error)
	Delete(ctx context.Context, chatId, userId uuid.UUID) error
	Rename(ctx context.Context, chatId, userId uuid.UUID, title string) error
	ToggleFavorite(ctx context.Context, chatId, userId uuid.UUID) error
}
