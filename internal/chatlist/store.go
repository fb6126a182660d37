// Package chatlist keeps a user's saved readings in display order and
// applies edits optimistically, rolling them back when the database refuses.
package chatlist

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"

	"github.com/google/uuid"
)

var ErrNotAuthenticated = errors.New("chatlist: user not authenticated")

// Remote is implemented by the chat list repository.
type Remote interface {
	List(ctx context.Context, userId uuid.UUID) ([]entity.ChatSummary, error)
	Delete(ctx context.Context, chatId, userId uuid.UUID) error
	Rename(ctx context.Context, chatId, userId uuid.UUID, title string) error
	ToggleFavorite(ctx context.Context, chatId, userId uuid.UUID) error
}

type Store struct {
	remote Remote
	logger logger.ILogger

	mu        sync.RWMutex
	items     []entity.ChatSummary
	loading   bool
	observers []Observer
}

func NewStore(remote Remote, log logger.ILogger) *Store {
	return &Store{remote: remote, logger: log}
}

// Items returns a copy of the list in display order.
func (s *Store) Items() []entity.ChatSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) OnTransition(fn Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Fetch replaces the list with the remote one. On failure the current list
// is kept and the error returned.
func (s *Store) Fetch(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	s.setLoading(true)
	defer s.setLoading(false)

	items, err := s.remote.List(ctx, userID)
	if err != nil {
		s.logger.Error("ChatList", "Failed to fetch chat list", map[string]interface{}{"user_id": userID, "error": err})
		return fmt.Errorf("fetch chat list: %w", err)
	}

	sortItems(items)
	s.mu.Lock()
	s.items = items
	s.mu.Unlock()
	return nil
}

// Delete removes the chat right away and puts it back at its old position
// if the database refuses.
func (s *Store) Delete(ctx context.Context, chatID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	removed := s.items[idx]
	s.items = append(s.items[:idx:idx], s.items[idx+1:]...)
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(Mutation{Kind: MutationDelete, ChatID: chatID, State: StatePending}, view)

	if err := s.remote.Delete(ctx, chatID, userID); err != nil {
		s.mu.Lock()
		at := min(idx, len(s.items))
		s.items = append(s.items[:at:at], append([]entity.ChatSummary{removed}, s.items[at:]...)...)
		view := s.viewLocked()
		s.mu.Unlock()
		s.notify(Mutation{Kind: MutationDelete, ChatID: chatID, State: StateRolledBack}, view)

		s.logger.Error("ChatList", "Failed to delete chat", map[string]interface{}{"chat_id": chatID, "error": err})
		return fmt.Errorf("delete chat %s: %w", chatID, err)
	}

	s.commit(MutationDelete, chatID)
	return nil
}

// Rename ignores blank titles without calling the database.
func (s *Store) Rename(ctx context.Context, chatID uuid.UUID, title string, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}
	if strings.TrimSpace(title) == "" {
		return nil
	}

	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	oldTitle := s.items[idx].Title
	s.items[idx].Title = title
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(Mutation{Kind: MutationRename, ChatID: chatID, State: StatePending}, view)

	if err := s.remote.Rename(ctx, chatID, userID, title); err != nil {
		s.mu.Lock()
		if i := s.indexLocked(chatID); i >= 0 {
			s.items[i].Title = oldTitle
		}
		view := s.viewLocked()
		s.mu.Unlock()
		s.notify(Mutation{Kind: MutationRename, ChatID: chatID, State: StateRolledBack}, view)

		s.logger.Error("ChatList", "Failed to rename chat", map[string]interface{}{"chat_id": chatID, "error": err})
		return fmt.Errorf("rename chat %s: %w", chatID, err)
	}

	s.commit(MutationRename, chatID)
	return nil
}

// ToggleFavorite flips the flag and re-sorts; a refused toggle flips it back
// and re-sorts again.
func (s *Store) ToggleFavorite(ctx context.Context, chatID, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	s.mu.Lock()
	idx := s.indexLocked(chatID)
	if idx < 0 {
		s.mu.Unlock()
		return nil
	}
	oldFavorite := s.items[idx].IsFavorite
	s.items[idx].IsFavorite = !oldFavorite
	sortItems(s.items)
	view := s.viewLocked()
	s.mu.Unlock()
	s.notify(Mutation{Kind: MutationFavorite, ChatID: chatID, State: StatePending}, view)

	if err := s.remote.ToggleFavorite(ctx, chatID, userID); err != nil {
		s.mu.Lock()
		if i := s.indexLocked(chatID); i >= 0 {
			s.items[i].IsFavorite = oldFavorite
			sortItems(s.items)
		}
		view := s.viewLocked()
		s.mu.Unlock()
		s.notify(Mutation{Kind: MutationFavorite, ChatID: chatID, State: StateRolledBack}, view)

		s.logger.Error("ChatList", "Failed to toggle favorite", map[string]interface{}{"chat_id": chatID, "error": err})
		return fmt.Errorf("toggle favorite %s: %w", chatID, err)
	}

	s.commit(MutationFavorite, chatID)
	return nil
}

// Clear forgets the list, e.g. after sign-out.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

type listView struct {
	items     []entity.ChatSummary
	observers []Observer
}

func (s *Store) viewLocked() listView {
	return listView{items: s.copyLocked(), observers: s.observers}
}

func (s *Store) commit(kind MutationKind, chatID uuid.UUID) {
	s.mu.RLock()
	view := s.viewLocked()
	s.mu.RUnlock()
	s.notify(Mutation{Kind: kind, ChatID: chatID, State: StateCommitted}, view)
}

// notify runs outside the lock so observers may read the store.
func (s *Store) notify(m Mutation, view listView) {
	for _, fn := range view.observers {
		fn(m, view.items)
	}
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) indexLocked(chatID uuid.UUID) int {
	for i := range s.items {
		if s.items[i].Id == chatID {
			return i
		}
	}
	return -1
}

func (s *Store) copyLocked() []entity.ChatSummary {
	out := make([]entity.ChatSummary, len(s.items))
	copy(out, s.items)
	return out
}

// favorites first, newest first within each group
func sortItems(items []entity.ChatSummary) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].IsFavorite != items[j].IsFavorite {
			return items[i].IsFavorite
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
