package chatlist

import (
	"bottarot-be/internal/entity"

	"github.com/google/uuid"
)

type MutationKind string

const (
	MutationDelete   MutationKind = "delete"
	MutationRename   MutationKind = "rename"
	MutationFavorite MutationKind = "favorite"
)

// MutationState moves Pending -> Committed or Pending -> RolledBack, once.
type MutationState string

const (
	StatePending    MutationState = "pending"
	StateCommitted  MutationState = "committed"
	StateRolledBack MutationState = "rolled_back"
)

type Mutation struct {
	Kind   MutationKind
	ChatID uuid.UUID
	State  MutationState
}

// Observer sees every transition together with the list as it looked right
// after the transition was applied.
type Observer func(m Mutation, items []entity.ChatSummary)
