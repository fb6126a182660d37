package contract

import (
	"context"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, profile *entity.Profile) error
	Update(ctx context.Context, profile *entity.Profile) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Profile, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
