package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID filters by ID
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// Columns limits the selected columns
type Columns struct {
	Names []string
}

func (s Columns) Apply(db *gorm.DB) *gorm.DB {
	return db.Select(s.Names)
}
