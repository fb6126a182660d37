package mapper

import (
	"time"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/model"

	"gorm.io/datatypes"
)

type ProfileMapper struct{}

func NewProfileMapper() *ProfileMapper {
	return &ProfileMapper{}
}

func (m *ProfileMapper) ToEntity(p *model.Profile) *entity.Profile {
	if p == nil {
		return nil
	}

	var dob *time.Time
	if p.DateOfBirth != nil {
		t := time.Time(*p.DateOfBirth)
		dob = &t
	}

	return &entity.Profile{
		Id:          p.Id,
		Email:       p.Email,
		Name:        p.Name,
		Gender:      p.Gender,
		DateOfBirth: dob,
		Timezone:    p.Timezone,
		Language:    p.Language,
		CreatedAt:   p.CreatedAt,
	}
}

func (m *ProfileMapper) ToModel(p *entity.Profile) *model.Profile {
	if p == nil {
		return nil
	}

	var dob *datatypes.Date
	if p.DateOfBirth != nil {
		d := datatypes.Date(*p.DateOfBirth)
		dob = &d
	}

	return &model.Profile{
		Id:          p.Id,
		Email:       p.Email,
		Name:        p.Name,
		Gender:      p.Gender,
		DateOfBirth: dob,
		Timezone:    p.Timezone,
		Language:    p.Language,
		CreatedAt:   p.CreatedAt,
	}
}
