package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/repository/contract"
	"bottarot-be/internal/repository/specification"
	"bottarot-be/pkg/events"
	"bottarot-be/pkg/personal"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

var (
	ErrProfileNotFound    = errors.New("profile not found")
	ErrProfileExists      = errors.New("profile already exists")
	ErrInvalidDateOfBirth = errors.New("invalid date of birth")
)

// RegistrationMarker is told when the signed-in user finished their profile.
type RegistrationMarker interface {
	MarkRegistered(userID uuid.UUID)
}

type IProfileService interface {
	Get(ctx context.Context, userID uuid.UUID) (*entity.Profile, error)
	Create(ctx context.Context, user *entity.User, clientID string, req *dto.ProfileRequest, marker RegistrationMarker) (*entity.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, req *dto.ProfileRequest) (*entity.Profile, error)
	PersonalContext(ctx context.Context, userID uuid.UUID) (personal.Context, error)
}

type profileService struct {
	repo      contract.ProfileRepository
	publisher EventPublisher
	analytics IAnalyticsService
	logger    logger.ILogger
	now       func() time.Time
}

func NewProfileService(repo contract.ProfileRepository, publisher EventPublisher, analytics IAnalyticsService, log logger.ILogger) IProfileService {
	return &profileService{
		repo:      repo,
		publisher: publisher,
		analytics: analytics,
		logger:    log,
		now:       time.Now,
	}
}

func (s *profileService) Get(ctx context.Context, userID uuid.UUID) (*entity.Profile, error) {
	profile, err := s.repo.FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return nil, fmt.Errorf("find profile: %w", err)
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

// Create stores the first profile of user, which completes their registration.
func (s *profileService) Create(ctx context.Context, user *entity.User, clientID string, req *dto.ProfileRequest, marker RegistrationMarker) (*entity.Profile, error) {
	exists, err := s.repo.Exists(ctx, user.Id)
	if err != nil {
		return nil, fmt.Errorf("check profile: %w", err)
	}
	if exists {
		return nil, ErrProfileExists
	}

	profile := &entity.Profile{Id: user.Id, Email: user.Email}
	if err := applyProfileRequest(profile, req); err != nil {
		return nil, err
	}
	if profile.Language == "" {
		profile.Language = DefaultLanguage
	}
	if profile.Timezone == "" {
		profile.Timezone = personal.DefaultTimezone
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}

	if marker != nil {
		marker.MarkRegistered(user.Id)
	}
	s.announce(ctx, user.Id, clientID)
	s.analytics.Track(ctx, events.TypeAnalyticsProfileFilled, user.Id, clientID, map[string]interface{}{
		"fields": strings.Join(filledFields(profile), ", "),
	})

	s.logger.Info("ProfileService", "Profile completed", map[string]interface{}{"user_id": user.Id})
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, userID uuid.UUID, req *dto.ProfileRequest) (*entity.Profile, error) {
	profile, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := applyProfileRequest(profile, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return profile, nil
}

// PersonalContext never fails on a missing profile; the anonymous context is
// returned instead.
func (s *profileService) PersonalContext(ctx context.Context, userID uuid.UUID) (personal.Context, error) {
	if userID == uuid.Nil {
		return personal.Build(nil, s.now()), nil
	}
	profile, err := s.repo.FindOne(ctx, specification.ByID{ID: userID})
	if err != nil {
		return personal.Context{}, fmt.Errorf("find profile: %w", err)
	}
	pc := personal.Build(profile, s.now())
	s.logger.Debug("ProfileService", "Personal context built", map[string]interface{}{"summary": pc.Summary()})
	return pc, nil
}

// announce lets the user's other tabs drop their registration prompt.
func (s *profileService) announce(ctx context.Context, userID uuid.UUID, clientID string) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsPublishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, events.NewUserEvent(events.TypeAuthProfileDone, userID, clientID, nil)); err != nil {
		s.logger.Warn("ProfileService", "Failed to publish profile completion", map[string]interface{}{"user_id": userID, "error": err.Error()})
	}
}

func applyProfileRequest(profile *entity.Profile, req *dto.ProfileRequest) error {
	profile.Name = strings.TrimSpace(req.Name)
	profile.Gender = req.Gender
	if req.Timezone != "" {
		profile.Timezone = req.Timezone
	}
	if req.Language != "" {
		profile.Language = req.Language
	}
	profile.DateOfBirth = nil
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			return ErrInvalidDateOfBirth
		}
		profile.DateOfBirth = &dob
	}
	return nil
}

func filledFields(p *entity.Profile) []string {
	fields := []string{"name"}
	if p.Gender != "" {
		fields = append(fields, "gender")
	}
	if p.DateOfBirth != nil {
		fields = append(fields, "date_of_birth")
	}
	if p.Timezone != "" {
		fields = append(fields, "timezone")
	}
	if p.Language != "" {
		fields = append(fields, "language")
	}
	return fields
}
