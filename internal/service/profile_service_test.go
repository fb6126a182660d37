package service

import (
	"context"
	"testing"
	"time"

	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProfileService(repo *fakeProfileRepo, pub *fakePublisher) *profileService {
	log := logger.NewNopLogger()
	svc := NewProfileService(repo, pub, NewAnalyticsService(pub, log), log).(*profileService)
	svc.now = func() time.Time { return time.Date(2026, time.October, 16, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateProfile(t *testing.T) {
	repo := newFakeProfileRepo()
	pub := &fakePublisher{}
	svc := newProfileService(repo, pub)
	user := &entity.User{Id: uuid.New(), Email: "luna@example.com"}

	var marked uuid.UUID
	profile, err := svc.Create(context.Background(), user, "client-1", &dto.ProfileRequest{
		Name:        "  Luna ",
		DateOfBirth: "1990-10-20",
	}, markerFunc(func(id uuid.UUID) { marked = id }))

	require.NoError(t, err)
	assert.Equal(t, "Luna", profile.Name)
	assert.Equal(t, "luna@example.com", profile.Email)
	assert.Equal(t, DefaultLanguage, profile.Language)
	assert.Equal(t, "America/Mexico_City", profile.Timezone)
	require.NotNil(t, profile.DateOfBirth)
	assert.Equal(t, user.Id, marked)
	assert.Equal(t, []string{events.TypeAuthProfileDone, events.TypeAnalyticsProfileFilled}, pub.types())
}

func TestCreateProfile_Twice(t *testing.T) {
	uid := uuid.New()
	repo := newFakeProfileRepo(entity.Profile{Id: uid, Name: "Sol"})
	svc := newProfileService(repo, &fakePublisher{})

	_, err := svc.Create(context.Background(), &entity.User{Id: uid}, "c", &dto.ProfileRequest{Name: "Sol"}, nil)

	assert.ErrorIs(t, err, ErrProfileExists)
	assert.Zero(t, repo.created)
}

func TestCreateProfile_BadDate(t *testing.T) {
	repo := newFakeProfileRepo()
	svc := newProfileService(repo, &fakePublisher{})

	_, err := svc.Create(context.Background(), &entity.User{Id: uuid.New()}, "c", &dto.ProfileRequest{Name: "Sol", DateOfBirth: "20/10/1990"}, nil)

	assert.ErrorIs(t, err, ErrInvalidDateOfBirth)
	assert.Zero(t, repo.created)
}

func TestUpdateProfile(t *testing.T) {
	uid := uuid.New()
	repo := newFakeProfileRepo(entity.Profile{Id: uid, Name: "Sol", Language: "es", Timezone: "UTC"})
	svc := newProfileService(repo, &fakePublisher{})

	profile, err := svc.Update(context.Background(), uid, &dto.ProfileRequest{Name: "Sol Maria", Language: "en"})

	require.NoError(t, err)
	assert.Equal(t, "Sol Maria", profile.Name)
	assert.Equal(t, "en", profile.Language)
	assert.Equal(t, "UTC", profile.Timezone)
	assert.Equal(t, 1, repo.updated)

	_, err = svc.Update(context.Background(), uuid.New(), &dto.ProfileRequest{Name: "x"})
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestPersonalContext(t *testing.T) {
	uid := uuid.New()
	dob := time.Date(1990, time.October, 20, 0, 0, 0, 0, time.UTC)
	repo := newFakeProfileRepo(entity.Profile{Id: uid, Name: "Luna", DateOfBirth: &dob, Timezone: "UTC"})
	svc := newProfileService(repo, &fakePublisher{})

	pc, err := svc.PersonalContext(context.Background(), uid)
	require.NoError(t, err)
	assert.True(t, pc.HasProfile)
	assert.Equal(t, "Buenos días, Luna. Tu cumpleaños está muy cerca (en 4 días)", pc.PersonalizedGreeting())

	anon, err := svc.PersonalContext(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.False(t, anon.HasProfile)

	missing, err := svc.PersonalContext(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, missing.HasProfile)
}
