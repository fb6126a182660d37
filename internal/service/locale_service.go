package service

import (
	"context"
	"errors"
	"strings"

	"bottarot-be/internal/pkg/logger"
	"bottarot-be/internal/repository/contract"
	"bottarot-be/internal/repository/specification"
	"bottarot-be/pkg/events"

	"github.com/google/uuid"
)

const DefaultLanguage = "es"

var SupportedLanguages = []string{"es", "en", "it", "pt", "fr"}

var ErrUnsupportedLanguage = errors.New("unsupported language")

func IsSupportedLanguage(lang string) bool {
	for _, l := range SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// LanguageStore is where the chosen language is remembered for a client.
type LanguageStore interface {
	Language(ctx context.Context) (string, bool)
	SetLanguage(ctx context.Context, lang string) error
}

type ILocaleService interface {
	Resolve(ctx context.Context, store LanguageStore, userID uuid.UUID, acceptLanguage string) string
	Change(ctx context.Context, store LanguageStore, userID uuid.UUID, clientID, lang string) error
}

type localeService struct {
	profiles  contract.ProfileRepository
	analytics IAnalyticsService
	logger    logger.ILogger
}

func NewLocaleService(profiles contract.ProfileRepository, analytics IAnalyticsService, log logger.ILogger) ILocaleService {
	return &localeService{profiles: profiles, analytics: analytics, logger: log}
}

// Resolve picks the language for a client: the saved choice, then the
// signed-in user's profile language, then the browser's Accept-Language.
// Anything found after the first step is saved for next time.
func (s *localeService) Resolve(ctx context.Context, store LanguageStore, userID uuid.UUID, acceptLanguage string) string {
	if saved, ok := store.Language(ctx); ok && IsSupportedLanguage(saved) {
		return saved
	}

	if userID != uuid.Nil {
		profile, err := s.profiles.FindOne(ctx,
			specification.ByID{ID: userID},
			specification.Columns{Names: []string{"id", "language"}},
		)
		if err != nil {
			s.logger.Warn("LocaleService", "Failed to load profile language", map[string]interface{}{"user_id": userID, "error": err.Error()})
		} else if profile != nil && IsSupportedLanguage(profile.Language) {
			s.remember(ctx, store, profile.Language)
			return profile.Language
		}
	}

	if lang := BrowserLanguage(acceptLanguage); lang != "" {
		s.remember(ctx, store, lang)
		return lang
	}
	return DefaultLanguage
}

func (s *localeService) Change(ctx context.Context, store LanguageStore, userID uuid.UUID, clientID, lang string) error {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if !IsSupportedLanguage(lang) {
		return ErrUnsupportedLanguage
	}
	previous, _ := store.Language(ctx)
	if err := store.SetLanguage(ctx, lang); err != nil {
		return err
	}
	s.analytics.Track(ctx, events.TypeAnalyticsLanguage, userID, clientID, map[string]interface{}{
		"from_language": previous,
		"to_language":   lang,
	})
	return nil
}

func (s *localeService) remember(ctx context.Context, store LanguageStore, lang string) {
	if err := store.SetLanguage(ctx, lang); err != nil {
		s.logger.Warn("LocaleService", "Failed to save language", map[string]interface{}{"language": lang, "error": err.Error()})
	}
}

// BrowserLanguage returns the first supported base language listed in an
// Accept-Language header, in header order.
func BrowserLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if i := strings.IndexByte(tag, ';'); i >= 0 {
			tag = tag[:i]
		}
		if i := strings.IndexByte(tag, '-'); i >= 0 {
			tag = tag[:i]
		}
		code := strings.ToLower(strings.TrimSpace(tag))
		if IsSupportedLanguage(code) {
			return code
		}
	}
	return ""
}
