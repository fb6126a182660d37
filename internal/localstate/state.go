// Package localstate is the per-client key/value namespace that stands in
// for the browser's localStorage: preferred language, the anonymous reading
// id, the last time the Permission API answered and the last geolocation fix.
package localstate

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"

	"github.com/google/uuid"
)

const (
	KeyLanguage           = "language"
	KeyAnonymousSessionID = "anonymous_session_id"
	KeyLastServerActivity = "last_server_activity"
	KeyGeolocation        = "geolocation"
)

var allKeys = []string{KeyLanguage, KeyAnonymousSessionID, KeyLastServerActivity, KeyGeolocation}

type State struct {
	backend  Backend
	clientID string
	logger   logger.ILogger
}

func New(backend Backend, clientID string, log logger.ILogger) *State {
	return &State{backend: backend, clientID: clientID, logger: log}
}

func (s *State) key(name string) string {
	return "local:" + s.clientID + ":" + name
}

// get treats backend failures as a missing value; callers fall back to defaults.
func (s *State) get(ctx context.Context, name string) (string, bool) {
	val, ok, err := s.backend.Get(ctx, s.key(name))
	if err != nil {
		s.logger.Warn("LocalState", "Read failed", map[string]interface{}{"key": name, "client_id": s.clientID, "error": err.Error()})
		return "", false
	}
	return val, ok
}

func (s *State) Language(ctx context.Context) (string, bool) {
	return s.get(ctx, KeyLanguage)
}

func (s *State) SetLanguage(ctx context.Context, lang string) error {
	return s.backend.Set(ctx, s.key(KeyLanguage), lang)
}

// AnonymousSessionID returns the id that groups an anonymous visitor's
// readings, creating it on first use.
func (s *State) AnonymousSessionID(ctx context.Context) (string, error) {
	if id, ok := s.get(ctx, KeyAnonymousSessionID); ok && id != "" {
		return id, nil
	}
	id := uuid.NewString()
	if err := s.backend.Set(ctx, s.key(KeyAnonymousSessionID), id); err != nil {
		return "", fmt.Errorf("store anonymous session id: %w", err)
	}
	return id, nil
}

func (s *State) LastServerContact(ctx context.Context) (time.Time, bool) {
	raw, ok := s.get(ctx, KeyLastServerActivity)
	if !ok {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (s *State) TouchServerContact(ctx context.Context, at time.Time) error {
	return s.backend.Set(ctx, s.key(KeyLastServerActivity), strconv.FormatInt(at.UnixMilli(), 10))
}

func (s *State) Geolocation(ctx context.Context) (*entity.GeoFix, bool) {
	raw, ok := s.get(ctx, KeyGeolocation)
	if !ok {
		return nil, false
	}
	var fix entity.GeoFix
	if err := json.Unmarshal([]byte(raw), &fix); err != nil {
		s.logger.Warn("LocalState", "Discarding unreadable geolocation", map[string]interface{}{"client_id": s.clientID, "error": err.Error()})
		return nil, false
	}
	return &fix, true
}

func (s *State) SetGeolocation(ctx context.Context, fix entity.GeoFix) error {
	payload, err := json.Marshal(fix)
	if err != nil {
		return fmt.Errorf("marshal geolocation: %w", err)
	}
	return s.backend.Set(ctx, s.key(KeyGeolocation), string(payload))
}

// Clear wipes every persisted key of this client.
func (s *State) Clear(ctx context.Context) error {
	keys := make([]string, len(allKeys))
	for i, k := range allKeys {
		keys[i] = s.key(k)
	}
	return s.backend.Delete(ctx, keys...)
}
