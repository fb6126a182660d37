package memory

import (
	"time"

	"bottarot-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository is the local credential cache: the auth session (and a
// pending PKCE verifier) held for each client session id.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	// purge expired items every 10 minutes
	c := cache.New(ttl, 10*time.Minute)
	return &SessionRepository{
		cache: c,
	}
}

func sessionKey(clientID string) string  { return "session:" + clientID }
func verifierKey(clientID string) string { return "pkce:" + clientID }

func (r *SessionRepository) Save(clientID string, session *entity.Session) {
	r.cache.Set(sessionKey(clientID), session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(clientID string) (*entity.Session, bool) {
	if x, found := r.cache.Get(sessionKey(clientID)); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(clientID string) {
	r.cache.Delete(sessionKey(clientID))
}

func (r *SessionRepository) SaveVerifier(clientID, verifier string) {
	// an OAuth round trip that takes longer than this is abandoned
	r.cache.Set(verifierKey(clientID), verifier, 10*time.Minute)
}

// TakeVerifier returns the pending PKCE verifier and forgets it.
func (r *SessionRepository) TakeVerifier(clientID string) (string, bool) {
	x, found := r.cache.Get(verifierKey(clientID))
	if !found {
		return "", false
	}
	r.cache.Delete(verifierKey(clientID))
	return x.(string), true
}
