package authstate

import (
	"context"

	"bottarot-be/internal/entity"
)

// Snapshot is a consistent read of the store at one instant.
type Snapshot struct {
	User              *entity.User
	Initialized       bool
	Loading           bool
	NeedsRegistration bool
	Subscription      *entity.Subscription
	Permissions       *entity.ReadingPermissions

	IsLoggedIn           bool
	IsFullyRegistered    bool
	IsPremiumUser        bool
	CanSeeFuture         bool
	FreeFuturesRemaining int
	QuestionsRemaining   int
	CurrentPlan          string
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Initialized:          s.initialized,
		Loading:              s.inFlight > 0,
		NeedsRegistration:    s.needsRegistrationLocked(),
		IsLoggedIn:           s.user != nil,
		IsFullyRegistered:    s.user != nil && !s.needsRegistrationLocked(),
		IsPremiumUser:        s.subscription.Active(s.now()),
		CanSeeFuture:         s.canSeeFutureLocked(),
		FreeFuturesRemaining: s.freeFuturesLocked(),
		QuestionsRemaining:   s.questionsLocked(),
		CurrentPlan:          s.planLocked(),
	}
	if s.user != nil {
		u := *s.user
		snap.User = &u
	}
	if s.subscription != nil {
		sub := *s.subscription
		snap.Subscription = &sub
	}
	if s.permissions != nil {
		p := *s.permissions
		snap.Permissions = &p
	}
	return snap
}

// Ready is closed once the store has been initialized.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// WaitInitialized blocks until the store is initialized or ctx is done.
func (s *Store) WaitInitialized(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) User() *entity.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

func (s *Store) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

func (s *Store) NeedsRegistration() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.needsRegistrationLocked()
}

func (s *Store) IsFullyRegistered() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && !s.needsRegistrationLocked()
}

func (s *Store) IsPremiumUser() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.subscription.Active(s.now())
}

func (s *Store) CanSeeFuture() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canSeeFutureLocked()
}

func (s *Store) FreeFuturesRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.freeFuturesLocked()
}

func (s *Store) QuestionsRemaining() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.questionsLocked()
}

func (s *Store) CurrentPlan() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.planLocked()
}

// needsRegistration only has meaning while someone is signed in
func (s *Store) needsRegistrationLocked() bool {
	return s.user != nil && s.needsRegistration
}

func (s *Store) canSeeFutureLocked() bool {
	return s.permissions != nil && s.permissions.CanSeeFuture
}

func (s *Store) freeFuturesLocked() int {
	if s.permissions == nil {
		return 0
	}
	return s.permissions.FreeFuturesRemaining
}

func (s *Store) questionsLocked() int {
	if s.subscription == nil {
		return 0
	}
	return s.subscription.QuestionsRemaining
}

func (s *Store) planLocked() string {
	if s.subscription == nil || s.subscription.PlanName == "" {
		return entity.FreePlanName
	}
	return s.subscription.PlanName
}
