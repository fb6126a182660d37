package entity

import "time"

const (
	FreePlanName = "Free"

	DefaultQuestionsRemaining   = 1
	DefaultFreeFuturesRemaining = 1
	DefaultHistoryLimit         = 3
)

type Subscription struct {
	PlanName              string
	HasActiveSubscription bool
	SubscriptionEndDate   *time.Time
	CanAskQuestion        bool
	QuestionsRemaining    int
}

// Active is true only while the subscription flag is set and the end date lies ahead.
func (s *Subscription) Active(now time.Time) bool {
	if s == nil || !s.HasActiveSubscription || s.SubscriptionEndDate == nil {
		return false
	}
	return s.SubscriptionEndDate.After(now)
}

type ReadingPermissions struct {
	IsPremium            bool
	CanReadToday         bool
	CanSeeFuture         bool
	ReadingsToday        int
	FreeFuturesRemaining int
	HistoryLimit         int
	PlanName             string
}

// DefaultSubscription is installed whenever the subscription load fails.
func DefaultSubscription() *Subscription {
	return &Subscription{
		PlanName:           FreePlanName,
		CanAskQuestion:     true,
		QuestionsRemaining: DefaultQuestionsRemaining,
	}
}

// DefaultReadingPermissions is installed whenever the permission load fails.
// Anonymous visitors never get to see the future card.
func DefaultReadingPermissions(anonymous bool) *ReadingPermissions {
	if anonymous {
		return &ReadingPermissions{
			CanReadToday: true,
			PlanName:     FreePlanName,
		}
	}
	return &ReadingPermissions{
		CanReadToday:         true,
		CanSeeFuture:         true,
		FreeFuturesRemaining: DefaultFreeFuturesRemaining,
		HistoryLimit:         DefaultHistoryLimit,
		PlanName:             FreePlanName,
	}
}

// QuestionRecord is what gets reported after a reading has been answered.
type QuestionRecord struct {
	UserId    string
	Question  string
	Response  string
	Cards     []string
	IsPremium bool
}
