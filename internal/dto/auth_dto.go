package dto

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type UserResponse struct {
	Id    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

type SubscriptionResponse struct {
	PlanName              string     `json:"plan_name"`
	HasActiveSubscription bool       `json:"has_active_subscription"`
	SubscriptionEndDate   *time.Time `json:"subscription_end_date"`
	CanAskQuestion        bool       `json:"can_ask_question"`
	QuestionsRemaining    int        `json:"questions_remaining"`
}

type PermissionsResponse struct {
	IsPremium            bool   `json:"is_premium"`
	CanReadToday         bool   `json:"can_read_today"`
	CanSeeFuture         bool   `json:"can_see_future"`
	ReadingsToday        int    `json:"readings_today"`
	FreeFuturesRemaining int    `json:"free_futures_remaining"`
	HistoryLimit         int    `json:"history_limit"`
	PlanName             string `json:"plan_name"`
}

// AuthStateResponse mirrors what the SPA's auth store exposes.
type AuthStateResponse struct {
	User                 *UserResponse         `json:"user"`
	IsInitialized        bool                  `json:"is_initialized"`
	Loading              bool                  `json:"loading"`
	IsLoggedIn           bool                  `json:"is_logged_in"`
	NeedsRegistration    bool                  `json:"needs_registration"`
	IsFullyRegistered    bool                  `json:"is_fully_registered"`
	IsPremiumUser        bool                  `json:"is_premium_user"`
	CanSeeFuture         bool                  `json:"can_see_future"`
	FreeFuturesRemaining int                   `json:"free_futures_remaining"`
	QuestionsRemaining   int                   `json:"questions_remaining"`
	CurrentPlan          string                `json:"current_plan"`
	Subscription         *SubscriptionResponse `json:"subscription"`
	Permissions          *PermissionsResponse  `json:"permissions"`
}

type SignUpResponse struct {
	User                      *UserResponse `json:"user"`
	EmailConfirmationRequired bool          `json:"email_confirmation_required"`
}

type OAuthRedirectResponse struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}
