package mapper

import (
	"bottarot-be/internal/authstate"
	"bottarot-be/internal/dto"
	"bottarot-be/internal/entity"
)

func ToUserResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{Id: u.Id, Email: u.Email}
}

func ToAuthStateResponse(snap authstate.Snapshot) *dto.AuthStateResponse {
	res := &dto.AuthStateResponse{
		User:                 ToUserResponse(snap.User),
		IsInitialized:        snap.Initialized,
		Loading:              snap.Loading,
		IsLoggedIn:           snap.IsLoggedIn,
		NeedsRegistration:    snap.NeedsRegistration,
		IsFullyRegistered:    snap.IsFullyRegistered,
		IsPremiumUser:        snap.IsPremiumUser,
		CanSeeFuture:         snap.CanSeeFuture,
		FreeFuturesRemaining: snap.FreeFuturesRemaining,
		QuestionsRemaining:   snap.QuestionsRemaining,
		CurrentPlan:          snap.CurrentPlan,
	}
	if s := snap.Subscription; s != nil {
		res.Subscription = &dto.SubscriptionResponse{
			PlanName:              s.PlanName,
			HasActiveSubscription: s.HasActiveSubscription,
			SubscriptionEndDate:   s.SubscriptionEndDate,
			CanAskQuestion:        s.CanAskQuestion,
			QuestionsRemaining:    s.QuestionsRemaining,
		}
	}
	if p := snap.Permissions; p != nil {
		res.Permissions = &dto.PermissionsResponse{
			IsPremium:            p.IsPremium,
			CanReadToday:         p.CanReadToday,
			CanSeeFuture:         p.CanSeeFuture,
			ReadingsToday:        p.ReadingsToday,
			FreeFuturesRemaining: p.FreeFuturesRemaining,
			HistoryLimit:         p.HistoryLimit,
			PlanName:             p.PlanName,
		}
	}
	return res
}

func ToProfileResponse(p *entity.Profile) *dto.ProfileResponse {
	res := &dto.ProfileResponse{
		Id:        p.Id,
		Email:     p.Email,
		Name:      p.Name,
		Gender:    p.Gender,
		Timezone:  p.Timezone,
		Language:  p.Language,
		CreatedAt: p.CreatedAt,
	}
	if p.DateOfBirth != nil {
		res.DateOfBirth = p.DateOfBirth.Format("2006-01-02")
	}
	return res
}

func ToChatSummaryResponses(items []entity.ChatSummary) []dto.ChatSummaryResponse {
	out := make([]dto.ChatSummaryResponse, 0, len(items))
	for _, c := range items {
		out = append(out, dto.ChatSummaryResponse{
			Id:         c.Id,
			Title:      c.Title,
			IsFavorite: c.IsFavorite,
			CreatedAt:  c.CreatedAt,
		})
	}
	return out
}
