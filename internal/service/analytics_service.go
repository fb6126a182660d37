package service

import (
	"context"
	"time"

	"bottarot-be/internal/pkg/logger"
	"bottarot-be/pkg/events"

	"github.com/google/uuid"
)

const analyticsPublishTimeout = 3 * time.Second

type IAnalyticsService interface {
	Track(ctx context.Context, eventType string, userID uuid.UUID, clientID string, data map[string]interface{})
}

type analyticsService struct {
	publisher EventPublisher
	logger    logger.ILogger
}

// NewAnalyticsService publishes product analytics to the event stream.
// With a nil publisher every Track call is dropped.
func NewAnalyticsService(publisher EventPublisher, log logger.ILogger) IAnalyticsService {
	return &analyticsService{publisher: publisher, logger: log}
}

// Track never fails the caller; analytics loss is only logged.
func (s *analyticsService) Track(ctx context.Context, eventType string, userID uuid.UUID, clientID string, data map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), analyticsPublishTimeout)
	defer cancel()

	evt := events.NewUserEvent(eventType, userID, clientID, data)
	if err := s.publisher.Publish(pubCtx, evt); err != nil {
		s.logger.Warn("AnalyticsService", "Failed to publish analytics event", map[string]interface{}{"type": eventType, "error": err.Error()})
	}
}
