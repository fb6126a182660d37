package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"bottarot-be/internal/entity"
	"bottarot-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// AuthChange is what listeners of a client session receive whenever its
// auth state moves.
type AuthChange struct {
	Event   entity.AuthEvent `json:"event"`
	Session *entity.Session  `json:"session,omitempty"`
}

// User is the session owner, nil when signed out.
func (c AuthChange) User() *entity.User {
	if c.Session == nil {
		return nil
	}
	u := c.Session.User
	return &u
}

// AuthBus is the in-process pub/sub carrying auth changes from the session
// service to the stores of the same client session. One topic per client.
type AuthBus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewAuthBus(log logger.ILogger) *AuthBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 16},
		watermill.NopLogger{},
	)
	return &AuthBus{pubSub: pubSub, logger: log}
}

func topic(clientID string) string {
	return "auth." + clientID
}

func (b *AuthBus) Publish(clientID string, change AuthChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal auth change: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(topic(clientID), msg); err != nil {
		return fmt.Errorf("publish auth change: %w", err)
	}
	return nil
}

// Subscribe delivers every change for clientID to handler, in publish order,
// until the returned cancel func is called.
func (b *AuthBus) Subscribe(clientID string, handler func(AuthChange)) (func(), error) {
	ctx, cancel := context.WithCancel(context.Background())
	messages, err := b.pubSub.Subscribe(ctx, topic(clientID))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe auth changes: %w", err)
	}

	go func() {
		for msg := range messages {
			var change AuthChange
			if err := json.Unmarshal(msg.Payload, &change); err != nil {
				b.logger.Error("AuthBus", "Dropping malformed auth change", map[string]interface{}{"error": err, "client_id": clientID})
				msg.Ack()
				continue
			}
			handler(change)
			msg.Ack()
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (b *AuthBus) Close() error {
	return b.pubSub.Close()
}
