package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/AbdelrahmanNabil77/ecommerce-backend-prodev/pkg/kafka"
)

// TopicUserDeleted is published by the identity provider when an account
// is removed.
var TopicUserDeleted = pkgkafka.Topic("user", "deleted")

// UserDeletedData is the payload of a user.deleted event.
type UserDeletedData struct {
	UserID string `json:"user_id"`
}

// UserRemover detaches a deleted identity from the catalog.
type UserRemover interface {
	RemoveUser(ctx context.Context, userID string) error
}

// Consumer handles identity lifecycle events.
type Consumer struct {
	users  UserRemover
	logger *slog.Logger
}

// NewConsumer creates a new identity event consumer.
func NewConsumer(users UserRemover, logger *slog.Logger) *Consumer {
	return &Consumer{
		users:  users,
		logger: logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicUserDeleted:
		return c.handleUserDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleUserDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data UserDeletedData
	if err := event.UnmarshalData(&data); err != nil {
		return err
	}

	userID := data.UserID
	if userID == "" {
		userID = event.AggregateID
	}
	if userID == "" {
		c.logger.WarnContext(ctx, "user.deleted event without user id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.users.RemoveUser(ctx, userID); err != nil {
		return fmt.Errorf("remove user %s: %w", userID, err)
	}

	c.logger.InfoContext(ctx, "removed deleted user from catalog",
		slog.String("user_id", userID),
		slog.String("event_id", event.EventID),
	)

	return nil
}
