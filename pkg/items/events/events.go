// Package events provides items.Notifier implementations.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/tendant/simple-items/pkg/items"
)

// LoggingNotifier writes every event to a structured logger.
type LoggingNotifier struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLoggingNotifier creates a notifier logging at level.
func NewLoggingNotifier(logger *slog.Logger, level slog.Level) *LoggingNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingNotifier{logger: logger, level: level}
}

func (n *LoggingNotifier) Notify(ctx context.Context, event items.Event) error {
	args := []any{"event_id", event.ID, "event", event.Name}
	if event.Item != nil {
		args = append(args,
			"item_id", event.Item.ID,
			"source_id", event.Item.SourceID,
			"language", event.Item.Language,
			"type", event.Item.Variant,
			"status", event.Item.Status,
		)
	}
	n.logger.Log(ctx, n.level, "item event", args...)
	return nil
}

// Message is the wire form of an event published to Redis.
type Message struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	OccurredAt time.Time   `json:"occurred_at"`
	Item       *items.Item `json:"item,omitempty"`
	PreviousID int64       `json:"previous_id,omitempty"`
}

// NewMessage converts event into its wire form.
func NewMessage(event items.Event) Message {
	msg := Message{
		ID:         event.ID.String(),
		Name:       event.Name,
		OccurredAt: event.OccurredAt.UTC(),
		Item:       event.Item,
	}
	if event.Previous != nil {
		msg.PreviousID = event.Previous.ID
	}
	return msg
}

// Publisher is the subset of the Redis client used for publishing.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisNotifier publishes events as JSON messages on a Redis channel.
type RedisNotifier struct {
	client  Publisher
	channel string
	logger  *slog.Logger
}

// NewRedisNotifier creates a notifier publishing on channel.
func NewRedisNotifier(client Publisher, channel string, logger *slog.Logger) *RedisNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = "items:events"
	}
	return &RedisNotifier{client: client, channel: channel, logger: logger}
}

// Channel returns the channel events are published on.
func (n *RedisNotifier) Channel() string {
	return n.channel
}

func (n *RedisNotifier) Notify(ctx context.Context, event items.Event) error {
	data, err := json.Marshal(NewMessage(event))
	if err != nil {
		return fmt.Errorf("failed to encode event %s: %w", event.Name, err)
	}

	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		n.logger.ErrorContext(ctx, "redis PUBLISH failed", "channel", n.channel, "event", event.Name, "error", err)
		return fmt.Errorf("failed to publish event %s: %w", event.Name, err)
	}
	n.logger.DebugContext(ctx, "redis PUBLISH", "channel", n.channel, "event", event.Name)
	return nil
}

// Fanout delivers each event to every notifier and joins their errors.
type Fanout []items.Notifier

func (f Fanout) Notify(ctx context.Context, event items.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
