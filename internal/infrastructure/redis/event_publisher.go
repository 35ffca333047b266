package redis

import (
	"context"

	"auction-system/internal/domain"

	"github.com/go-redis/redis/v8"
)

// EventPublisherImpl publishes auction events as JSON on a pub/sub channel.
// It also serves as a session-ended sink.
type EventPublisherImpl struct {
	client  *redis.Client
	channel string
}

func NewEventPublisher(client *redis.Client, channel string) *EventPublisherImpl {
	return &EventPublisherImpl{client: client, channel: channel}
}

func (r *EventPublisherImpl) Publish(ctx context.Context, event *domain.AuctionEvent) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

func (r *EventPublisherImpl) SessionEnded(ctx context.Context, event *domain.AuctionEvent) error {
	return r.Publish(ctx, event)
}
