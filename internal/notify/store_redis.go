// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/essence/internal/platform/constants"
	redisutil "github.com/taibuivan/essence/internal/platform/redis"
)

// streamBuffer bounds undelivered live notices per subscriber.
const streamBuffer = 16

// RedisPublisher implements [Publisher] over Redis pub/sub.
type RedisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisPublisher constructs a new [RedisPublisher].
func NewRedisPublisher(client *redis.Client, logger *slog.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, logger: logger}
}

func channelFor(userID string) string {
	if userID == "" {
		return constants.RedisChannelNotifyGlobal
	}
	return constants.RedisChannelNotifyUser + userID
}

// Publish sends a notice on the global channel or on its user's channel.
func (publisher *RedisPublisher) Publish(context context.Context, notification Notification) error {
	channel := channelFor("")
	if !notification.Global {
		channel = channelFor(notification.UserID)
	}

	if err := redisutil.PublishJSON(context, publisher.client, channel, notification); err != nil {
		return fmt.Errorf("notify_publish_failed: %w", err)
	}
	return nil
}

/*
Subscribe listens on the global channel and on the channel of userID.

A subscriber that falls behind loses notices rather than stalling the
connection; each loss is logged as notification_dropped.
*/
func (publisher *RedisPublisher) Subscribe(context context.Context, userID string) (<-chan Notification, func(), error) {
	notifications, unsubscribe, err := redisutil.SubscribeJSON(context, publisher.client, redisutil.SubscribeOptions[Notification]{
		Buffer:       streamBuffer,
		DropWhenFull: true,
		OnDrop: func(notification Notification) {
			publisher.logger.Warn("notification_dropped",
				slog.String("user_id", userID),
				slog.String("notification_id", notification.ID),
			)
		},
		OnDecodeError: func(err error) {
			publisher.logger.Warn("notification_decode_failed", slog.String("error", err.Error()))
		},
	}, channelFor(""), channelFor(userID))
	if err != nil {
		return nil, nil, fmt.Errorf("notify_subscribe_failed: %w", err)
	}
	return notifications, unsubscribe, nil
}
