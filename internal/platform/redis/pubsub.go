// Copyright (c) 2026 Essence. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package redis

import (
	stdctx "context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// # Pub/Sub

// PublishJSON encodes message and publishes it on channel.
func PublishJSON(context stdctx.Context, client redis.Cmdable, channel string, message any) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("redis: encode message for %s: %w", channel, err)
	}
	return client.Publish(context, channel, payload).Err()
}

// SubscribeOptions tunes [SubscribeJSON].
type SubscribeOptions[T any] struct {
	// Buffer is the capacity of the delivery channel.
	Buffer int

	// DropWhenFull discards messages a slow reader has no room for instead of
	// blocking the subscription. OnDrop, when set, sees each discarded message.
	DropWhenFull bool
	OnDrop       func(message T)

	// OnDecodeError sees payloads that are not valid JSON for T. They are skipped.
	OnDecodeError func(err error)
}

/*
SubscribeJSON listens on channels and delivers decoded messages in publish order.

Every channel subscription is confirmed before SubscribeJSON returns, so a
message published afterwards is never missed.

Returns:
  - <-chan T: Decoded messages, closed on unsubscribe or when context ends
  - func(): Unsubscribe; safe to call more than once
  - error: Subscription failures
*/
func SubscribeJSON[T any](context stdctx.Context, client *redis.Client, options SubscribeOptions[T], channels ...string) (<-chan T, func(), error) {
	pubsub := client.Subscribe(context, channels...)

	for range channels {
		if _, err := pubsub.Receive(context); err != nil {
			_ = pubsub.Close()
			return nil, nil, fmt.Errorf("redis: subscribe %v: %w", channels, err)
		}
	}

	messages := make(chan T, options.Buffer)
	done := make(chan struct{})

	go func() {
		defer close(messages)
		incoming := pubsub.Channel()

		for {
			select {
			case <-done:
				return
			case <-context.Done():
				return
			case raw, ok := <-incoming:
				if !ok {
					return
				}

				var message T
				if err := json.Unmarshal([]byte(raw.Payload), &message); err != nil {
					if options.OnDecodeError != nil {
						options.OnDecodeError(err)
					}
					continue
				}

				if options.DropWhenFull {
					select {
					case messages <- message:
					default:
						if options.OnDrop != nil {
							options.OnDrop(message)
						}
					}
					continue
				}

				select {
				case messages <- message:
				case <-done:
					return
				case <-context.Done():
					return
				}
			}
		}
	}()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}

	return messages, unsubscribe, nil
}
