// Package notifications delivers project and review events to connected
// owners over websockets, fanned out across instances through Redis pub/sub.
package notifications

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "showcase:notify:user:"
	// BroadcastChannel carries events for every connected client.
	BroadcastChannel = "showcase:notify:broadcast"
)

// Notifier publishes notification payloads into Redis channels.
// A nil Redis client turns every call into a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a payload to every connection of one user.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, BroadcastChannel, payload).Err()
}

// Subscribe listens on the user and broadcast channels until ctx is done,
// calling onMessage for each message. A panic in onMessage is logged and the
// subscription keeps running.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", BroadcastChannel)
	// wait for the subscription to be confirmed so early publishes are not lost
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				deliver(ctx, msg, onMessage)
			}
		}
	}()
	return nil
}

func deliver(ctx context.Context, msg *redis.Message, onMessage func(channel, payload string)) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic in notification subscriber",
				slog.Any("panic", r),
				slog.String("channel", msg.Channel),
				slog.String("stack", string(debug.Stack())),
			)
		}
	}()
	onMessage(msg.Channel, msg.Payload)
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// ParseUserChannel extracts the user id from a channel built by UserChannel.
func ParseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
