package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultRedisChannel = "careerforge:mirror"

// RedisNotifier relays changes between hosts through a Redis pub/sub
// channel. Like the other notifiers it drops messages it published itself.
type RedisNotifier struct {
	rdb     *redis.Client
	channel string
	id      string
	log     *slog.Logger
	subs    listeners

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type redisMessage struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   []byte `json:"value,omitempty"`
	Removed bool   `json:"removed,omitempty"`
}

func NewRedisNotifier(rdb *redis.Client, channel string, log *slog.Logger) *RedisNotifier {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	if log == nil {
		log = slog.Default()
	}
	return &RedisNotifier{
		rdb:     rdb,
		channel: channel,
		id:      uuid.NewString(),
		log:     log.With("component", "redis_notifier"),
	}
}

// DialRedis connects and pings, failing fast when the server is unreachable.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Start subscribes to the channel and forwards foreign messages.
func (r *RedisNotifier) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("notifier already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := r.rdb.Subscribe(ctx, r.channel)
	if _, err := sub.Receive(ctx); err != nil {
		cancel()
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	r.cancel = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				if c, ok := r.decode(m.Payload); ok {
					r.subs.emit(c)
				}
			}
		}
	}()
	return nil
}

// Stop cancels the subscription. The Redis client stays open.
func (r *RedisNotifier) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.cancel = nil
	r.mu.Unlock()
	if cancel != nil {
		cancel()
		r.wg.Wait()
	}
}

func (r *RedisNotifier) Broadcast(key string) {
	r.publish(redisMessage{Origin: r.id, Key: key})
}

func (r *RedisNotifier) Record(key string, value []byte) {
	r.publish(redisMessage{Origin: r.id, Key: key, Value: value, Removed: value == nil})
}

func (r *RedisNotifier) Subscribe(fn func(Change)) func() {
	return r.subs.add(fn)
}

func (r *RedisNotifier) publish(msg redisMessage) {
	raw, err := json.Marshal(msg)
	if err != nil {
		r.log.Warn("encode change", "key", msg.Key, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Warn("publish change", "key", msg.Key, "error", err)
	}
}

func (r *RedisNotifier) decode(payload string) (Change, bool) {
	var msg redisMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.log.Warn("bad change payload", "error", err)
		return Change{}, false
	}
	if msg.Origin == r.id || msg.Key == "" {
		return Change{}, false
	}
	return Change{Key: msg.Key, NewValue: msg.Value, Removed: msg.Removed, Origin: msg.Origin}, true
}
