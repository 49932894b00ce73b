package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/models/vo"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// relayMessage 保留面向客户端 JSON 中省略的 owner 范围。
type relayMessage struct {
	Event   vo.ProgressEvent `json:"event"`
	OwnerID uuid.UUID        `json:"ownerId"`
}

// RedisRelay 通过 Redis Pub/Sub 在副本间共享进度事件。
type RedisRelay struct {
	client  redis.UniversalClient
	channel string
	log     *log.Helper
}

// NewRedisRelay 包装已有的 client。
func NewRedisRelay(client redis.UniversalClient, channel string, logger log.Logger) *RedisRelay {
	return &RedisRelay{client: client, channel: channel, log: log.NewHelper(logger)}
}

// NewRelay 在配置了地址时连接 Redis，否则返回 nil relay。
func NewRelay(cfg configloader.BroadcastConfig, logger log.Logger) (Relay, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addr,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}

	helper := log.NewHelper(logger)
	helper.Infof("progress relay connected: addr=%s channel=%s", cfg.Redis.Addr, cfg.Redis.Channel)
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Warnf("close redis client: %v", err)
		}
	}
	return NewRedisRelay(client, cfg.Redis.Channel, logger), cleanup, nil
}

// Publish 将事件发送给所有副本（包括当前副本）。
func (r *RedisRelay) Publish(ctx context.Context, event vo.ProgressEvent) error {
	payload, err := json.Marshal(relayMessage{Event: event, OwnerID: event.OwnerID})
	if err != nil {
		return fmt.Errorf("marshal progress event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Run 订阅频道并投递解码后的事件，直到 ctx 结束。
func (r *RedisRelay) Run(ctx context.Context, deliver func(vo.ProgressEvent)) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var relayed relayMessage
			if err := json.Unmarshal([]byte(msg.Payload), &relayed); err != nil {
				r.log.Warnf("discard malformed progress event: err=%v", err)
				continue
			}
			relayed.Event.OwnerID = relayed.OwnerID
			deliver(relayed.Event)
		}
	}
}
