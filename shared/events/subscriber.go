package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler func(ctx context.Context, event Event) error

// Subscriber consumes a stream until ctx is cancelled.
type Subscriber interface {
	Start(ctx context.Context) error
}

type RedisSubscriber struct {
	client        *redis.Client
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	claimInterval time.Duration
	claimIdle     time.Duration
	log           *zap.Logger
}

// SubscriberConfig configures a subscriber. Entries whose handler failed stay
// pending; every ClaimInterval the Redis subscriber takes over entries idle
// for at least ClaimIdle, its own or a departed consumer's, and retries them.
type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	ClaimInterval time.Duration
	ClaimIdle     time.Duration
	Logger        *zap.Logger
}

func (c *SubscriberConfig) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 10
	}
	if c.BlockDuration == 0 {
		c.BlockDuration = 5 * time.Second
	}
	if c.ClaimInterval == 0 {
		c.ClaimInterval = 30 * time.Second
	}
	if c.ClaimIdle == 0 {
		c.ClaimIdle = time.Minute
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func NewRedisSubscriber(client *redis.Client, config SubscriberConfig) *RedisSubscriber {
	config.applyDefaults()
	return &RedisSubscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimInterval: config.ClaimInterval,
		claimIdle:     config.ClaimIdle,
		log: config.Logger.With(
			zap.String("stream", config.Stream),
			zap.String("group", config.Group),
			zap.String("consumer", config.Consumer),
		),
	}
}

func (s *RedisSubscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.log.Info("subscriber started")

	// Entries delivered to this consumer before a restart and never acked.
	if err := s.readMessages(ctx, "0"); err != nil && ctx.Err() == nil {
		s.log.Warn("failed to replay pending messages", zap.Error(err))
	}

	lastClaim := time.Now()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("subscriber stopping")
			return ctx.Err()
		default:
			if time.Since(lastClaim) >= s.claimInterval {
				if err := s.claimStale(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn("failed to claim stale messages", zap.Error(err))
				}
				lastClaim = time.Now()
			}
			if err := s.readMessages(ctx, ">"); err != nil && ctx.Err() == nil {
				s.log.Error("error reading messages", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *RedisSubscriber) readMessages(ctx context.Context, from string) error {
	args := &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, from},
		Count:    s.batchSize,
	}
	if from == ">" {
		args.Block = s.blockDuration
	}

	streams, err := s.client.XReadGroup(ctx, args).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		s.handleMessages(ctx, stream.Messages)
	}
	return nil
}

// claimStale moves entries pending longer than claimIdle to this consumer and
// handles them again.
func (s *RedisSubscriber) claimStale(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.claimIdle,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending entries: %w", err)
		}
		if len(messages) > 0 {
			s.log.Info("retrying stale messages", zap.Int("count", len(messages)))
			s.handleMessages(ctx, messages)
		}
		if next == "0-0" || next == "" {
			return nil
		}
		start = next
	}
}

func (s *RedisSubscriber) handleMessages(ctx context.Context, messages []redis.XMessage) {
	for _, message := range messages {
		if err := s.processMessage(ctx, message); err != nil {
			// Not acked: stays pending until claimed again.
			s.log.Error("failed to process message", zap.String("message_id", message.ID), zap.Error(err))
			continue
		}

		if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
			s.log.Warn("failed to ack message", zap.String("message_id", message.ID), zap.Error(err))
		}
	}
}

func (s *RedisSubscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("invalid message format")
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return s.handler(ctx, event)
}
