package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaPublisher writes events to the topic named by the stream, keyed by
// event ID.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				log.Error(fmt.Sprintf(msg, args...), zap.String("component", "kafka-writer"))
			}),
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, stream, eventType string, data any) error {
	event := NewEvent(eventType, data)
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: stream,
		Key:   []byte(event.ID),
		Value: eventJSON,
		Time:  event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

const kafkaHandlerAttempts = 3

// KafkaSubscriber consumes a topic as part of a consumer group. Offsets are
// committed only after the handler succeeds or its retries are exhausted.
type KafkaSubscriber struct {
	reader  *kafka.Reader
	handler Handler
	log     *zap.Logger
}

func NewKafkaSubscriber(brokers []string, config SubscriberConfig) *KafkaSubscriber {
	config.applyDefaults()
	return &KafkaSubscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			GroupID:  config.Group,
			Topic:    config.Stream,
			MinBytes: 1,
			MaxBytes: 10e6,
			MaxWait:  config.BlockDuration,
		}),
		handler: config.Handler,
		log:     config.Logger.With(zap.String("topic", config.Stream), zap.String("group", config.Group)),
	}
}

func (s *KafkaSubscriber) Start(ctx context.Context) error {
	defer s.reader.Close()
	s.log.Info("subscriber started")

	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("subscriber stopping")
				return ctx.Err()
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.log.Error("error fetching message", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		if err := s.handleWithRetry(ctx, msg); err != nil {
			s.log.Error("dropping message after retries",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}

		if err := s.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			s.log.Warn("failed to commit offset", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (s *KafkaSubscriber) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	var err error
	backoff := 200 * time.Millisecond
	for attempt := 1; attempt <= kafkaHandlerAttempts; attempt++ {
		if err = s.handler(ctx, event); err == nil {
			return nil
		}
		if attempt == kafkaHandlerAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}
