package events

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	BrokerRedis = "redis"
	BrokerKafka = "kafka"
)

// NewPublisher returns the publisher for broker. The returned close function
// is never nil.
func NewPublisher(broker string, client *redis.Client, kafkaBrokers []string, log *zap.Logger) (Publisher, func() error, error) {
	switch broker {
	case BrokerKafka:
		if len(kafkaBrokers) == 0 {
			return nil, nil, fmt.Errorf("kafka publisher: no brokers configured")
		}
		p := NewKafkaPublisher(kafkaBrokers, log)
		return p, p.Close, nil
	case BrokerRedis:
		if client == nil {
			log.Warn("redis unavailable, events will not be published")
			return NewNopPublisher(log), noClose, nil
		}
		return NewRedisPublisher(client), noClose, nil
	default:
		return nil, nil, fmt.Errorf("unknown event broker %q", broker)
	}
}

// NewSubscriber returns the subscriber for broker.
func NewSubscriber(broker string, client *redis.Client, kafkaBrokers []string, config SubscriberConfig) (Subscriber, error) {
	switch broker {
	case BrokerKafka:
		if len(kafkaBrokers) == 0 {
			return nil, fmt.Errorf("kafka subscriber: no brokers configured")
		}
		return NewKafkaSubscriber(kafkaBrokers, config), nil
	case BrokerRedis:
		if client == nil {
			return nil, fmt.Errorf("redis subscriber: no client")
		}
		return NewRedisSubscriber(client, config), nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", broker)
	}
}

func noClose() error { return nil }
