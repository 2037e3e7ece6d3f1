package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/domain/event"
	"github.com/fagnersantosdev/job-connectAPP-sub000/internal/logger"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisPublisher рассылает события всем воркерам через pub/sub канал.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, evt event.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: не удалось сериализовать событие: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("events: redis publish: %w", err)
	}
	return nil
}

// RedisSubscriber читает канал и передаёт события локальному получателю (WebSocket хабу воркера).
type RedisSubscriber struct {
	rdb     *redis.Client
	channel string
	sink    event.Publisher
}

func NewRedisSubscriber(rdb *redis.Client, channel string, sink event.Publisher) *RedisSubscriber {
	return &RedisSubscriber{rdb: rdb, channel: channel, sink: sink}
}

// Start подписывается на канал и ждёт подтверждения подписки. Чтение идёт в listen до отмены ctx.
func (s *RedisSubscriber) Start(ctx context.Context) (*redis.PubSub, error) {
	pubsub := s.rdb.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("events: не удалось подписаться на %s: %w", s.channel, err)
	}
	return pubsub, nil
}

func (s *RedisSubscriber) Listen(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handle(ctx, msg.Payload)
		}
	}
}

func (s *RedisSubscriber) handle(ctx context.Context, payload string) {
	evt, err := decodeEvent(payload)
	if err != nil {
		logger.WithFields(logrus.Fields{"channel": s.channel}).WithError(err).Warn("events: некорректное сообщение")
		return
	}
	if err := s.sink.Publish(ctx, evt); err != nil {
		logger.WithFields(logrus.Fields{
			"event":      evt.Type,
			"request_id": evt.RequestID,
		}).WithError(err).Warn("events: не удалось доставить событие")
	}
}

func decodeEvent(payload string) (event.Event, error) {
	var evt event.Event
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return evt, err
	}
	if evt.Type == "" {
		return evt, fmt.Errorf("events: пустой тип события")
	}
	return evt, nil
}
