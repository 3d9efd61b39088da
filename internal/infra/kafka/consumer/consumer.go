package consumer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/config"
	migrationmsg "github.com/aliskhannn/catalog-images/internal/kafka/handlers/migration"
)

// handler processes one maintenance command message.
type handler interface {
	Handle(ctx context.Context, msg kafka.Message) error
}

// Consumer reads the maintenance topic and hands each message to the handler.
type Consumer struct {
	Client   *wbfkafka.Consumer
	handler  handler
	topic    string
	strategy retry.Strategy
	backoff  time.Duration
}

// New creates a new Consumer.
// - cfg: Kafka configuration struct
// - s: retry strategy
// - h: handler for maintenance commands
func New(
	cfg *config.Kafka,
	s retry.Strategy,
	h handler,
) *Consumer {
	consumer := wbfkafka.NewConsumer(cfg.Brokers, cfg.MaintenanceTopic, cfg.GroupID)

	return &Consumer{
		Client:   consumer,
		handler:  h,
		topic:    cfg.MaintenanceTopic,
		strategy: s,
		backoff:  500 * time.Millisecond,
	}
}

// Consume continuously fetches messages from Kafka, processes them using the handler,
// and commits offsets after successful processing. It stops gracefully on context cancellation.
//
// A message whose handling fails is left uncommitted and the loop moves on. It is only
// redelivered after a restart if no later message gets committed first, since a commit
// covers every earlier offset of the partition. Malformed commands are committed so they
// are never retried.
func (c *Consumer) Consume(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	zlog.Logger.Info().
		Str("topic", c.topic).
		Msg("starting consumer")

	for {
		// Exit if context is canceled (graceful shutdown).
		if ctx.Err() != nil {
			zlog.Logger.Info().Msg("shutdown signal received, stopping consumer")
			return
		}

		// Fetch a message from Kafka with retries.
		var msg kafka.Message
		err := retry.Do(func() error {
			var fetchErr error
			msg, fetchErr = c.Client.Fetch(ctx)
			return fetchErr
		}, c.strategy)

		if err != nil {
			zlog.Logger.Err(err).Msg("failed to fetch message")
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}

		if err := c.handler.Handle(ctx, msg); err != nil {
			zlog.Logger.Err(err).
				Str("message", string(msg.Value)).
				Msg("failed to handle maintenance command")
			if !commitOnError(err) {
				continue
			}
		}

		// Commit the message with retries.
		err = retry.Do(func() error {
			return c.Client.Commit(ctx, msg)
		}, c.strategy)
		if err != nil {
			zlog.Logger.Err(err).Msg("failed to commit message after retries")
			continue
		}

		zlog.Logger.Info().
			Int64("offset", msg.Offset).
			Str("message", string(msg.Value)).
			Msg("message handled successfully")
	}
}

// commitOnError reports whether a message whose handling failed with err should still be
// committed. Only malformed commands qualify: retrying them can never succeed.
func commitOnError(err error) bool {
	return errors.Is(err, migrationmsg.ErrInvalidCommand)
}
