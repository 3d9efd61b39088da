package producer

import (
	"context"
	"encoding/json"
	"fmt"

	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/catalog-images/internal/config"
	"github.com/aliskhannn/catalog-images/internal/model"
)

// client is the subset of the wbf Kafka producer used here.
type client interface {
	SendWithRetry(ctx context.Context, strategy retry.Strategy, key, value []byte) error
}

// Producer publishes asset uploaded events.
type Producer struct {
	Client   *wbfkafka.Producer
	client   client
	strategy retry.Strategy
}

// New creates a new Producer writing to the upload topic.
// - cfg: Kafka configuration struct
// - s: retry strategy
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.UploadTopic)

	return &Producer{
		Client:   producer,
		client:   producer,
		strategy: s,
	}
}

// Produce serializes the event to JSON and sends it to Kafka.
// The content fingerprint is the message key, so events about the same bytes share a partition.
func (p *Producer) Produce(ctx context.Context, event model.AssetUploadedEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	key := []byte(event.Fingerprint)

	if err = p.client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}

	return nil
}
