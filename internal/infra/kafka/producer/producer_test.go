package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/catalog-images/internal/model"
)

type recordingClient struct {
	key, value []byte
	strategy   retry.Strategy
	err        error
}

func (c *recordingClient) SendWithRetry(_ context.Context, s retry.Strategy, key, value []byte) error {
	c.key, c.value, c.strategy = key, value, s
	return c.err
}

func TestProduceKeysByFingerprint(t *testing.T) {
	rc := &recordingClient{}
	strategy := retry.Strategy{Attempts: 3, Delay: time.Millisecond, Backoff: 2}
	p := &Producer{client: rc, strategy: strategy}

	event := model.AssetUploadedEvent{
		Fingerprint:  "abc123",
		OriginalName: "shoe.png",
		ContentType:  "image/png",
		Renditions:   map[string]string{"detail": "https://cdn.example.com/abc123-detail.webp"},
	}

	require.NoError(t, p.Produce(context.Background(), event))

	assert.Equal(t, []byte("abc123"), rc.key)
	assert.Equal(t, strategy, rc.strategy)

	var got model.AssetUploadedEvent
	require.NoError(t, json.Unmarshal(rc.value, &got))
	assert.Equal(t, event.Renditions, got.Renditions)
}

func TestProduceWrapsSendError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Producer{client: &recordingClient{err: boom}}

	err := p.Produce(context.Background(), model.AssetUploadedEvent{Fingerprint: "x"})
	assert.ErrorIs(t, err, boom)
}
