package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCmdable struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{data: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		m.data[key] = string(v)
	default:
		m.data[key] = fmt.Sprint(v)
	}
	m.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	if m.getErr != nil {
		return redis.NewStringResult("", m.getErr)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type item struct {
	Name   string   `json:"name"`
	Images []string `json:"images"`
}

func TestKey(t *testing.T) {
	assert.Equal(t, "catalog:products:42", Key("products", "42"))
	assert.Equal(t, "catalog:categories", Key("categories", " "))
	assert.Equal(t, "catalog", Key())
}

func TestSetGetDel(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	c := &Cache{store: mock, ttl: time.Minute}

	key := Key("products", "1")
	require.NoError(t, c.Set(ctx, key, item{Name: "Sneaker", Images: []string{"a.jpg"}}))
	assert.Equal(t, time.Minute, mock.ttls[key])

	var got item
	ok, err := c.Get(ctx, key, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{Name: "Sneaker", Images: []string{"a.jpg"}}, got)

	require.NoError(t, c.Del(ctx, key))

	ok, err = c.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetErrors(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	c := &Cache{store: mock}

	mock.data["catalog:bad"] = "{not json"
	var dst item
	ok, err := c.Get(ctx, "catalog:bad", &dst)
	assert.False(t, ok)
	assert.Error(t, err)

	mock.getErr = errors.New("connection refused")
	ok, err = c.Get(ctx, "catalog:any", &dst)
	assert.False(t, ok)
	assert.ErrorIs(t, err, mock.getErr)
}

func TestDelWithoutKeys(t *testing.T) {
	c := &Cache{store: newMockCmdable()}
	assert.NoError(t, c.Del(context.Background()))
}
