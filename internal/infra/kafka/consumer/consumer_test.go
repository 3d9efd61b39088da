package consumer

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	migrationmsg "github.com/aliskhannn/catalog-images/internal/kafka/handlers/migration"
)

func TestCommitOnError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "malformed command", err: fmt.Errorf("%w: unmarshal: bad json", migrationmsg.ErrInvalidCommand), want: true},
		{name: "unknown collection", err: fmt.Errorf("%w: unknown collection %q", migrationmsg.ErrInvalidCommand, "orders"), want: true},
		{name: "migration failure", err: fmt.Errorf("run migration: %w", errors.New("db down")), want: false},
		{name: "canceled", err: context.Canceled, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, commitOnError(tt.err))
		})
	}
}
