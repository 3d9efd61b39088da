package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/catalog-images/internal/model"
)

// ErrInvalidCommand is returned for maintenance messages that cannot be run.
var ErrInvalidCommand = errors.New("invalid migration command")

type runner interface {
	RunAll(ctx context.Context, collections []model.Collection) ([]model.MigrationReport, error)
}

// Command asks for the image migration of the listed collections.
// An empty list means every known collection.
type Command struct {
	Collections []model.Collection `json:"collections"`
}

type Handler struct {
	runner runner
}

func NewHandler(r runner) *Handler {
	return &Handler{runner: r}
}

func (h *Handler) Handle(ctx context.Context, msg kafka.Message) error {
	var cmd Command
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("%w: unmarshal: %v", ErrInvalidCommand, err)
	}

	collections := cmd.Collections
	if len(collections) == 0 {
		collections = []model.Collection{model.Products, model.Categories}
	}

	for _, c := range collections {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown collection %q", ErrInvalidCommand, c)
		}
	}

	reports, err := h.runner.RunAll(ctx, collections)
	if err != nil {
		return fmt.Errorf("run migration: %w", err)
	}

	for _, r := range reports {
		zlog.Logger.Info().
			Str("collection", string(r.Collection)).
			Int("examined", r.Examined).
			Int("updated", r.Updated).
			Int("failed", r.Failed).
			Msg("maintenance migration finished")
	}

	return nil
}
