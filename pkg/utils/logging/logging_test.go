package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

func TestFrom(t *testing.T) {
	t.Run("falls back to the default logger", func(t *testing.T) {
		gt.V(t, logging.From(context.Background())).Equal(logging.Default())
	})

	t.Run("returns the embedded logger", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewTextHandler(&buf, nil))
		ctx := logging.With(context.Background(), logger)

		logging.From(ctx).Info("claimed", "task_id", "TKI:1")
		gt.S(t, buf.String()).Contains("task_id=TKI:1")
	})
}
