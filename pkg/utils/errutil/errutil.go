package errutil

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/taskbasket/pkg/utils/logging"
)

// Handle logs the error with its goerr values and stack, and reports it to
// Sentry when a client has been initialized.
func Handle(ctx context.Context, err error, msg string) {
	if err == nil {
		return
	}

	attrs := []any{slog.String("error", err.Error())}
	var ge *goerr.Error
	if errors.As(err, &ge) {
		attrs = append(attrs, slog.Any("values", ge.Values()), slog.Any("stack", ge.Stacks()))
	}
	logging.From(ctx).Error(msg, attrs...)

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			if ge != nil {
				for k, v := range ge.Values() {
					scope.SetExtra(k, v)
				}
			}
			scope.SetExtra("message", msg)
			evID := hub.CaptureException(err)
			if evID != nil {
				logging.From(ctx).Info("error reported to sentry", slog.Any("event_id", *evID))
			}
		})
	}
}
