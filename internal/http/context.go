package http

import (
	"context"
	"log/slog"

	"github.com/example/synccircle/internal/i18n"
	"github.com/example/synccircle/internal/logging"
)

type contextKey string

const localizerContextKey contextKey = "localizer"

// ContextWithLocalizer returns a derived context carrying the request's localizer.
func ContextWithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerContextKey, localizer)
}

// LocalizerFromContext extracts the localizer chosen by the Locale middleware.
func LocalizerFromContext(ctx context.Context) (*i18n.Localizer, bool) {
	localizer, ok := ctx.Value(localizerContextKey).(*i18n.Localizer)
	return localizer, ok && localizer != nil
}

// ContextWithLogger injects the request-scoped logger.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return logging.ContextWithLogger(ctx, logger)
}

// LoggerFromContext returns the request-scoped logger, or nil.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx)
}
