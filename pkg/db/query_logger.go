package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kartwise/storefront-backend/pkg/logger"
)

// queryLogger routes GORM output into the service logger. Only failed and
// slow statements are logged; missing rows are expected and stay quiet.
type queryLogger struct {
	logg *logger.Logger
	slow time.Duration
}

func newQueryLogger(logg *logger.Logger, slow time.Duration) gormlogger.Interface {
	return &queryLogger{logg: logg, slow: slow}
}

func (l *queryLogger) LogMode(gormlogger.LogLevel) gormlogger.Interface { return l }

func (l *queryLogger) Info(context.Context, string, ...any) {}

func (l *queryLogger) Warn(ctx context.Context, msg string, _ ...any) {
	l.logg.Warn(ctx, msg)
}

func (l *queryLogger) Error(ctx context.Context, msg string, _ ...any) {
	l.logg.Error(ctx, "gorm", errors.New(msg))
}

func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && !errors.Is(err, context.Canceled)
	slow := l.slow > 0 && elapsed > l.slow
	if !failed && !slow {
		return
	}
	stmt, rows := fc()
	logCtx := l.logg.WithFields(ctx, map[string]any{
		"sql":         stmt,
		"rows":        rows,
		"duration_ms": elapsed.Milliseconds(),
	})
	if failed {
		l.logg.Warn(l.logg.WithField(logCtx, "error", err.Error()), "query failed")
		return
	}
	l.logg.Warn(logCtx, "slow query")
}
