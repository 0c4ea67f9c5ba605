package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type queryStartKey struct{}

// DBTracing adds a span per GORM statement and flags slow statements on it.
// Query variables never reach the span.
type DBTracing struct {
	slowQuery time.Duration
	logger    *zap.Logger
}

// NewDBTracing creates the plugin. Statements slower than slowQuery are flagged.
func NewDBTracing(slowQuery time.Duration, logger *zap.Logger) *DBTracing {
	return &DBTracing{slowQuery: slowQuery, logger: logger}
}

// Register installs otelgorm and the timing callbacks on db
func (t *DBTracing) Register(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName("postgresql"),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	cb := db.Callback()
	err := errors.Join(
		cb.Create().Before("gorm:create").Register("crm:start_create", t.start),
		cb.Query().Before("gorm:query").Register("crm:start_query", t.start),
		cb.Update().Before("gorm:update").Register("crm:start_update", t.start),
		cb.Delete().Before("gorm:delete").Register("crm:start_delete", t.start),
		cb.Row().Before("gorm:row").Register("crm:start_row", t.start),
		cb.Raw().Before("gorm:raw").Register("crm:start_raw", t.start),
		cb.Create().After("gorm:create").Register("crm:finish_create", t.finish),
		cb.Query().After("gorm:query").Register("crm:finish_query", t.finish),
		cb.Update().After("gorm:update").Register("crm:finish_update", t.finish),
		cb.Delete().After("gorm:delete").Register("crm:finish_delete", t.finish),
		cb.Row().After("gorm:row").Register("crm:finish_row", t.finish),
		cb.Raw().After("gorm:raw").Register("crm:finish_raw", t.finish),
	)
	if err != nil {
		return err
	}

	t.logger.Info("Database tracing enabled", zap.Duration("slow_query_threshold", t.slowQuery))
	return nil
}

func (t *DBTracing) start(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (t *DBTracing) finish(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	// A missing row is a normal outcome for scoped lookups
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	started, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(started); elapsed > t.slowQuery {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", t.slowQuery.Milliseconds()),
		))
	}
}
