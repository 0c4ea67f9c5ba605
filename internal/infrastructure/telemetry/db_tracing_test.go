package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestDBTracing_Register(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, NewDBTracing(200*time.Millisecond, zaptest.NewLogger(t)).Register(db))

	var n int
	require.NoError(t, db.Raw("SELECT 1").Scan(&n).Error)
	assert.Equal(t, 1, n)
}

func TestDBTracing_Finish(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracing := NewDBTracing(10*time.Millisecond, zaptest.NewLogger(t))

	run := func(dbErr error, startedAgo time.Duration) sdktrace.ReadOnlySpan {
		ctx, span := provider.Tracer("test").Start(context.Background(), "gorm.Query")
		ctx = context.WithValue(ctx, queryStartKey{}, time.Now().Add(-startedAgo))
		tracing.finish(&gorm.DB{
			Error:        dbErr,
			RowsAffected: 2,
			Statement:    &gorm.Statement{Context: ctx, Table: "leads"},
		})
		span.End()
		ended := recorder.Ended()
		return ended[len(ended)-1]
	}

	t.Run("slow statement is flagged", func(t *testing.T) {
		span := run(nil, time.Second)
		assert.Contains(t, span.Attributes(), attribute.Bool("db.slow_query", true))
		assert.Contains(t, span.Attributes(), attribute.String("db.sql.table", "leads"))
		assert.Contains(t, span.Attributes(), attribute.Int64("db.rows_affected", 2))
		assert.Equal(t, codes.Unset, span.Status().Code)
	})

	t.Run("fast statement is not flagged", func(t *testing.T) {
		span := run(nil, 0)
		assert.NotContains(t, span.Attributes(), attribute.Bool("db.slow_query", true))
	})

	t.Run("missing row is not an error", func(t *testing.T) {
		span := run(gorm.ErrRecordNotFound, 0)
		assert.Equal(t, codes.Unset, span.Status().Code)
	})

	t.Run("driver error marks the span", func(t *testing.T) {
		span := run(errors.New("connection reset"), 0)
		assert.Equal(t, codes.Error, span.Status().Code)
	})
}
