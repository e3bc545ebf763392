package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/wanxtv/wanx/backend/internal/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	dbSystemKey    = "db.system"
	dbTableKey     = "db.table"
	dbOperationKey = "db.operation"
	dbStatementKey = "db.statement"

	spanKey      = "otel:span"
	startTimeKey = "otel:startTime"
	operationKey = "otel:operation"
)

// GORMTracingPlugin returns a GORM plugin that traces statements and records query metrics
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name      string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
		operation string
	}{
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "SELECT"},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "RAW"},
	}
	for _, s := range steps {
		op := s.operation
		if err := s.before("telemetry:before_"+s.name, func(db *gorm.DB) { p.startSpan(db, op) }); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", s.name, err)
		}
		if err := s.after("telemetry:after_"+s.name, p.endSpan); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", s.name, err)
		}
	}
	return nil
}

func (p *tracingPlugin) startSpan(db *gorm.DB, operation string) {
	db.InstanceSet(startTimeKey, time.Now())
	db.InstanceSet(operationKey, operation)

	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(dbSystemKey, db.Dialector.Name()),
			attribute.String(dbTableKey, tableName(db)),
			attribute.String(dbOperationKey, operation),
		),
	)
	db.InstanceSet(spanKey, span)
}

func (p *tracingPlugin) endSpan(db *gorm.DB) {
	var elapsed time.Duration
	if raw, ok := db.InstanceGet(startTimeKey); ok {
		if start, ok := raw.(time.Time); ok {
			elapsed = time.Since(start)
		}
	}
	operation := "UNKNOWN"
	if raw, ok := db.InstanceGet(operationKey); ok {
		operation, _ = raw.(string)
	}
	err := db.Error
	if err == gorm.ErrRecordNotFound {
		err = nil
	}
	metrics.RecordDatabaseQuery(operation, tableName(db), elapsed, err)

	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	span.SetAttributes(attribute.Int64("db.duration_ms", elapsed.Milliseconds()))
	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > 500 {
			sql = sql[:500] + "... (truncated)"
		}
		span.SetAttributes(attribute.String(dbStatementKey, sql))
	}
	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	}
}

func tableName(db *gorm.DB) string {
	if db.Statement.Table != "" {
		return db.Statement.Table
	}
	return "unknown"
}
