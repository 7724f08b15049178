package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockledger/internal/infrastructure/config"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingPlugin registers otelgorm on a GORM handle and flags statement
// spans that exceed the slow query threshold.
type DBTracingPlugin struct {
	enabled    bool
	logFullSQL bool
	slowQuery  time.Duration
	dbName     string
	provider   trace.TracerProvider
	logger     *zap.Logger
}

// DBTracingOption configures a DBTracingPlugin
type DBTracingOption func(*DBTracingPlugin)

// WithDBTracerProvider sends statement spans to tp instead of the global provider
func WithDBTracerProvider(tp trace.TracerProvider) DBTracingOption {
	return func(p *DBTracingPlugin) {
		p.provider = tp
	}
}

// NewDBTracingPlugin builds the plugin from the [telemetry] section. Spans
// carry the postgres database name, or the file path for sqlite.
func NewDBTracingPlugin(cfg config.TelemetryConfig, db config.DatabaseConfig, logger *zap.Logger, opts ...DBTracingOption) *DBTracingPlugin {
	if logger == nil {
		logger = zap.NewNop()
	}
	name := db.DBName
	if db.Driver == config.DriverSQLite {
		name = db.Path
	}
	p := &DBTracingPlugin{
		enabled:    cfg.Enabled,
		logFullSQL: cfg.LogFullSQL,
		slowQuery:  cfg.SlowQueryThresh,
		dbName:     name,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterOtelGorm installs the tracing callbacks on db. It does nothing when
// telemetry is disabled.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.enabled {
		p.logger.Debug("database tracing disabled")
		return nil
	}

	var opts []otelgorm.Option
	if p.dbName != "" {
		opts = append(opts, otelgorm.WithDBName(p.dbName))
	}
	if !p.logFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if p.provider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(p.provider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// The slow query check must run before otelgorm ends the span.
	cb := db.Callback()
	hooks := []struct {
		callback callbackRegister
		hook     func(*gorm.DB)
		name     string
	}{
		{cb.Create().Before("gorm:create"), markStart, "start_create"},
		{cb.Create().After("gorm:create").Before("otel:after:create"), p.afterStatement, "end_create"},
		{cb.Query().Before("gorm:query"), markStart, "start_query"},
		{cb.Query().After("gorm:query").Before("otel:after:select"), p.afterStatement, "end_query"},
		{cb.Update().Before("gorm:update"), markStart, "start_update"},
		{cb.Update().After("gorm:update").Before("otel:after:update"), p.afterStatement, "end_update"},
		{cb.Delete().Before("gorm:delete"), markStart, "start_delete"},
		{cb.Delete().After("gorm:delete").Before("otel:after:delete"), p.afterStatement, "end_delete"},
		{cb.Row().Before("gorm:row"), markStart, "start_row"},
		{cb.Row().After("gorm:row").Before("otel:after:row"), p.afterStatement, "end_row"},
		{cb.Raw().Before("gorm:raw"), markStart, "start_raw"},
		{cb.Raw().After("gorm:raw").Before("otel:after:raw"), p.afterStatement, "end_raw"},
	}
	for _, h := range hooks {
		if err := h.callback.Register("ledger_trace:"+h.name, h.hook); err != nil {
			return fmt.Errorf("register %s hook: %w", h.name, err)
		}
	}

	p.logger.Info("database tracing enabled",
		zap.String("db_name", p.dbName),
		zap.Bool("log_full_sql", p.logFullSQL),
		zap.Duration("slow_query_threshold", p.slowQuery))
	return nil
}

type callbackRegister interface {
	Register(name string, fn func(*gorm.DB)) error
}

type queryStartKey struct{}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBTracingPlugin) afterStatement(db *gorm.DB) {
	if db.Statement.Context == nil {
		return
	}
	p.flagSlow(db.Statement.Context)
}

// flagSlow marks the span carried by ctx when the statement outran the
// threshold. otelgorm records table, rows and errors itself.
func (p *DBTracingPlugin) flagSlow(ctx context.Context) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	start, ok := ctx.Value(queryStartKey{}).(time.Time)
	if !ok {
		return
	}
	if elapsed := time.Since(start); elapsed > p.slowQuery {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("threshold_ms", p.slowQuery.Milliseconds())))
	}
}
