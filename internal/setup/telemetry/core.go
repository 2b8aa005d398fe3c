package telemetry

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Core implements zapcore.Core to forward warnings and errors to OpenTelemetry
// as short spans. It is a no-op until a tracer provider is installed.
type Core struct {
	zapcore.LevelEnabler
	tracer trace.Tracer
	fields []zapcore.Field
}

// NewCore creates a new core that forwards entries at or above
// WarnLevel that enab also allows.
func NewCore(enab zapcore.LevelEnabler) zapcore.Core {
	return &Core{
		LevelEnabler: enab,
		tracer:       otel.Tracer("cfvisualizer/logs"),
	}
}

func (c *Core) Enabled(lvl zapcore.Level) bool {
	return lvl >= zapcore.WarnLevel && c.LevelEnabler.Enabled(lvl)
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	return &Core{
		LevelEnabler: c.LevelEnabler,
		tracer:       c.tracer,
		fields:       slices.Concat(c.fields, fields),
	}
}

func (c *Core) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *Core) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	_, span := c.tracer.Start(context.Background(), "log."+Category(ent))
	defer span.End()

	span.SetAttributes(Attributes(ent, slices.Concat(c.fields, fields))...)
	return nil
}

func (c *Core) Sync() error {
	return nil
}

// Attributes flattens a log entry and its fields into span attributes.
func Attributes(ent zapcore.Entry, fields []zapcore.Field) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("log.message", ent.Message),
		attribute.String("log.level", ent.Level.String()),
		attribute.String("log.logger", ent.LoggerName),
		attribute.String("log.caller", ent.Caller.TrimmedPath()),
	}

	enc := zapcore.NewMapObjectEncoder()
	for _, field := range fields {
		field.AddTo(enc)
	}

	for key, value := range enc.Fields {
		attrs = append(attrs, attribute.String(key, fmt.Sprint(value)))
	}

	return attrs
}

// Category names the subsystem a log entry came from.
func Category(ent zapcore.Entry) string {
	fn := ent.Caller.Function

	switch {
	case strings.Contains(fn, "/internal/fetcher"):
		return "fetcher"
	case strings.Contains(fn, "/internal/cache"):
		return "cache"
	case strings.Contains(fn, "/internal/codeforces"), strings.Contains(fn, "/internal/setup/client"):
		return "api"
	case strings.Contains(fn, "/internal/redis"):
		return "redis"
	case strings.Contains(fn, "/internal/setup"):
		return "setup"
	default:
		return "application"
	}
}
