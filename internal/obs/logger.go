// Package obs holds the logging and metrics wrappers shared by every
// component: a zap logger with domain-flavored helper methods, and the
// prometheus registrations consumed by the /metrics endpoint.
package obs

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with chained field helpers in the style the
// rest of the pipeline expects: WithX returns a new Logger so call
// sites can build up context without mutating a shared instance.
type Logger struct {
	z *zap.Logger
}

// Config controls logger construction; mirrors the env-driven config
// pattern used throughout the codebase.
type Config struct {
	Level       string
	Development bool
	Service     string
}

func NewConfigFromEnv() Config {
	return Config{
		Level:       getEnv("LOG_LEVEL", "info"),
		Development: getEnv("LOG_DEV", "false") == "true",
		Service:     getEnv("SERVICE_NAME", "dealengine"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	_ = level.UnmarshalText([]byte(cfg.Level))

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)

	z, err := zcfg.Build(zap.Fields(zap.String("service", cfg.Service)))
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

func NewNop() *Logger {
	return &Logger{z: zap.NewNop()}
}

func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{z: l.z.With(fields...)}
}

func (l *Logger) WithRequestID(id string) *Logger {
	return l.With(zap.String("request_id", id))
}

func (l *Logger) WithDealID(id string) *Logger {
	return l.With(zap.String("deal_id", id))
}

func (l *Logger) WithUserID(id string) *Logger {
	return l.With(zap.String("user_id", id))
}

func (l *Logger) WithError(err error) *Logger {
	return l.With(zap.Error(err))
}

func (l *Logger) Info(msg string, fields ...zap.Field)  { l.z.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.z.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.z.Error(msg, fields...) }
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.z.Debug(msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.z.Fatal(msg, fields...) }

// PipelineEvent logs a pipeline stage transition (e.g. normalized ->
// scored) with consistent field names.
func (l *Logger) PipelineEvent(stage, dealID, outcome string) {
	l.z.Info("pipeline_event",
		zap.String("stage", stage),
		zap.String("deal_id", dealID),
		zap.String("outcome", outcome),
	)
}

// CacheOp logs a cache hit/miss/error with consistent field names.
func (l *Logger) CacheOp(op, key string, hit bool, err error) {
	fields := []zap.Field{zap.String("op", op), zap.String("key", key), zap.Bool("hit", hit)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		l.z.Warn("cache_op", fields...)
		return
	}
	l.z.Debug("cache_op", fields...)
}

// ExternalCall logs a call to an out-of-process collaborator (text
// model, broker) including whether the circuit breaker tripped.
func (l *Logger) ExternalCall(target string, latencyMS float64, err error) {
	fields := []zap.Field{zap.String("target", target), zap.Float64("latency_ms", latencyMS)}
	if err != nil {
		fields = append(fields, zap.Error(err))
		l.z.Warn("external_call", fields...)
		return
	}
	l.z.Debug("external_call", fields...)
}

func (l *Logger) Sync() error {
	return l.z.Sync()
}

func (l *Logger) Raw() *zap.Logger {
	return l.z
}
