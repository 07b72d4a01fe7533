package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewZapLogger returns a *zap.Logger whose output is forwarded to logger.
// The 3D scoring engines log through zap; this bridges them into the
// service's structured log stream.
func NewZapLogger(logger *Logger) *zap.Logger {
	return zap.New(&zapBridge{logger: logger})
}

// zapBridge implements zapcore.Core on top of Logger.
type zapBridge struct {
	logger *Logger
}

func mapZapLevel(level zapcore.Level) LogLevel {
	switch level {
	case zapcore.DebugLevel:
		return DebugLevel
	case zapcore.InfoLevel:
		return InfoLevel
	case zapcore.WarnLevel:
		return WarnLevel
	default:
		return ErrorLevel
	}
}

func fieldValue(field zapcore.Field) interface{} {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return field.Integer
	case zapcore.BoolType:
		return field.Integer == 1
	default:
		return field.Interface
	}
}

func fieldMap(fields []zapcore.Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = fieldValue(f)
	}
	return m
}

func (b *zapBridge) Enabled(level zapcore.Level) bool {
	return b.logger.shouldLog(mapZapLevel(level))
}

func (b *zapBridge) With(fields []zapcore.Field) zapcore.Core {
	return &zapBridge{logger: b.logger.WithFields(fieldMap(fields))}
}

func (b *zapBridge) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if b.Enabled(ent.Level) {
		return ce.AddCore(ent, b)
	}
	return ce
}

func (b *zapBridge) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	f := fieldMap(fields)
	if ent.LoggerName != "" {
		f["logger"] = ent.LoggerName
	}
	b.logger.log(mapZapLevel(ent.Level), ent.Message, f)
	return nil
}

func (b *zapBridge) Sync() error { return nil }
