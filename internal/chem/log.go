package chem

import "go.uber.org/zap"

// Level is the logging threshold of an Engine. Messages below the threshold
// are dropped.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// EngineLog is the leveled logger attached to an Engine. Callers may raise
// the threshold around noisy operations and restore it afterwards; the
// conformer pipeline does exactly that while embedding.
type EngineLog struct {
	level Level
	zl    *zap.Logger
}

// NewEngineLog returns a logger at the warning threshold. A nil zap logger
// falls back to zap.NewNop.
func NewEngineLog(zl *zap.Logger) *EngineLog {
	if zl == nil {
		zl = zap.NewNop()
	}
	return &EngineLog{level: LevelWarning, zl: zl}
}

// GetLevel returns the current threshold.
func (l *EngineLog) GetLevel() Level { return l.level }

// SetLevel replaces the threshold and returns the previous one.
func (l *EngineLog) SetLevel(v Level) Level {
	prev := l.level
	l.level = v
	return prev
}

func (l *EngineLog) Debug(msg string, fields ...zap.Field) {
	if l.level <= LevelDebug {
		l.zl.Debug(msg, fields...)
	}
}

func (l *EngineLog) Info(msg string, fields ...zap.Field) {
	if l.level <= LevelInfo {
		l.zl.Info(msg, fields...)
	}
}

func (l *EngineLog) Warning(msg string, fields ...zap.Field) {
	if l.level <= LevelWarning {
		l.zl.Warn(msg, fields...)
	}
}

func (l *EngineLog) Error(msg string, fields ...zap.Field) {
	if l.level <= LevelError {
		l.zl.Error(msg, fields...)
	}
}
