// Package logging оборачивает slog.Logger с единообразными полями для операций разметки.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger структурированный логгер с полями предметной области
type Logger struct {
	*slog.Logger
}

// New создаёт логгер с указанным обработчиком; nil означает текстовый вывод в stderr.
func New(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewText человекочитаемый вывод
func NewText(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewJSON вывод в JSON
func NewJSON(w io.Writer, level slog.Level) *Logger {
	return New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// Noop логгер, который ничего не пишет
func Noop() *Logger {
	return New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(1000)}))
}

// FromConfig выбирает формат и уровень по строкам конфигурации.
func FromConfig(format, level string) *Logger {
	lvl := ParseLevel(level)
	if strings.EqualFold(format, "json") {
		return NewJSON(os.Stderr, lvl)
	}
	return NewText(os.Stderr, lvl)
}

// ParseLevel понимает debug, info, warn, error; иначе info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With добавляет поля
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithPatch добавляет метку патча
func (l *Logger) WithPatch(label string) *Logger {
	return l.With("patch", label)
}

// LogCreate логирует создание аннотации
func (l *Logger) LogCreate(ctx context.Context, key, annotationType string, err error) {
	if err != nil {
		l.WarnContext(ctx, "annotation rejected",
			"type", annotationType,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "annotation created",
		"key", key,
		"type", annotationType,
	)
}

// LogDelete логирует удаление аннотации
func (l *Logger) LogDelete(ctx context.Context, location string, deleted bool) {
	l.DebugContext(ctx, "annotation delete",
		"location", location,
		"deleted", deleted,
	)
}

// LogRestore логирует восстановление сессии
func (l *Logger) LogRestore(ctx context.Context, restored, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "session restore failed",
			"error", err,
		)
		return
	}
	if skipped > 0 {
		l.WarnContext(ctx, "session restored with skipped records",
			"restored", restored,
			"skipped", skipped,
		)
		return
	}
	l.InfoContext(ctx, "session restored",
		"restored", restored,
	)
}

// LogExport логирует итог экспорта
func (l *Logger) LogExport(ctx context.Context, folder string, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"folder", folder,
			"files", files,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "export completed",
		"folder", folder,
		"files", files,
	)
}

// LogSkip логирует пропущенный элемент при импорте
func (l *Logger) LogSkip(ctx context.Context, item, reason string) {
	l.WarnContext(ctx, "skipped",
		"item", item,
		"reason", reason,
	)
}
