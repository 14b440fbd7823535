// Package logger предоставляет структурированное логирование на базе zerolog.
// JSON формат для production, ConsoleWriter для локальной разработки.
// Сообщения логов пишутся на русском языке.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// log - глобальный экземпляр логгера.
var log zerolog.Logger

// Config содержит настройки для инициализации логгера.
type Config struct {
	// Level — минимальный уровень: "trace", "debug", "info", "warn", "error".
	// Неизвестное значение трактуется как "info".
	Level string

	// Pretty включает ConsoleWriter вместо JSON.
	Pretty bool

	// Output — куда писать логи. По умолчанию os.Stdout.
	Output io.Writer
}

// init настраивает логгер по LOG_LEVEL / LOG_PRETTY, чтобы пакет был
// пригоден к использованию до вызова Init (например, в тестах).
func init() {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	Init(Config{
		Level:  level,
		Pretty: strings.EqualFold(os.Getenv("LOG_PRETTY"), "true"),
	})
}

// Init инициализирует глобальный логгер с заданной конфигурацией.
func Init(cfg Config) {
	var output io.Writer = os.Stdout
	if cfg.Output != nil {
		output = cfg.Output
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	level := parseLevel(cfg.Level)

	log = zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Caller().
		Logger()

	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
}

// parseLevel преобразует строковое представление уровня в zerolog.Level.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug создает событие уровня debug.
// Пример: logger.Debug().Str("short_ref", "3A9F0C21").Msg("Платёж ещё не в конечном состоянии")
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info создает событие уровня info.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn создает событие уровня warn.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error создает событие уровня error.
// Пример: logger.Error().Err(err).Str("short_ref", ref).Msg("Ошибка сверки платежа")
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal создает событие уровня fatal. После Msg() процесс завершится с кодом 1.
func Fatal() *zerolog.Event {
	return log.Fatal()
}

// With создает дочерний логгер с дополнительными полями.
//
//	sweepLog := logger.With().Str("component", "sweep").Logger()
func With() zerolog.Context {
	return log.With()
}

// Logger возвращает глобальный экземпляр zerolog.Logger.
func Logger() zerolog.Logger {
	return log
}

// SetGlobalLogger подменяет глобальный логгер (используется в тестах).
func SetGlobalLogger(l zerolog.Logger) {
	log = l
}
