package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel string

const (
	FatalLevel    = "fatal"
	ErrorLevel    = "error"
	WarningLevel  = "warn"
	DebugLevel    = "debug"
	InfoLevel     = "info"
	TraceLevel    = "trace"
	DisabledLevel = "disabled"
)

// zap has no trace level, one step below debug is used instead.
const zapTraceLevel = zapcore.DebugLevel - 1

var levelmap = map[LogLevel]zapcore.Level{
	TraceLevel:    zapTraceLevel,
	DebugLevel:    zapcore.DebugLevel,
	InfoLevel:     zapcore.InfoLevel,
	WarningLevel:  zapcore.WarnLevel,
	ErrorLevel:    zapcore.ErrorLevel,
	FatalLevel:    zapcore.FatalLevel,
	DisabledLevel: zapcore.FatalLevel + 1,
}

// Log file configuration.
type LogConfig struct {
	// Path to a log file. Empty logs to stdout/stderr only.
	File string `mapstructure:"file"`
	// Rotate the log file when it grows beyond this many megabytes.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// Number of rotated files to keep.
	MaxBackups int `mapstructure:"max_backups"`
	// Compress rotated files.
	Compress bool `mapstructure:"compress"`
}

var (
	mu     sync.Mutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger *zap.Logger
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	file   io.Writer
)

func init() {
	build()
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l == zapTraceLevel {
		enc.AppendString(fmt.Sprintf("- %5s -", TraceLevel))
		return
	}
	enc.AppendString(fmt.Sprintf("- %5s -", l.String()))
}

func encodeTime(ts time.Time, enc zapcore.PrimitiveArrayEncoder) {
	ts = ts.Local()
	enc.AppendString(fmt.Sprintf("%s.%03d", ts.Format("2006-01-02 15:04:05"), ts.Nanosecond()/1000000))
}

func build() {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      encodeLevel,
		EncodeTime:       encodeTime,
		EncodeDuration:   zapcore.StringDurationEncoder,
		ConsoleSeparator: " ",
	}
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	low := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.WarnLevel
	})
	high := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l >= zapcore.WarnLevel
	})

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(stdout), low),
		zapcore.NewCore(encoder, zapcore.AddSync(stderr), high),
	}
	if file != nil {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(file), level))
	}

	logger = zap.New(zapcore.NewTee(cores...))
}

// Redirect log output. Informational messages are written to the first writer,
// warnings and errors to the second.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdout = out
	stderr = errOut
	build()
}

// Configure additional output to a rotated log file.
func Configure(config LogConfig) {
	mu.Lock()
	defer mu.Unlock()

	if config.File == "" {
		file = nil
	} else {
		file = &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    max(config.MaxSizeMB, 10),
			MaxBackups: max(config.MaxBackups, 1),
			Compress:   config.Compress,
		}
	}
	build()
}

func SetLevel(loglevel LogLevel) error {
	l, ok := levelmap[loglevel]
	if !ok {
		return fmt.Errorf("No such log level %s", loglevel)
	}

	level.SetLevel(l)
	return nil
}

func ValidLogLevel(level LogLevel) bool {
	_, ok := levelmap[level]
	return ok
}

func ShouldLog(logLevel, enabled LogLevel) bool {
	if !ValidLogLevel(logLevel) || !ValidLogLevel(enabled) {
		return false
	}
	return levelmap[logLevel] >= levelmap[enabled]
}

func Log(level LogLevel, msg string, args ...interface{}) {
	if l, ok := levelmap[level]; ok && level != DisabledLevel {
		if len(args) > 0 {
			write(l, fmt.Sprintf(msg, args...))
		} else {
			write(l, msg)
		}
	}
}

func write(l zapcore.Level, msg string) {
	mu.Lock()
	current := logger
	mu.Unlock()

	if ce := current.Check(l, msg); ce != nil {
		ce.Write()
	}
}

func sprintln(args ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(args...), "\n")
}

func Trace(args ...interface{}) {
	write(zapTraceLevel, sprintln(args...))
}

func Debug(args ...interface{}) {
	write(zapcore.DebugLevel, sprintln(args...))
}

func Info(args ...interface{}) {
	write(zapcore.InfoLevel, sprintln(args...))
}

func Warn(args ...interface{}) {
	write(zapcore.WarnLevel, sprintln(args...))
}

func Error(args ...interface{}) {
	write(zapcore.ErrorLevel, sprintln(args...))
}

func Fatal(args ...interface{}) {
	write(zapcore.FatalLevel, sprintln(args...))
}

func Tracef(format string, args ...interface{}) {
	write(zapTraceLevel, fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...interface{}) {
	write(zapcore.DebugLevel, fmt.Sprintf(format, args...))
}

func Infof(format string, args ...interface{}) {
	write(zapcore.InfoLevel, fmt.Sprintf(format, args...))
}

func Warnf(format string, args ...interface{}) {
	write(zapcore.WarnLevel, fmt.Sprintf(format, args...))
}

func Errorf(format string, args ...interface{}) {
	write(zapcore.ErrorLevel, fmt.Sprintf(format, args...))
}

func Fatalf(format string, args ...interface{}) {
	write(zapcore.FatalLevel, fmt.Sprintf(format, args...))
}

func DebugError(err error) {
	indent := 1

	Debug(err.Error())

	for {
		if err = errors.Unwrap(err); err == nil {
			break
		}

		Debugf("| %d: %s", indent, err.Error())
		indent += 1
	}
}
