package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger writes structured entries through zerolog. Error entries are also
// handed to the collector when one is attached.
type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr or a file path
	TimeFormat string
}

func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	out, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: cfg.TimeFormat}
	}

	zl := zerolog.New(out).With().Timestamp().CallerWithSkipFrameCount(4).Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("could not open log file: %w", err)
	}
	return f, nil
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.value())
	}
	return &Logger{zl: ctx.Logger(), collector: l.collector}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(l.zl.Warn(), msg, fields) }

func (l *Logger) Error(msg string, fields ...Field) {
	l.write(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

func (l *Logger) write(e *zerolog.Event, msg string, fields []Field) {
	for _, f := range fields {
		f.addTo(e)
	}
	e.Msg(msg)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	// collect <- Error <- caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		if i := strings.LastIndex(file, "GoldPredict/"); i >= 0 {
			file = file[i+len("GoldPredict/"):]
		}
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	values := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		values[f.Key] = f.value()
	}
	l.collector.AddLog(level, msg, values, caller)
}

// AddCollector attaches a collector, replacing and closing any previous one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

// RemoveCollector flushes and detaches the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

type fieldKind uint8

const (
	kindAny fieldKind = iota
	kindString
	kindInt64
	kindFloat
	kindBool
	kindError
	kindDuration
)

// Field is one key/value pair attached to an entry.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	flt  float64
	any  interface{}
}

func (f Field) addTo(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.str)
	case kindInt64:
		e.Int64(f.Key, f.num)
	case kindFloat:
		e.Float64(f.Key, f.flt)
	case kindBool:
		e.Bool(f.Key, f.num != 0)
	case kindError:
		if err, _ := f.any.(error); err != nil {
			e.Err(err)
		}
	case kindDuration:
		e.Dur(f.Key, time.Duration(f.num))
	default:
		e.Interface(f.Key, f.any)
	}
}

// value is the plain form used by With and by the collector.
func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindInt64:
		return f.num
	case kindFloat:
		return f.flt
	case kindBool:
		return f.num != 0
	case kindError:
		if err, _ := f.any.(error); err != nil {
			return err.Error()
		}
		return nil
	case kindDuration:
		return time.Duration(f.num).String()
	default:
		return f.any
	}
}

func String(key, value string) Field {
	return Field{Key: key, kind: kindString, str: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, kind: kindInt64, num: int64(value)}
}

func Int64(key string, value int64) Field {
	return Field{Key: key, kind: kindInt64, num: value}
}

func Float64(key string, value float64) Field {
	return Field{Key: key, kind: kindFloat, flt: value}
}

func Any(key string, value interface{}) Field {
	return Field{Key: key, any: value}
}

func Bool(key string, value bool) Field {
	f := Field{Key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

// Error attaches err under the "error" key.
func Error(err error) Field {
	return Field{Key: "error", kind: kindError, any: err}
}

// Duration is rendered in zerolog's duration unit (milliseconds by default).
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, kind: kindDuration, num: int64(value)}
}
