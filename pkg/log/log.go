// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package log

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/node/utils/logging"
	"go.uber.org/zap"

	"github.com/luxfi/sealbid/pkg/ids"
)

// Logger is a wrapper around luxfi's Logger interface. Fatal only logs; the
// caller decides whether to exit.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
	Sync() error
}

// luxLogger wraps luxfi/node's Logger
type luxLogger struct {
	log    logging.Logger
	fields []zap.Field
}

// NewWithLevel creates a new logger with a specific level and display format.
// Level is one of debug, info, warn, error, fatal; format is console, colors
// or json. With dir set, entries are also written to dir/sealbid.log.
func NewWithLevel(level, format, dir string) (Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	fmtMode, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}

	config := logging.Config{
		DisplayLevel: lvl,
		LogLevel:     logging.Off,
		LogFormat:    fmtMode,
	}
	if dir != "" {
		config.LogLevel = lvl
		config.Directory = dir
		config.MaxSize = 64
		config.MaxFiles = 4
	}

	factory := logging.NewFactory(config)
	log, err := factory.Make("sealbid")
	if err != nil {
		return nil, err
	}
	return &luxLogger{log: log}, nil
}

// Wrap adapts an existing luxfi logger
func Wrap(l logging.Logger) Logger {
	return &luxLogger{log: l}
}

// ParseLevel maps a level name to luxfi's Level type
func ParseLevel(level string) (logging.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logging.Debug, nil
	case "", "info":
		return logging.Info, nil
	case "warn":
		return logging.Warn, nil
	case "error":
		return logging.Error, nil
	case "fatal":
		return logging.Fatal, nil
	}
	return logging.Info, fmt.Errorf("unknown log level %q", level)
}

// ParseFormat maps a format name to luxfi's Format type
func ParseFormat(format string) (logging.Format, error) {
	switch strings.ToLower(format) {
	case "", "console", "plain":
		return logging.Plain, nil
	case "colors":
		return logging.Colors, nil
	case "json":
		return logging.JSON, nil
	}
	return logging.Plain, fmt.Errorf("unknown log format %q", format)
}

// NoOp returns a no-op logger
func NoOp() Logger {
	return &luxLogger{log: logging.NoLog{}}
}

func (l *luxLogger) with(fields []zap.Field) []zap.Field {
	if len(l.fields) == 0 {
		return fields
	}
	return append(append(make([]zap.Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
}

func (l *luxLogger) Debug(msg string, fields ...zap.Field) { l.log.Debug(msg, l.with(fields)...) }
func (l *luxLogger) Info(msg string, fields ...zap.Field)  { l.log.Info(msg, l.with(fields)...) }
func (l *luxLogger) Warn(msg string, fields ...zap.Field)  { l.log.Warn(msg, l.with(fields)...) }
func (l *luxLogger) Error(msg string, fields ...zap.Field) { l.log.Error(msg, l.with(fields)...) }
func (l *luxLogger) Fatal(msg string, fields ...zap.Field) { l.log.Fatal(msg, l.with(fields)...) }

// With returns a child logger carrying the given fields
func (l *luxLogger) With(fields ...zap.Field) Logger {
	return &luxLogger{log: l.log, fields: l.with(fields)}
}

// Sync flushes and closes the log files
func (l *luxLogger) Sync() error {
	l.log.Stop()
	return nil
}

func String(key, val string) zap.Field {
	return zap.String(key, val)
}

func Int(key string, val int) zap.Field {
	return zap.Int(key, val)
}

func Uint64(key string, val uint64) zap.Field {
	return zap.Uint64(key, val)
}

func Bool(key string, val bool) zap.Field {
	return zap.Bool(key, val)
}

func Stringer(key string, val fmt.Stringer) zap.Field {
	return zap.Stringer(key, val)
}

func Error(err error) zap.Field {
	return zap.Error(err)
}

// Address logs a principal in its 0x form
func Address(key string, val ids.Address) zap.Field {
	return zap.Stringer(key, val)
}

// Amount logs a wei amount as a decimal string
func Amount(key string, val *uint256.Int) zap.Field {
	if val == nil {
		return zap.String(key, "0")
	}
	return zap.String(key, val.Dec())
}
