// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Level       string // zerolog level name, default info
	Development bool   // human-readable console output
	File        string // rotated JSON file sink, optional
	Service     string
}

// New returns a timestamped logger writing to out and, when opts.File is set,
// to a size-rotated file. The returned closer releases the file.
func New(out io.Writer, opts Options) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	var console io.Writer = out
	if opts.Development {
		console = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05.000"}
	}

	writers := []io.Writer{console}
	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nil, err
		}
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10, // MB
			MaxBackups: 7,
			MaxAge:     28, // days
			Compress:   true,
		}
		writers = append(writers, file)
		closer = file
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger(), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
