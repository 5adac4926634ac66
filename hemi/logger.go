// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Loggers log events.

package hemi

import (
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// LogConfig
type LogConfig struct {
	Level      string `yaml:"level"`      // "debug", "info", "warn", "error", "disabled"
	Console    bool   `yaml:"console"`    // human readable output on stderr instead of JSON
	File       string `yaml:"file"`       // "/path/to/file.log". rotated by size if set
	MaxSize    int    `yaml:"maxSize"`    // megabytes before rotation
	MaxBackups int    `yaml:"maxBackups"` // rotated files to keep
	MaxAge     int    `yaml:"maxAge"`     // days to keep rotated files
	Compress   bool   `yaml:"compress"`   // gzip rotated files
}

// NewLogger creates the logger of a server. Output goes to the rotated file if one is
// configured, and to stderr otherwise (or additionally in debug mode).
func NewLogger(config LogConfig, debug bool) zerolog.Logger {
	var stderr io.Writer = os.Stderr
	if config.Console {
		stderr = zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor, TimeFormat: time.RFC3339}
	}
	var output io.Writer
	if config.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   config.File,
			MaxSize:    config.MaxSize,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAge,
			Compress:   config.Compress,
		}
		if debug {
			output = io.MultiWriter(fileLogger, stderr)
		} else {
			output = fileLogger
		}
	} else {
		output = stderr
	}
	return newLogger(output, config.Level, debug)
}

func newLogger(output io.Writer, level string, debug bool) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		logLevel = zerolog.InfoLevel
	}
	if debug && logLevel > zerolog.DebugLevel {
		logLevel = zerolog.DebugLevel
	}
	return zerolog.New(output).Level(logLevel).With().Timestamp().Logger()
}
