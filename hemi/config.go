// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Server configuration. Loaded once, immutable after the server starts.

package hemi

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the configuration of a Server.
type Config struct {
	Name    string   `yaml:"name"`    // value of the Server header
	Listen  []string `yaml:"listen"`  // one gate per address, like ":8080" or "127.0.0.1:8081"
	Debug   int      `yaml:"debug"`   // 0: none, 1: lifecycle, 2: per request traces
	Workers int      `yaml:"workers"` // size of the worker pool
	Queue   int      `yaml:"queue"`   // pending tasks the worker pool buffers before Submit blocks

	ProcessByPool      bool          `yaml:"processByPool"`      // run handles on the worker pool instead of the connection's goroutine
	MaxHeadSize        int           `yaml:"maxHeadSize"`        // max size of a request head, in bytes
	MaxBodySize        int64         `yaml:"maxBodySize"`        // max declared content length, in bytes
	MaxConns           int           `yaml:"maxConns"`           // max concurrent connections per gate. 0 means unlimited
	MaxRequestsPerConn int           `yaml:"maxRequestsPerConn"` // keep-alive cap. 0 means unlimited
	ReadTimeout        time.Duration `yaml:"readTimeout"`        // for a started request
	WriteTimeout       time.Duration `yaml:"writeTimeout"`       // for each write
	IdleTimeout        time.Duration `yaml:"idleTimeout"`        // waiting for the first byte of a request
	ReusePort          bool          `yaml:"reusePort"`          // SO_REUSEPORT on listeners
	CORSAllowAll       bool          `yaml:"corsAllowAll"`       // answer cross-origin requests from anywhere

	Static StaticConfig `yaml:"static"`
	Log    LogConfig    `yaml:"log"`
}

// StaticConfig configures the static file fallback.
type StaticConfig struct {
	Enabled      bool              `yaml:"enabled"`
	WebRoot      string            `yaml:"webRoot"`
	IndexFile    string            `yaml:"indexFile"`
	AllowExts    []string          `yaml:"allowExts"` // empty means all extensions are allowed
	DenyExts     []string          `yaml:"denyExts"`
	CacheControl string            `yaml:"cacheControl"` // value of Cache-Control on served files, empty means none
	MimeTypes    map[string]string `yaml:"mimeTypes"`    // overrides the default table
	DefaultType  string            `yaml:"defaultType"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Name:          "webcore",
		Listen:        []string{":8080"},
		Workers:       runtime.NumCPU() * 4,
		Queue:         1024,
		ProcessByPool: true,
		MaxHeadSize:   _64K,
		MaxBodySize:   _32M,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   120 * time.Second,
		Static: StaticConfig{
			Enabled:     false,
			WebRoot:     "web",
			IndexFile:   "index.html",
			DefaultType: typeOctetStream,
		},
		Log: LogConfig{
			Level:      "info",
			Console:    true,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
	}
}

// LoadConfig reads a YAML file over the default configuration.
func LoadConfig(file string) (*Config, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML text over the default configuration. Missing keys keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the configuration and normalizes extension lists.
func (c *Config) Validate() error {
	if len(c.Listen) == 0 {
		return errors.New("config: at least one listen address is required")
	}
	for _, address := range c.Listen {
		if address == "" {
			return errors.New("config: empty listen address")
		}
	}
	if c.MaxHeadSize <= 0 {
		return fmt.Errorf("config: invalid maxHeadSize %d", c.MaxHeadSize)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("config: invalid maxBodySize %d", c.MaxBodySize)
	}
	if c.ProcessByPool && c.Workers <= 0 {
		return fmt.Errorf("config: invalid workers %d", c.Workers)
	}
	if c.Queue < 0 {
		return fmt.Errorf("config: invalid queue %d", c.Queue)
	}
	if c.MaxConns < 0 || c.MaxRequestsPerConn < 0 {
		return errors.New("config: limits must not be negative")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	if c.Static.Enabled {
		if c.Static.WebRoot == "" {
			return errors.New("config: static.webRoot is required when static is enabled")
		}
		if c.Static.IndexFile == "" || strings.Contains(c.Static.IndexFile, "/") {
			return fmt.Errorf("config: invalid static.indexFile %q", c.Static.IndexFile)
		}
	}
	c.Static.AllowExts = normalizeExts(c.Static.AllowExts)
	c.Static.DenyExts = normalizeExts(c.Static.DenyExts)
	return nil
}

func normalizeExts(exts []string) []string {
	if len(exts) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		if ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")); ext != "" {
			normalized = append(normalized, ext)
		}
	}
	return normalized
}
