// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hemi

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func TestParseConfig(t *testing.T) {
	config, err := ParseConfig([]byte(`
name: demo
listen: [":9090", "127.0.0.1:9091"]
workers: 8
readTimeout: 5s
idleTimeout: 1m30s
maxRequestsPerConn: 100
static:
  enabled: true
  webRoot: /srv/www
  allowExts: [".HTML", " css", ""]
  mimeTypes:
    md: text/markdown
log:
  level: warn
`))
	if err != nil {
		t.Fatal(err)
	}
	if config.Name != "demo" || !slices.Equal(config.Listen, []string{":9090", "127.0.0.1:9091"}) || config.Workers != 8 {
		t.Errorf("config=%+v", config)
	}
	if config.ReadTimeout != 5*time.Second || config.IdleTimeout != 90*time.Second {
		t.Errorf("timeouts: %v %v", config.ReadTimeout, config.IdleTimeout)
	}
	if config.WriteTimeout != 30*time.Second || config.MaxHeadSize != _64K || !config.ProcessByPool {
		t.Error("missing keys must keep defaults")
	}
	if config.Static.IndexFile != "index.html" || !slices.Equal(config.Static.AllowExts, []string{"html", "css"}) {
		t.Errorf("static=%+v", config.Static)
	}
	if config.Log.Level != "warn" || !config.Log.Console {
		t.Errorf("log=%+v", config.Log)
	}
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []string{
		"listen: []",
		`listen: [""]`,
		"maxHeadSize: 0",
		"maxBodySize: -1",
		"workers: 0",
		"queue: -1",
		"maxConns: -1",
		"readTimeout: -1s",
		"readTimeout: soon",
		"static: {enabled: true, webRoot: ''}",
		"static: {enabled: true, indexFile: a/b.html}",
		"listen: {",
	}
	for _, text := range tests {
		if _, err := ParseConfig([]byte(text)); err == nil {
			t.Errorf("%q accepted", text)
		}
	}
	config, err := ParseConfig([]byte("workers: 0\nprocessByPool: false"))
	if err != nil || config.ProcessByPool {
		t.Errorf("inline mode needs no workers: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	file := filepath.Join(t.TempDir(), "webcore.yaml")
	if err := os.WriteFile(file, []byte("debug: 2\nreusePort: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	config, err := LoadConfig(file)
	if err != nil {
		t.Fatal(err)
	}
	if config.Debug != 2 || !config.ReusePort || config.Name != "webcore" {
		t.Errorf("config=%+v", config)
	}
	if _, err := LoadConfig(file + ".missing"); err == nil {
		t.Error("missing file")
	}
}
