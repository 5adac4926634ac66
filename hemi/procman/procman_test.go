// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package procman

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hexinfra/webcore/hemi"
)

func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd(&Opts{ProgramName: "webcore", ProgramTitle: "Webcore"})
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := runCmd(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if stdout != "webcore "+hemi.Version+"\n" {
		t.Errorf("stdout=%q", stdout)
	}
}

func TestCheck(t *testing.T) {
	file := filepath.Join(t.TempDir(), "webcore.yaml")
	if err := os.WriteFile(file, []byte("listen: [\":9090\"]\nworkers: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	stdout, _, err := runCmd(t, "check", "--config", file)
	if err != nil || !strings.Contains(stdout, "PASS") {
		t.Errorf("stdout=%q err=%v", stdout, err)
	}
	if _, stderr, err := runCmd(t, "check", "-c", file, "--workers", "0"); err == nil || !strings.Contains(stderr, "FAIL") {
		t.Errorf("flags must override the file: stderr=%q", stderr)
	}
	if _, _, err := runCmd(t, "check", "-c", file+".missing"); err == nil {
		t.Error("missing config file")
	}
}

func TestLoadConfigFlags(t *testing.T) {
	cmd := NewRootCmd(&Opts{ProgramName: "webcore"})
	checkCmd, _, err := cmd.Find([]string{"check"})
	if err != nil {
		t.Fatal(err)
	}
	if err := checkCmd.ParseFlags([]string{"-l", "127.0.0.1:1,127.0.0.1:2", "--root", "/srv/www", "--debug", "2"}); err != nil {
		t.Fatal(err)
	}
	var f flags
	f.listen = []string{"127.0.0.1:1", "127.0.0.1:2"}
	f.webRoot = "/srv/www"
	f.debug = 2
	config, err := loadConfig(checkCmd, &f)
	if err != nil {
		t.Fatal(err)
	}
	if len(config.Listen) != 2 || !config.Static.Enabled || config.Static.WebRoot != "/srv/www" || config.Debug != 2 {
		t.Errorf("config=%+v", config)
	}
	if config.Workers <= 0 {
		t.Error("unchanged flags keep the defaults")
	}
}
