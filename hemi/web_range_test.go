// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package hemi

import (
	"testing"
)

func TestParseRange(t *testing.T) {
	tests := []struct {
		spec   string
		size   int64
		result int
		from   int64
		last   int64
	}{
		{"bytes=0-99", 1000, rangeSatisfiable, 0, 99},
		{"bytes=-100", 1000, rangeSatisfiable, 900, 999},
		{"bytes=5000-", 1000, rangeUnsatisfiable, 0, 0},
		{"bytes=100-", 1000, rangeSatisfiable, 100, 999},
		{"bytes=900-2000", 1000, rangeSatisfiable, 900, 999},
		{"bytes=-2000", 1000, rangeSatisfiable, 0, 999},
		{"bytes=-0", 1000, rangeUnsatisfiable, 0, 0},
		{"bytes=1000-1000", 1000, rangeUnsatisfiable, 0, 0},
		{"Bytes= 0-0", 1000, rangeSatisfiable, 0, 0},
		{"bytes=0-0", 0, rangeUnsatisfiable, 0, 0},
		{"bytes=9-1", 1000, rangeIgnored, 0, 0},
		{"bytes=0-1,5-6", 1000, rangeIgnored, 0, 0},
		{"bytes=a-b", 1000, rangeIgnored, 0, 0},
		{"bytes=", 1000, rangeIgnored, 0, 0},
		{"items=0-1", 1000, rangeIgnored, 0, 0},
		{"bytes=99999999999999999999-", 1000, rangeIgnored, 0, 0},
	}
	for _, test := range tests {
		rang, result := parseRange(test.spec, test.size)
		if result != test.result {
			t.Errorf("%q: result=%d", test.spec, result)
			continue
		}
		if result == rangeSatisfiable && (rang.from != test.from || rang.last != test.last) {
			t.Errorf("%q: from=%d last=%d", test.spec, rang.from, rang.last)
		}
	}
}

func TestContentRange(t *testing.T) {
	if s := (byteRange{0, 99}).contentRange(1000); s != "bytes 0-99/1000" {
		t.Error(s)
	}
	if s := (byteRange{900, 999}).contentRange(1000); s != "bytes 900-999/1000" {
		t.Error(s)
	}
	if s := unsatisfiedRange(1000); s != "bytes */1000" {
		t.Error(s)
	}
	if n := (byteRange{0, 99}).size(); n != 100 {
		t.Error(n)
	}
}
