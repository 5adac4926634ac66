// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Unit tests for common elements.

package hemi

import (
	"testing"
)

func TestI64ToDec(t *testing.T) {
	tests := []struct {
		i64 int64
		dec string
	}{
		{0, "0"},
		{9, "9"},
		{10, "10"},
		{1000, "1000"},
		{9223372036854775807, "9223372036854775807"},
	}
	var dec [19]byte
	for _, test := range tests {
		if n := i64ToDec(test.i64, dec[:]); string(dec[:n]) != test.dec {
			t.Errorf("i64ToDec(%d)=%s", test.i64, dec[:n])
		}
	}
}

func TestPctDecode(t *testing.T) {
	tests := []struct {
		input  string
		expect string
		ok     bool
	}{
		{"abc", "abc", true},
		{"a%20b", "a b", true},
		{"%E4%BD%A0", "你", true},
		{"a+b", "a+b", true},
		{"%2", "", false},
		{"%zz", "", false},
		{"%00", "", false},
	}
	for _, test := range tests {
		if s, ok := pctDecode(test.input); s != test.expect || ok != test.ok {
			t.Errorf("pctDecode(%q)=%q,%v", test.input, s, ok)
		}
	}
}

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path   string
		expect []string
	}{
		{"", nil},
		{"/", nil},
		{"//", nil},
		{"/a", []string{"a"}},
		{"/a/b/", []string{"a", "b"}},
		{"/a//b", []string{"a", "b"}},
	}
	for _, test := range tests {
		segments := splitPath(test.path)
		if len(segments) != len(test.expect) {
			t.Errorf("splitPath(%q)=%q", test.path, segments)
			continue
		}
		for i := range segments {
			if segments[i] != test.expect[i] {
				t.Errorf("splitPath(%q)=%q", test.path, segments)
			}
		}
	}
}

func TestTokensContain(t *testing.T) {
	if !tokensContain("keep-alive, Upgrade", "upgrade") {
		t.Error("upgrade")
	}
	if !tokensContain("Keep-Alive", "keep-alive") {
		t.Error("keep-alive")
	}
	if tokensContain("closed", "close") {
		t.Error("close")
	}
}
