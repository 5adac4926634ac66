// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Common elements.

package hemi

import (
	"strings"

	"github.com/hexinfra/webcore/hemi/common/risky"
)

const ( // units
	K = 1 << 10
	M = 1 << 20
)

const ( // sizes
	_4K  = 4 * K  // initial capacity of head buffers
	_16K = 16 * K // read buffer of a connection
	_32K = 32 * K // copy window for streamed content
	_64K = 64 * K // default max head size
	_32M = 32 * M // default max body size
)

// pair is a name-value pair. Used by headers and params.
type pair struct {
	name  string
	value string
}

func i64ToDec(i64 int64, dec []byte) int { // 19 bytes are enough to hold a positive int64
	if len(dec) < 19 {
		panic("dec is too small")
	}
	if i64 < 0 {
		panic("negative numbers are not supported")
	}
	n := 1
	for i := i64; i >= 10; i /= 10 {
		n++
	}
	j := n - 1
	for i64 >= 10 {
		t := i64 / 10
		dec[j] = byte(i64 - t*10 + '0')
		j--
		i64 = t
	}
	dec[j] = byte(i64 + '0')
	return n
}

func byteFromHex(b byte) (n byte, ok bool) {
	if b >= '0' && b <= '9' {
		return b - '0', true
	}
	if b >= 'A' && b <= 'F' {
		return b - 'A' + 10, true
	}
	if b >= 'a' && b <= 'f' {
		return b - 'a' + 10, true
	}
	return 0, false
}

// pctDecode decodes %xx escapes in a path segment. '+' is kept as is since it is only special in queries.
func pctDecode(s string) (string, bool) {
	if strings.IndexByte(s, '%') == -1 {
		return s, true
	}
	p := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if b := s[i]; b != '%' {
			p = append(p, b)
			continue
		}
		if i+2 >= len(s) {
			return "", false
		}
		hi, ok1 := byteFromHex(s[i+1])
		lo, ok2 := byteFromHex(s[i+2])
		if !ok1 || !ok2 {
			return "", false
		}
		octet := hi<<4 | lo
		if octet == 0x00 { // for security reasons, we reject "\x00" in path.
			return "", false
		}
		p = append(p, octet)
		i += 2
	}
	return risky.WeakString(p), true // p is never touched again
}

// splitPath splits an absolute path into its segments. Empty segments are dropped, so a trailing slash is terminal.
func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	n := 0
	for _, segment := range segments {
		if segment != "" {
			segments[n] = segment
			n++
		}
	}
	return segments[:n]
}

// tokensContain reports whether a comma-separated list contains token, case-insensitively.
func tokensContain(list string, token string) bool {
	for _, item := range strings.Split(list, ",") {
		if strings.EqualFold(strings.TrimSpace(item), token) {
			return true
		}
	}
	return false
}
