// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Range requests. See RFC 9110 section 14.

package hemi

import (
	"strings"
)

const ( // results of parseRange
	rangeIgnored       = iota // no usable range, send the whole content
	rangeSatisfiable          // send the range with 206
	rangeUnsatisfiable        // send 416
)

// byteRange is [from, last], inclusive, begins from 0.
type byteRange struct {
	from int64
	last int64
}

func (r byteRange) size() int64 { return r.last - r.from + 1 }

// parseRange evaluates a Range header against a content of size bytes. Only single ranges are
// served. Multiple ranges and unknown units are ignored, which is allowed.
//
//	Range        = range-unit "=" range-set
//	range-spec   = int-range / suffix-range
//	int-range    = first-pos "-" [ last-pos ]
//	suffix-range = "-" suffix-length
func parseRange(spec string, size int64) (rang byteRange, result int) {
	unit, rangeSet, ok := strings.Cut(spec, "=")
	if !ok || !strings.EqualFold(strings.TrimSpace(unit), "bytes") {
		return rang, rangeIgnored
	}
	rangeSet = strings.Trim(rangeSet, " \t")
	if rangeSet == "" || strings.IndexByte(rangeSet, ',') != -1 {
		return rang, rangeIgnored
	}
	firstPos, lastPos, ok := strings.Cut(rangeSet, "-")
	if !ok {
		return rang, rangeIgnored
	}
	if firstPos == "" { // suffix-range
		suffix, ok := parseDigits(lastPos)
		if !ok {
			return rang, rangeIgnored
		}
		if suffix == 0 || size == 0 {
			return rang, rangeUnsatisfiable
		}
		if suffix > size {
			suffix = size
		}
		return byteRange{size - suffix, size - 1}, rangeSatisfiable
	}
	from, ok := parseDigits(firstPos)
	if !ok {
		return rang, rangeIgnored
	}
	last := size - 1
	if lastPos != "" {
		if last, ok = parseDigits(lastPos); !ok || last < from { // an int-range is invalid if last-pos is less than first-pos
			return rang, rangeIgnored
		}
		if last >= size {
			last = size - 1
		}
	}
	if from >= size {
		return rang, rangeUnsatisfiable
	}
	return byteRange{from, last}, rangeSatisfiable
}

// parseDigits parses 1*DIGIT into a non-negative int64.
func parseDigits(s string) (n int64, ok bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		b := s[i]
		if b < '0' || b > '9' {
			return 0, false
		}
		n = n*10 + int64(b-'0')
		if n < 0 { // overflow
			return 0, false
		}
	}
	return n, true
}

func (r byteRange) contentRange(size int64) string {
	var p [64]byte
	s := append(p[:0], "bytes "...)
	var dec [19]byte
	s = append(s, dec[:i64ToDec(r.from, dec[:])]...)
	s = append(s, '-')
	s = append(s, dec[:i64ToDec(r.last, dec[:])]...)
	s = append(s, '/')
	s = append(s, dec[:i64ToDec(size, dec[:])]...)
	return string(s)
}

func unsatisfiedRange(size int64) string {
	var dec [19]byte
	return "bytes */" + string(dec[:i64ToDec(size, dec[:])])
}
