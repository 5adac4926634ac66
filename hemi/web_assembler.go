// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Request head assembly. HTTP/1.x is not a binary protocol, we don't know how many bytes a head has, so just grow.

package hemi

// headAssembler accumulates chunks until the blank line that ends a request head is found.
// It only reports sizes. Limits are the caller's business.
type headAssembler struct {
	// States
	input    []byte // received bytes, starting at the request line
	scanFrom int    // where the next terminator search starts
	headEdge int    // end of the head, excluding the terminator. valid when done
	done     bool   // terminator is found
}

// add appends chunk and looks for the terminator (CRLFCRLF, or LFLF and their mixtures).
// When complete, bodyFrom is the offset in chunk of the first byte after the terminator.
func (a *headAssembler) add(chunk []byte) (complete bool, bodyFrom int) {
	if a.done {
		return true, 0
	}
	skip := 0
	if len(a.input) == 0 { // RFC 9112: a server SHOULD ignore at least one empty line received prior to the request-line
		for skip < len(chunk) && (chunk[skip] == '\r' || chunk[skip] == '\n') {
			skip++
		}
	}
	base := len(a.input) - skip // offset of chunk[0] in a.input, as if nothing was skipped
	if a.input == nil {
		a.input = make([]byte, 0, _4K)
	}
	a.input = append(a.input, chunk[skip:]...)
	input := a.input
	for i := a.scanFrom; i < len(input); i++ {
		if input[i] != '\n' {
			continue
		}
		// input[i] ends a line. The line is blank if the previous line also ended right before it.
		prev := i - 1
		if prev >= 0 && input[prev] == '\r' {
			prev--
		}
		if prev < 0 || input[prev] != '\n' {
			continue
		}
		edge := prev // at the '\n' ending the last header line
		if edge > 0 && input[edge-1] == '\r' {
			edge--
		}
		a.headEdge = edge
		a.done = true
		a.scanFrom = i + 1
		return true, i + 1 - base
	}
	a.scanFrom = len(input)
	return false, 0
}

// size returns the number of bytes held so far.
func (a *headAssembler) size() int { return len(a.input) }

// head returns the assembled head without its terminator. Valid only when complete.
func (a *headAssembler) head() []byte { return a.input[:a.headEdge] }

func (a *headAssembler) reset() {
	if cap(a.input) > _64K { // don't keep a huge buffer across requests
		a.input = nil
	} else {
		a.input = a.input[:0]
	}
	a.scanFrom = 0
	a.headEdge = 0
	a.done = false
}
