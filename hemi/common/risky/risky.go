// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Zero-copy views between string and []byte. Used on hot paths of response writing.

package risky

import (
	"unsafe"
)

// ConstBytes views s as bytes. The result must never be mutated.
func ConstBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// WeakString views p as a string. p must not be mutated while the result is in use.
func WeakString(p []byte) string {
	if len(p) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(p), len(p))
}
