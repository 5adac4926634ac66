// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Values carry results of handles into response content.

package hemi

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hexinfra/webcore/hemi/common/risky"
)

const ( // value kinds
	valueNone   = iota // not handled. must be 0
	valueBool          // true is handled with no content, false is not handled
	valueText          // string content
	valueBytes         // binary content
	valueData          // structured content, serialized as JSON
	valueStatus        // handled, content is decided by status
	valueStream        // sized content copied from a reader, like a file
)

// Value is the result of a Handle. The zero Value means "not handled".
type Value struct {
	kind   int8
	status int // overrides context status if > 0
	flag   bool
	text   string
	data   []byte
	object any
	reader io.Reader
	closer io.Closer
	size   int64
}

// NotHandled lets the request fall through to static files, then 404.
func NotHandled() Value { return Value{} }

// Bool returns a handled empty Value if handled is true, or NotHandled.
func Bool(handled bool) Value { return Value{kind: valueBool, flag: handled} }

// Text returns a string Value. An empty string is not handled.
func Text(s string) Value { return Value{kind: valueText, text: s} }

// Bytes returns a binary Value. Empty bytes are not handled.
func Bytes(p []byte) Value { return Value{kind: valueBytes, data: p} }

// JSON returns a structured Value which is serialized as JSON.
func JSON(v any) Value { return Value{kind: valueData, object: v} }

// Status returns a handled Value with the given status and no content.
func Status(status int) Value { return Value{kind: valueStatus, status: status} }

// Error returns a handled Value with the given status and a text content.
func Error(status int, message string) Value {
	return Value{kind: valueText, status: status, text: message}
}

// stream returns a Value whose content is size bytes read from reader. closer is closed after use.
func stream(reader io.Reader, closer io.Closer, size int64) Value {
	return Value{kind: valueStream, reader: reader, closer: closer, size: size}
}

// Handled reports whether v is a response, as opposed to a fall through.
func (v Value) Handled() bool {
	switch v.kind {
	case valueNone:
		return false
	case valueBool:
		return v.flag
	case valueText:
		return v.text != "" || v.status > 0
	case valueBytes:
		return len(v.data) > 0 || v.status > 0
	default:
		return true
	}
}

// render serializes v into content bytes. Stream values return no bytes, their size is v.size.
func (v Value) render() (content []byte, contentType string, err error) {
	switch v.kind {
	case valueText:
		return risky.ConstBytes(v.text), typeTextUTF8, nil // content is never mutated
	case valueBytes:
		return v.data, typeOctetStream, nil
	case valueData:
		if content, err = json.Marshal(v.object); err != nil {
			return nil, "", fmt.Errorf("%w: encode structured value: %v", ErrInternal, err)
		}
		return content, typeJSON, nil
	case valueStream:
		return nil, "", nil
	default:
		return nil, "", nil
	}
}

func (v Value) close() {
	if v.closer != nil {
		v.closer.Close()
	}
}
