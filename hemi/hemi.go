// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Hemi is the HTTP/1.x engine of webcore: gates accept connections, connections assemble
// requests, and the router dispatches them to handles, inline or on a worker pool.

package hemi

import (
	"errors"
	"fmt"
)

const Version = "0.3.0"

var ( // errors
	ErrMalformedRequest = errors.New("malformed request")
	ErrPayloadTooLarge  = errors.New("payload too large")
	ErrInternal         = errors.New("internal failure")
	ErrServerClosed     = errors.New("server closed")
	ErrPoolClosed       = errors.New("worker pool closed")
	ErrPoolSaturated    = fmt.Errorf("%w: worker pool saturated", ErrInternal)
	ErrConnClosed       = errors.New("connection closed")
	errReadInFlight     = errors.New("read already in flight")
)
