// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Socket options for Linux.

package system

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// SetReusePort lets multiple listeners, possibly in different processes, bind the same address.
func SetReusePort(rawConn syscall.RawConn) (err error) {
	if ctlErr := rawConn.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
	}); ctlErr != nil {
		return ctlErr
	}
	return
}

// SetDeferAccept wakes the acceptor only when data arrives. Clients of HTTP/1.x always send first.
func SetDeferAccept(rawConn syscall.RawConn) (err error) {
	if ctlErr := rawConn.Control(func(fd uintptr) {
		err = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_DEFER_ACCEPT, 1)
	}); ctlErr != nil {
		return ctlErr
	}
	return
}
