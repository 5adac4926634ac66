// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Gates accept transport connections and wrap them into server connections.

package hemi

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/hexinfra/webcore/hemi/common/system"
	"golang.org/x/net/netutil"
)

// Gate is a listener of a Server on one address.
type Gate struct {
	// Assocs
	server *Server
	// States
	id       int32
	address  string
	listener net.Listener
	shut     atomic.Bool
	numConns atomic.Int32   // live connections of this gate
	conns    sync.WaitGroup // live connections of this gate
}

func newGate(id int32, address string, server *Server) *Gate {
	return &Gate{server: server, id: id, address: address}
}

func (g *Gate) ID() int32       { return g.id }
func (g *Gate) Address() string { return g.address }

// Addr returns the bound address. Valid after Open.
func (g *Gate) Addr() net.Addr { return g.listener.Addr() }

func (g *Gate) NumConns() int32 { return g.numConns.Load() }

// Open binds the gate's address.
func (g *Gate) Open() error {
	config := g.server.config
	listenConfig := new(net.ListenConfig)
	if config.ReusePort {
		listenConfig.Control = func(network string, address string, rawConn syscall.RawConn) error {
			if err := system.SetReusePort(rawConn); err != nil {
				return err
			}
			return system.SetDeferAccept(rawConn)
		}
	}
	listener, err := listenConfig.Listen(context.Background(), "tcp", g.address)
	if err != nil {
		return err
	}
	if config.MaxConns > 0 { // accept blocks while the gate is full
		listener = netutil.LimitListener(listener, config.MaxConns)
	}
	g.listener = listener
	return nil
}

// Shut stops accepting. Live connections are not affected.
func (g *Gate) Shut() error {
	g.shut.Store(true)
	return g.listener.Close()
}

func (g *Gate) IsShut() bool { return g.shut.Load() }

func (g *Gate) serve() { // runner
	defer g.server.gates.Done()
	for {
		netConn, err := g.listener.Accept()
		if err != nil {
			if g.IsShut() || errors.Is(err, net.ErrClosed) {
				break
			}
			g.server.logger.Warn().Int32("gate", g.id).Err(err).Msg("accept error")
			continue
		}
		g.ServeConn(netConn)
	}
	g.conns.Wait()
	if g.server.config.Debug >= 2 {
		g.server.logger.Debug().Int32("gate", g.id).Msg("gate done")
	}
}

// ServeConn serves an accepted transport connection until it is closed.
func (g *Gate) ServeConn(netConn net.Conn) {
	conn := newServerConn(g.server.nextConnID(), g, netConn)
	g.numConns.Add(1)
	g.conns.Add(1)
	g.server.conns.Store(conn.id, conn)
	if g.server.shutting.Load() { // missed by Shutdown's sweep
		conn.close()
	}
	if g.server.config.Debug >= 2 {
		g.server.logger.Debug().Int32("gate", g.id).Int64("conn", conn.id).Str("remote", netConn.RemoteAddr().String()).Msg("conn accepted")
	}
	go conn.serve() // conn is unregistered in serve()
}

func (g *Gate) onConnClosed(conn *serverConn) {
	g.server.conns.Delete(conn.id)
	g.numConns.Add(-1)
	g.conns.Done()
}
