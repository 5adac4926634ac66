// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.x server. It owns the gates, the worker pool, the router and the live connections.

package hemi

import (
	"context"
	"fmt"
	"net"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// Server serves HTTP/1.x on one or more addresses.
type Server struct {
	// Assocs
	config *Config
	logger zerolog.Logger
	router *Router
	pool   Submitter     // nil if handles run on connection goroutines
	static *staticHandle // nil if static files are not served
	// States
	gateList []*Gate
	gates    sync.WaitGroup // running gates
	conns    *xsync.MapOf[int64, *serverConn]
	lastID   atomic.Int64
	started  atomic.Bool
	shutting atomic.Bool
}

// NewServer creates a server. config is validated and must not be changed afterwards.
func NewServer(config *Config, logger zerolog.Logger) (*Server, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	s := &Server{
		config: config,
		logger: logger.With().Str("server", config.Name).Logger(),
		router: NewRouter(),
		conns:  xsync.NewMapOf[int64, *serverConn](),
	}
	if config.Static.Enabled {
		s.static = newStaticHandle(s, Dir(config.Static.WebRoot))
	}
	return s, nil
}

func (s *Server) Config() *Config         { return s.config }
func (s *Server) Logger() *zerolog.Logger { return &s.logger }
func (s *Server) Router() *Router         { return s.router }

// SetSubmitter replaces the worker pool with submitter. Must be called before Start.
func (s *Server) SetSubmitter(submitter Submitter) { s.pool = submitter }

// SetFileSystem replaces the web root of static files with files. Must be called before Start.
func (s *Server) SetFileSystem(files FileSystem) { s.static = newStaticHandle(s, files) }

// Start binds all addresses and begins to serve them in background.
func (s *Server) Start() error {
	if s.shutting.Load() {
		return ErrServerClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server %s is already started", s.config.Name)
	}
	for i, address := range s.config.Listen {
		gate := newGate(int32(i), address, s)
		if err := gate.Open(); err != nil {
			for _, opened := range s.gateList {
				opened.Shut()
			}
			s.gateList = nil
			return fmt.Errorf("open gate %s: %w", address, err)
		}
		s.gateList = append(s.gateList, gate)
	}
	if s.pool == nil && s.config.ProcessByPool {
		s.pool = newWorkerPool(s.config.Workers, s.config.Queue, s.logger)
	}
	for _, gate := range s.gateList {
		s.gates.Add(1)
		go gate.serve()
	}
	if s.config.Debug >= 1 {
		s.logger.Debug().Strs("listen", s.config.Listen).Bool("pool", s.pool != nil).Msg("server started")
	}
	return nil
}

// Addrs returns the bound addresses of the gates.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, 0, len(s.gateList))
	for _, gate := range s.gateList {
		addrs = append(addrs, gate.Addr())
	}
	return addrs
}

// NumConns returns the number of live connections.
func (s *Server) NumConns() int { return s.conns.Size() }

// Shutdown stops accepting, drains the worker pool until ctx expires, then force-closes all live connections.
func (s *Server) Shutdown(ctx context.Context) (err error) {
	if !s.shutting.CompareAndSwap(false, true) {
		return ErrServerClosed
	}
	for _, gate := range s.gateList {
		gate.Shut()
	}
	if closer, ok := s.pool.(interface{ Close(context.Context) error }); ok {
		if err = closer.Close(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("worker pool is not drained")
		}
	}
	s.conns.Range(func(id int64, conn *serverConn) bool {
		conn.close()
		return true
	})

	exited := make(chan struct{})
	go func() {
		s.gates.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	if s.config.Debug >= 1 {
		s.logger.Debug().Msg("server shut down")
	}
	return err
}

func (s *Server) nextConnID() int64 { return s.lastID.Add(1) }

// execute runs the resolved handles of ctx and leaves the response value in ctx.value.
// Pre and post handles always run. The first handled value of pre and main handles is the
// response, and main handles are skipped if a pre handle handled the request.
func (s *Server) execute(ctx *Context) {
	matches := s.router.Resolve(ctx.method, ctx.path)
	handled := false
	for i := range matches {
		match := &matches[i]
		if match.Phase == PhasePost || (match.Phase == PhaseMain && handled) {
			continue
		}
		value, panicked := s.call(ctx, match)
		if handled { // a later pre handle. its value is discarded
			value.close()
			continue
		}
		if panicked {
			ctx.respHeaders = ctx.respHeaders[:0] // don't leak anything from the failed handle
			ctx.value = Error(StatusInternalServerError, StatusText(StatusInternalServerError))
			handled = true
		} else if value.Handled() {
			ctx.value = value
			handled = true
		}
	}
	if !handled {
		s.fallback(ctx)
	}
	for i := range matches {
		if match := &matches[i]; match.Phase == PhasePost {
			value, _ := s.call(ctx, match) // results of post handles are discarded
			value.close()
		}
	}
	ctx.params = nil
}

// call runs one handle. A panic is recovered and reported instead of crashing the connection.
func (s *Server) call(ctx *Context, match *Match) (value Value, panicked bool) {
	defer func() {
		if x := recover(); x != nil {
			s.logger.Error().
				Int64("conn", ctx.conn.id).
				Str("method", ctx.method).
				Str("path", ctx.path).
				Interface("panic", x).
				Bytes("stack", debug.Stack()).
				Msg("handle panicked")
			value, panicked = Value{}, true
		}
	}()
	ctx.params = match.params
	return match.Handle(ctx), false
}

// fallback answers requests which no handle handled: CORS preflights, then static files, then 404.
func (s *Server) fallback(ctx *Context) {
	if s.config.CORSAllowAll && ctx.method == MethodOPTIONS {
		if _, ok := ctx.header("Access-Control-Request-Method"); ok {
			ctx.SetHeader(headerCORSAllowMethods, "GET, HEAD, POST, PUT, DELETE, PATCH, OPTIONS")
			if headers, ok := ctx.header("Access-Control-Request-Headers"); ok {
				ctx.SetHeader(headerCORSAllowHeaders, headers)
			}
			ctx.value = Status(StatusNoContent)
			return
		}
	}
	if s.static != nil {
		if value := s.static.serve(ctx); value.Handled() {
			ctx.value = value
			return
		}
	}
	ctx.value = Status(StatusNotFound)
}
