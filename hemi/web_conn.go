// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// HTTP/1.x server connection. A connection serves its requests one after another, never overlapped.

package hemi

import (
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hexinfra/webcore/hemi/common/risky"
)

// serverConn is the server-side HTTP/1.x connection.
type serverConn struct {
	// Assocs
	server *Server
	gate   *Gate
	// Conn states (non-zeros)
	id         int64
	netConn    net.Conn
	readBuffer []byte        // reused by every read
	output     outputQueue   // pending writes
	done       chan bool     // a pool task sends its keep-alive decision here when its context is completed
	quit       chan struct{} // closed when the connection is closed
	closeSafe  bool          // if false, half-close and drain the input before closing to avoid a reset
	// Conn states (zeros)
	current   *Context     // at most one context is active
	pending   []byte       // bytes read past the previous request
	reading   atomic.Bool  // a read is outstanding
	closed    atomic.Bool  // checked by every completion path
	served    int          // number of completed responses. written by the serve goroutine only
	readIdle  bool         // the last read waited for a new request
	lastRead  time.Time    // deadline of last read operation
	lastWrite time.Time    // deadline of last write operation
	closeOnce sync.Once
}

func newServerConn(id int64, gate *Gate, netConn net.Conn) *serverConn {
	return &serverConn{
		server:     gate.server,
		gate:       gate,
		id:         id,
		netConn:    netConn,
		readBuffer: make([]byte, _16K),
		done:       make(chan bool, 1),
		quit:       make(chan struct{}),
		closeSafe:  true,
	}
}

func (c *serverConn) serve() { // runner
	defer c.gate.onConnClosed(c)

	var leftover []byte
	persistent := true
	for persistent && !c.closed.Load() { // each request
		leftover, persistent = c.start(leftover)
	}
	if !c.closeSafe {
		c.lingerClose()
	}
	c.close()
}

// start runs one request cycle. Bytes in leftover are fed before anything is read from the transport.
// It returns bytes received beyond the request, and whether the connection continues.
func (c *serverConn) start(leftover []byte) (next []byte, ok bool) {
	ctx := getContext(c)
	c.current = ctx

	ready, err := false, error(nil)
	if len(leftover) > 0 {
		ready, err = c.onRead(ctx, leftover)
	}
	for !ready && err == nil {
		var n int
		if n, err = c.read(ctx); err == nil {
			ready, err = c.onRead(ctx, c.readBuffer[:n])
		}
	}
	if err != nil {
		var headErr *headError
		if errors.As(err, &headErr) {
			ok = c.serveAbnormal(ctx, headErr)
		} else if isTimeout(err) && !ctx.recvTime.IsZero() { // request started but didn't arrive in time
			c.serveAbnormal(ctx, &headError{status: StatusRequestTimeout, reason: "request timeout", cause: err, fatal: true})
		} else if c.server.config.Debug >= 2 { // transport failure or peer closed. nothing can be sent
			c.server.logger.Debug().Int64("conn", c.id).Err(err).Msg("conn read ended")
		}
		if ok {
			next = c.keep(ctx)
		}
		c.end(ctx)
		return next, ok
	}

	keepAlive, finished := c.dispatch(ctx)
	if !finished { // the connection was closed while its handle was running. ctx is abandoned to the task
		return nil, false
	}
	c.served++
	if ok = keepAlive && !c.closed.Load(); ok {
		next = c.keep(ctx)
	}
	c.end(ctx)
	return next, ok
}

// onRead is the only path from received bytes into the context's state machine.
func (c *serverConn) onRead(ctx *Context, data []byte) (ready bool, err error) {
	if c.closed.Load() {
		return false, ErrConnClosed
	}
	return ctx.feed(data)
}

func (c *serverConn) read(ctx *Context) (int, error) {
	if !c.reading.CompareAndSwap(false, true) {
		return 0, errReadInFlight
	}
	defer c.reading.Store(false)

	idle := ctx.recvTime.IsZero() // waiting for a new request
	timeout := c.server.config.ReadTimeout
	if idle {
		timeout = c.server.config.IdleTimeout
	}
	if idle != c.readIdle { // the other timeout applies now, always re-arm
		c.readIdle = idle
		c.lastRead = time.Time{}
		if timeout == 0 {
			if err := c.netConn.SetReadDeadline(time.Time{}); err != nil {
				return 0, err
			}
		}
	}
	if timeout > 0 {
		if err := c.setReadDeadline(time.Now().Add(timeout)); err != nil {
			return 0, err
		}
	}
	return c.netConn.Read(c.readBuffer)
}

// dispatch runs the handles of ctx inline or on the worker pool, then completes ctx. It returns
// whether the connection can persist, and finished=false if the connection was closed before the
// pool task finished. A pool task never touches the states of the connection besides its output.
func (c *serverConn) dispatch(ctx *Context) (keepAlive bool, finished bool) {
	server := c.server
	if server.pool == nil {
		server.execute(ctx)
		return c.complete(ctx), true
	}
	task := func() {
		server.execute(ctx)
		c.done <- c.complete(ctx) // the write fails if the connection is closed meanwhile
	}
	if err := server.pool.Submit(task); err != nil { // closed or saturated
		server.logger.Error().Int64("conn", c.id).Err(err).Msg("submit to worker pool failed")
		ctx.value = Error(StatusInternalServerError, StatusText(StatusInternalServerError))
		ctx.SetClose()
		return c.complete(ctx), true
	}
	select {
	case keepAlive = <-c.done:
		return keepAlive, true
	case <-c.quit:
		return false, false
	}
}

// complete serializes the response of ctx and writes it. It returns whether the connection can persist.
func (c *serverConn) complete(ctx *Context) bool {
	ctx.state = stateResponding
	value := ctx.value
	defer value.close()

	status := ctx.status
	if value.status > 0 {
		status = value.status
	}
	content, contentType, err := value.render()
	if err != nil {
		c.server.logger.Error().Int64("conn", c.id).Err(err).Msg("render response failed")
		status, value = StatusInternalServerError, Value{}
		content, contentType = []byte(StatusText(StatusInternalServerError)), typeTextUTF8
		ctx.respHeaders = ctx.respHeaders[:0]
	}
	size := int64(len(content))
	if value.kind == valueStream {
		size = value.size
	}
	forbidContent := statusForbidsContent(status)
	if forbidContent {
		size = 0
	} else if contentType != "" {
		if _, ok := ctx.ResponseHeader(headerContentType); !ok {
			ctx.SetHeader(headerContentType, contentType)
		}
	}

	keepAlive := ctx.keepAlive() && !ctx.closeAfter && !c.server.shutting.Load()
	if limit := c.server.config.MaxRequestsPerConn; limit > 0 && c.served+1 >= limit {
		keepAlive = false
	}
	c.output.push(ctx.makeHead(status, size, keepAlive))
	if !forbidContent && !ctx.IsHEAD() {
		if value.kind == valueStream {
			_, err = io.CopyN(outputWriter{c}, value.reader, size) // the head goes with the first chunk
		} else if len(content) > 0 {
			c.output.push(content)
		}
	}
	if err == nil {
		err = c.flush()
	}
	ctx.sentSize = size
	ctx.state = stateDone
	if err != nil && !errors.Is(err, ErrConnClosed) {
		c.server.logger.Debug().Int64("conn", c.id).Err(err).Msg("write response failed")
	}
	c.server.logger.Info().
		Int64("conn", c.id).
		Str("method", ctx.method).
		Str("path", ctx.path).
		Int("status", status).
		Int64("size", size).
		Dur("elapsed", time.Since(ctx.recvTime)).
		Msg("served")
	return keepAlive && err == nil
}

// serveAbnormal answers a request which failed to be received. It returns whether the connection can persist.
func (c *serverConn) serveAbnormal(ctx *Context, headErr *headError) bool {
	if c.server.config.Debug >= 2 {
		c.server.logger.Debug().Int64("conn", c.id).Int("status", headErr.status).Str("reason", headErr.reason).Msg("abnormal")
	}
	persistent := !headErr.fatal && (ctx.version == "" || ctx.keepAlive()) && !c.server.shutting.Load()
	if headErr.fatal { // the peer may be still sending
		c.closeSafe = false
	}
	content := headErr.reason
	if content == "" {
		content = StatusText(headErr.status)
	}
	ctx.state = stateResponding
	ctx.respHeaders = ctx.respHeaders[:0]
	ctx.SetHeader(headerContentType, typeTextUTF8)
	c.output.push(ctx.makeHead(headErr.status, int64(len(content)), persistent))
	if !ctx.IsHEAD() {
		c.output.push(risky.ConstBytes(content))
	}
	err := c.flush()
	ctx.state = stateDone
	return persistent && err == nil
}

// keep saves the bytes ctx received beyond its request into the connection before ctx is recycled.
func (c *serverConn) keep(ctx *Context) []byte {
	c.pending = append(c.pending[:0], ctx.leftover...)
	return c.pending
}

func (c *serverConn) end(ctx *Context) {
	c.current = nil
	putContext(ctx)
}

// flush writes queued chunks in one vectored write.
func (c *serverConn) flush() error {
	q := &c.output
	q.lock.Lock()
	defer q.lock.Unlock()

	if c.closed.Load() {
		q.reset()
		return ErrConnClosed
	}
	if len(q.chunks) == 0 {
		return nil
	}
	if timeout := c.server.config.WriteTimeout; timeout > 0 {
		if err := c.setWriteDeadline(time.Now().Add(timeout)); err != nil {
			q.reset()
			return err
		}
	}
	buffers := q.chunks // WriteTo consumes buffers
	_, err := buffers.WriteTo(c.netConn)
	q.reset()
	return err
}

// Deadlines are re-armed only if they move by 1s or more, in either direction.
func (c *serverConn) setReadDeadline(deadline time.Time) error {
	if d := deadline.Sub(c.lastRead); d >= time.Second || d <= -time.Second {
		if err := c.netConn.SetReadDeadline(deadline); err != nil {
			return err
		}
		c.lastRead = deadline
	}
	return nil
}
func (c *serverConn) setWriteDeadline(deadline time.Time) error {
	if d := deadline.Sub(c.lastWrite); d >= time.Second || d <= -time.Second {
		if err := c.netConn.SetWriteDeadline(deadline); err != nil {
			return err
		}
		c.lastWrite = deadline
	}
	return nil
}

// lingerClose sends a FIN and discards input for a while, so the peer can read our last response
// before an immediate close resets it. See RFC 9112 section 9.6.
func (c *serverConn) lingerClose() {
	tcpConn, ok := c.netConn.(*net.TCPConn)
	if !ok || c.closed.Load() {
		return
	}
	if tcpConn.CloseWrite() != nil {
		return
	}
	tcpConn.SetReadDeadline(time.Now().Add(time.Second))
	io.CopyN(io.Discard, tcpConn, _64K)
}

// close marks the connection closed and releases the transport. Safe to call from any goroutine.
func (c *serverConn) close() {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.quit)
		c.netConn.Close()
	})
}

// outputQueue aggregates chunks so they are written in order by one writer at a time.
type outputQueue struct {
	lock   sync.Mutex
	chunks net.Buffers
}

func (q *outputQueue) push(chunk []byte) {
	q.lock.Lock()
	q.chunks = append(q.chunks, chunk)
	q.lock.Unlock()
}
func (q *outputQueue) reset() { // with lock held
	clear(q.chunks)
	q.chunks = q.chunks[:0]
}

// outputWriter streams content through the output queue of a connection.
type outputWriter struct {
	conn *serverConn
}

func (w outputWriter) Write(p []byte) (int, error) {
	w.conn.output.push(p)
	if err := w.conn.flush(); err != nil {
		return 0, err
	}
	return len(p), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
