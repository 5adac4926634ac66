// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Context is an in-flight HTTP/1.x request and its response. See RFC 9112.

// A context goes through: awaitHead -> awaitBody -> dispatching -> responding -> done.

package hemi

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const ( // context states
	stateAwaitHead   = iota // must be 0
	stateAwaitBody          // head is parsed, content is being received
	stateDispatching        // content is received entirely, handles are running
	stateResponding         // response is being serialized
	stateDone               // response is handed to the output queue
)

// headError is a protocol error found while receiving a request.
type headError struct {
	status int    // status sent to the peer
	reason string // sent as content
	cause  error  // ErrMalformedRequest, ErrPayloadTooLarge, ...
	fatal  bool   // the stream can't be resynchronized, close the connection after the response
}

func (e *headError) Error() string { return e.cause.Error() + ": " + e.reason }
func (e *headError) Unwrap() error { return e.cause }

func malformed(reason string, fatal bool) *headError {
	return &headError{status: StatusBadRequest, reason: reason, cause: ErrMalformedRequest, fatal: fatal}
}

// poolContext
var poolContext sync.Pool

func getContext(conn *serverConn) *Context {
	var ctx *Context
	if x := poolContext.Get(); x == nil {
		ctx = new(Context)
	} else {
		ctx = x.(*Context)
	}
	ctx.onUse(conn)
	return ctx
}
func putContext(ctx *Context) {
	ctx.onEnd()
	poolContext.Put(ctx)
}

// Context is the per-request accumulation and dispatch unit owned by a connection.
type Context struct {
	// Assocs
	conn   *serverConn
	server *Server
	// Stream states (controlled)
	head headAssembler // reused between requests
	// Stream states (zeros)
	state         int8
	recvTime      time.Time // the time when the first byte of this request was received
	rawHead       string    // immutable once assembled
	method        string
	target        string // request-target as received
	path          string // path of request-target, still percent-encoded
	query         string // query string without '?'
	version       string
	headers       []pair // ordered multimap. names are case-sensitive as received
	contentLength uint64
	body          []byte
	leftover      []byte // bytes received beyond this request, they belong to the next one
	params        []pair // path params of the running handle
	queries       url.Values
	status        int
	respHeaders   []pair
	closeAfter    bool  // the handle asked to close the connection
	value         Value // the response
	sentSize      int64 // content bytes written
}

func (c *Context) onUse(conn *serverConn) {
	c.conn = conn
	c.server = conn.server
	c.status = StatusOK
}
func (c *Context) onEnd() {
	c.head.reset()
	c.state = stateAwaitHead
	c.recvTime = time.Time{}
	c.rawHead = ""
	c.method, c.target, c.path, c.query, c.version = "", "", "", "", ""
	c.headers = c.headers[:0]
	c.contentLength = 0
	if cap(c.body) > _64K {
		c.body = nil
	} else {
		c.body = c.body[:0]
	}
	c.leftover = c.leftover[:0]
	c.params = nil
	c.queries = nil
	c.status = 0
	c.respHeaders = c.respHeaders[:0]
	c.closeAfter = false
	c.value = Value{}
	c.sentSize = 0

	c.server = nil
	c.conn = nil
}

// feed runs the receiving part of the state machine with a chunk of bytes. It returns true once
// the request is complete, which happens exactly once.
func (c *Context) feed(chunk []byte) (ready bool, err error) {
	if c.recvTime.IsZero() && len(chunk) > 0 {
		c.recvTime = time.Now()
	}
	if c.state == stateAwaitHead {
		maxHeadSize := c.server.config.MaxHeadSize
		complete, bodyFrom := c.head.add(chunk)
		if !complete {
			if c.head.size() > maxHeadSize {
				c.head = headAssembler{} // never keep the oversized buffer
				return false, malformed("request head too large", true)
			}
			return false, nil
		}
		head := c.head.head()
		if len(head) > maxHeadSize {
			c.head = headAssembler{}
			return false, malformed("request head too large", true)
		}
		rest := chunk[bodyFrom:]
		if err := c.parseHead(head); err != nil {
			c.leftover = append(c.leftover[:0], rest...)
			return false, err
		}
		if c.contentLength > uint64(c.server.config.MaxBodySize) {
			return false, &headError{status: StatusBadRequest, reason: "content length exceeds the limit", cause: ErrPayloadTooLarge, fatal: true}
		}
		c.state = stateAwaitBody
		chunk = rest
	}
	if c.state == stateAwaitBody {
		need := c.contentLength - uint64(len(c.body))
		if uint64(len(chunk)) > need { // bytes of the next request. keep them for the next cycle
			c.leftover = append(c.leftover[:0], chunk[need:]...)
			chunk = chunk[:need]
		}
		c.body = append(c.body, chunk...)
		if uint64(len(c.body)) >= c.contentLength {
			c.state = stateDispatching
			return true, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: feed in state %d", ErrInternal, c.state)
}

// parseHead parses request line and headers. method SP request-target SP HTTP-version CRLF *( field-line CRLF )
func (c *Context) parseHead(head []byte) error {
	c.rawHead = string(head)
	line, rest, _ := strings.Cut(c.rawHead, "\n")
	line = strings.TrimSuffix(line, "\r")

	tokens := strings.Split(line, " ")
	if len(tokens) != 3 || tokens[0] == "" || tokens[1] == "" || tokens[2] == "" {
		return malformed("bad request line", false)
	}
	method, target, version := tokens[0], tokens[1], tokens[2]
	if !isToken(method) {
		return malformed("invalid character in method", false)
	}
	if version != Version1_1 && version != Version1_0 {
		return malformed("unsupported http version", false)
	}
	c.method, c.target, c.version = method, target, version

	// request-target = origin-form / absolute-form / asterisk-form
	if target == "*" {
		if method != MethodOPTIONS {
			return malformed("asterisk-form is only used by OPTIONS method", false)
		}
		c.path = "/"
	} else {
		if target[0] != '/' { // absolute-form. scheme "://" authority path-abempty [ "?" query ]
			scheme, hierPart, ok := strings.Cut(target, "://")
			if !ok || (!strings.EqualFold(scheme, "http") && !strings.EqualFold(scheme, "https")) {
				return malformed("bad request target", false)
			}
			if i := strings.IndexAny(hierPart, "/?"); i == -1 {
				target = "/"
			} else if hierPart[i] == '?' {
				target = "/" + hierPart[i:]
			} else {
				target = hierPart[i:]
			}
		}
		c.path, c.query, _ = strings.Cut(target, "?")
		for i := 0; i < len(c.path); i++ {
			if b := c.path[i]; b <= 0x20 || b == 0x7F {
				return malformed("invalid path", false)
			}
		}
	}

	for rest != "" { // each header
		line, rest, _ = strings.Cut(rest, "\n")
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			return malformed("obsolete line folding is not allowed", false)
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			return malformed("header without colon", false)
		}
		if name == "" || !isToken(name) {
			return malformed("header name contains bad character", false)
		}
		c.headers = append(c.headers, pair{name, strings.Trim(value, " \t")})
	}

	if _, ok := c.header(headerTransferEncoding); ok {
		return &headError{status: StatusNotImplemented, reason: "transfer-encoding is not supported", cause: ErrMalformedRequest, fatal: true}
	}
	for _, value := range c.headersFold(headerContentLength) {
		size, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return malformed("invalid content-length", true)
		}
		if c.contentLength != 0 && size != c.contentLength {
			return malformed("conflicting content-length", true)
		}
		c.contentLength = size
	}
	if c.server.config.Debug >= 2 {
		c.server.logger.Debug().Int64("conn", c.conn.id).Str("head", c.rawHead).Msg("<-------")
	}
	return nil
}

func isToken(s string) bool { // token = 1*tchar
	for i := 0; i < len(s); i++ {
		if b := s[i]; b <= 0x20 || b >= 0x7F || strings.IndexByte("\"(),/:;<=>?@[\\]{}", b) != -1 {
			return false
		}
	}
	return len(s) > 0
}

// keepAlive reports whether the request allows the connection to persist after its response.
func (c *Context) keepAlive() bool {
	connection := strings.Join(c.headersFold(headerConnection), ",")
	if c.version == Version1_1 {
		return !tokensContain(connection, "close")
	}
	return tokensContain(connection, "keep-alive")
}

// header returns the first value of a header, matching name case-insensitively. Used by the pipeline.
func (c *Context) header(name string) (string, bool) {
	for i := range c.headers {
		if strings.EqualFold(c.headers[i].name, name) {
			return c.headers[i].value, true
		}
	}
	return "", false
}
func (c *Context) headersFold(name string) (values []string) {
	for i := range c.headers {
		if strings.EqualFold(c.headers[i].name, name) {
			values = append(values, c.headers[i].value)
		}
	}
	return
}

func (c *Context) Method() string  { return c.method }
func (c *Context) Target() string  { return c.target }
func (c *Context) Path() string    { return c.path }
func (c *Context) Query() string   { return c.query }
func (c *Context) Version() string { return c.version }
func (c *Context) RawHead() string { return c.rawHead }
func (c *Context) Body() []byte    { return c.body }
func (c *Context) IsHEAD() bool    { return c.method == MethodHEAD }

func (c *Context) ContentLength() uint64 { return c.contentLength }

// Q returns the first value of a query parameter.
func (c *Context) Q(name string) string {
	if c.queries == nil {
		queries, err := url.ParseQuery(c.query)
		if err != nil && queries == nil {
			queries = url.Values{}
		}
		c.queries = queries
	}
	return c.queries.Get(name)
}

// Header returns the first value of the header whose name is exactly name.
func (c *Context) Header(name string) (value string, ok bool) {
	for i := range c.headers {
		if c.headers[i].name == name {
			return c.headers[i].value, true
		}
	}
	return "", false
}

// Headers returns all values of the header whose name is exactly name, in received order.
func (c *Context) Headers(name string) (values []string) {
	for i := range c.headers {
		if c.headers[i].name == name {
			values = append(values, c.headers[i].value)
		}
	}
	return
}

// HeaderValues splits comma-separated values of all headers named name, keeping received order.
func (c *Context) HeaderValues(name string) (values []string) {
	for _, value := range c.Headers(name) {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				values = append(values, item)
			}
		}
	}
	return
}

// ForHeaders calls callback on each header in received order until it returns false.
func (c *Context) ForHeaders(callback func(name string, value string) bool) {
	for i := range c.headers {
		if !callback(c.headers[i].name, c.headers[i].value) {
			return
		}
	}
}

// Param returns a path param captured by the router for the running handle.
func (c *Context) Param(name string) string {
	for i := range c.params {
		if c.params[i].name == name {
			return c.params[i].value
		}
	}
	return ""
}

// Params returns all path params of the running handle.
func (c *Context) Params() map[string]string {
	params := make(map[string]string, len(c.params))
	for _, param := range c.params {
		params[param.name] = param.value
	}
	return params
}

func (c *Context) RemoteAddr() net.Addr { return c.conn.netConn.RemoteAddr() }

// Logger returns the server logger with this connection's id attached.
func (c *Context) Logger() zerolog.Logger {
	return c.server.logger.With().Int64("conn", c.conn.id).Logger()
}

func (c *Context) Status() int { return c.status }
func (c *Context) SetStatus(status int) {
	if status >= 100 && status <= 999 {
		c.status = status
	}
}

// SetHeader replaces all response headers named name (case-insensitively) with one value.
func (c *Context) SetHeader(name string, value string) {
	c.DelHeader(name)
	c.respHeaders = append(c.respHeaders, pair{name, value})
}

// AddHeader appends a response header. Multiple headers may share a name.
func (c *Context) AddHeader(name string, value string) {
	c.respHeaders = append(c.respHeaders, pair{name, value})
}

// DelHeader removes all response headers named name, case-insensitively.
func (c *Context) DelHeader(name string) (deleted bool) {
	n := 0
	for _, header := range c.respHeaders {
		if strings.EqualFold(header.name, name) {
			deleted = true
			continue
		}
		c.respHeaders[n] = header
		n++
	}
	c.respHeaders = c.respHeaders[:n]
	return
}

// ResponseHeader returns the first response header named name, case-insensitively.
func (c *Context) ResponseHeader(name string) (string, bool) {
	for i := range c.respHeaders {
		if strings.EqualFold(c.respHeaders[i].name, name) {
			return c.respHeaders[i].value, true
		}
	}
	return "", false
}

// SetClose marks the connection to be closed after this response.
func (c *Context) SetClose() { c.closeAfter = true }

// makeHead serializes the status line and response headers. Content-Length is always computed by us.
func (c *Context) makeHead(status int, contentSize int64, keepAlive bool) []byte {
	head := make([]byte, 0, 256)
	head = append(head, http1Control(status)...)
	head = appendHeader(head, headerDate, time.Now().UTC().Format(httpTimeFormat))
	if name := c.server.config.Name; name != "" {
		head = appendHeader(head, headerServer, name)
	}
	for _, header := range c.respHeaders {
		if strings.EqualFold(header.name, headerContentLength) || strings.EqualFold(header.name, headerConnection) {
			continue
		}
		head = appendHeader(head, header.name, header.value)
	}
	if c.server.config.CORSAllowAll {
		if _, ok := c.ResponseHeader(headerCORSAllowOrigin); !ok {
			head = appendHeader(head, headerCORSAllowOrigin, "*")
		}
	}
	if !statusForbidsContent(status) {
		var size [19]byte
		n := i64ToDec(contentSize, size[:])
		head = append(head, headerContentLength...)
		head = append(head, bytesColonSpace...)
		head = append(head, size[:n]...)
		head = append(head, bytesCRLF...)
	}
	if keepAlive {
		head = appendHeader(head, headerConnection, "keep-alive")
	} else {
		head = appendHeader(head, headerConnection, "close")
	}
	return append(head, bytesCRLF...)
}

func appendHeader(p []byte, name string, value string) []byte {
	p = append(p, name...)
	p = append(p, bytesColonSpace...)
	p = append(p, value...)
	return append(p, bytesCRLF...)
}
