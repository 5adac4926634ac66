// Copyright (c) 2020-2025 Zhang Jingcheng <diogin@gmail.com>.
// Copyright (c) 2022-2024 HexInfra Co., Ltd.
// All rights reserved.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Router resolves paths to handles through segment tries.

// Route syntax: "/literal", "/:param", "/*" (exactly one segment), "/**" (zero or more trailing segments).
// Priority at each segment: literal, :param, *, **. Matching is depth-first with backtracking.

package hemi

import (
	"strings"
	"sync"
	"sync/atomic"
)

// Handle handles a request and returns its response Value.
type Handle func(ctx *Context) Value

const ( // route phases
	PhasePre  = iota // always run before main handles
	PhaseMain        // the first match runs
	PhasePost        // always run after main handles and fallbacks
)

// anyMethod is the key of handles for all methods.
const anyMethod = ""

// Match is a resolved handle with the path params captured for it.
type Match struct {
	Phase  int
	Handle Handle
	params []pair
}

// Param returns a captured path param.
func (m *Match) Param(name string) string {
	for _, param := range m.params {
		if param.name == name {
			return param.value
		}
	}
	return ""
}

// routeNode is one segment level of a route trie.
type routeNode struct {
	literals map[string]*routeNode // exact segments
	params   []routeParam          // ":name" segments, in insertion order
	star     *routeNode            // "*"
	stars    *routeNode            // "**"
	handle   Handle                // route terminates here
}

type routeParam struct {
	name string
	node *routeNode
}

func (n *routeNode) insert(segments []string, handle Handle) {
	node := n
	for _, segment := range segments {
		node = node.child(segment)
	}
	node.handle = handle // inserting the same path again overwrites
}
func (n *routeNode) child(segment string) *routeNode {
	switch {
	case segment == "**":
		if n.stars == nil {
			n.stars = new(routeNode)
		}
		return n.stars
	case segment == "*":
		if n.star == nil {
			n.star = new(routeNode)
		}
		return n.star
	case len(segment) > 1 && segment[0] == ':':
		name := segment[1:]
		for _, param := range n.params {
			if param.name == name {
				return param.node
			}
		}
		node := new(routeNode)
		n.params = append(n.params, routeParam{name, node})
		return node
	default:
		if n.literals == nil {
			n.literals = make(map[string]*routeNode)
		}
		node, ok := n.literals[segment]
		if !ok {
			node = new(routeNode)
			n.literals[segment] = node
		}
		return node
	}
}

// match walks segments under n. params collects captures along the successful branch.
func (n *routeNode) match(segments []string, params []pair) (Handle, []pair) {
	if len(segments) == 0 {
		if n.handle != nil {
			return n.handle, params
		}
		if n.stars != nil { // "**" matches zero segments
			return n.stars.match(nil, params)
		}
		return nil, nil
	}
	segment, rest := segments[0], segments[1:]
	if node, ok := n.literals[segment]; ok {
		if handle, found := node.match(rest, params); handle != nil {
			return handle, found
		}
	}
	if len(n.params) > 0 {
		if value, ok := pctDecode(segment); ok {
			for _, param := range n.params {
				if handle, found := param.node.match(rest, append(params, pair{param.name, value})); handle != nil {
					return handle, found
				}
			}
		}
	}
	if n.star != nil {
		if handle, found := n.star.match(rest, params); handle != nil {
			return handle, found
		}
	}
	if n.stars != nil { // discard leading segments progressively until the subtree matches
		for i := 0; i <= len(segments); i++ {
			if handle, found := n.stars.match(segments[i:], params); handle != nil {
				return handle, found
			}
		}
	}
	return nil, nil
}

func (n *routeNode) clone() *routeNode {
	if n == nil {
		return nil
	}
	node := &routeNode{handle: n.handle}
	if n.literals != nil {
		node.literals = make(map[string]*routeNode, len(n.literals))
		for segment, child := range n.literals {
			node.literals[segment] = child.clone()
		}
	}
	for _, param := range n.params {
		node.params = append(node.params, routeParam{param.name, param.node.clone()})
	}
	node.star = n.star.clone()
	node.stars = n.stars.clone()
	return node
}

// routeTable holds the roots of one phase, indexed by method. anyMethod is the fallback bucket.
type routeTable map[string]*routeNode

// routeTables is an immutable snapshot of all phases.
type routeTables [3]routeTable

func (t *routeTables) clone() *routeTables {
	tables := new(routeTables)
	for phase, table := range t {
		tables[phase] = make(routeTable, len(table))
		for method, root := range table {
			tables[phase][method] = root.clone()
		}
	}
	return tables
}

// Router holds pre, main and post route tables. Registration is copy-on-write, so Resolve
// can run concurrently with it and never sees a half-built trie.
type Router struct {
	lock   sync.Mutex // serializes writers
	tables atomic.Pointer[routeTables]
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	r := new(Router)
	tables := new(routeTables)
	for phase := range tables {
		tables[phase] = make(routeTable)
	}
	r.tables.Store(tables)
	return r
}

func (r *Router) add(phase int, method string, path string, handle Handle) {
	if handle == nil {
		panic("router: nil handle for " + path)
	}
	r.lock.Lock()
	defer r.lock.Unlock()

	tables := r.tables.Load().clone()
	table := tables[phase]
	root, ok := table[method]
	if !ok {
		root = new(routeNode)
		table[method] = root
	}
	root.insert(splitPath(path), handle)
	r.tables.Store(tables)
}

// Pre registers a handle that runs before main handles. Empty method means all methods.
func (r *Router) Pre(method string, path string, handle Handle) {
	r.add(PhasePre, strings.ToUpper(method), path, handle)
}

// Handle registers a main handle. Empty method means all methods.
func (r *Router) Handle(method string, path string, handle Handle) {
	r.add(PhaseMain, strings.ToUpper(method), path, handle)
}

// Post registers a handle that runs after main handles. Empty method means all methods.
func (r *Router) Post(method string, path string, handle Handle) {
	r.add(PhasePost, strings.ToUpper(method), path, handle)
}

func (r *Router) GET(path string, handle Handle)    { r.Handle(MethodGET, path, handle) }
func (r *Router) POST(path string, handle Handle)   { r.Handle(MethodPOST, path, handle) }
func (r *Router) PUT(path string, handle Handle)    { r.Handle(MethodPUT, path, handle) }
func (r *Router) DELETE(path string, handle Handle) { r.Handle(MethodDELETE, path, handle) }
func (r *Router) Any(path string, handle Handle)    { r.Handle(anyMethod, path, handle) }

// Resolve returns the ordered handles for a request: pre (method, any), the first main match
// (method, any), then post (method, any). A nil result means nothing matched, which is not an error.
func (r *Router) Resolve(method string, path string) (matches []Match) {
	tables := r.tables.Load()
	segments := splitPath(path)
	lookup := func(phase int, method string) (Match, bool) {
		root, ok := tables[phase][method]
		if !ok {
			return Match{}, false
		}
		handle, params := root.match(segments, nil)
		if handle == nil {
			return Match{}, false
		}
		return Match{Phase: phase, Handle: handle, params: params}, true
	}
	if match, ok := lookup(PhasePre, method); ok {
		matches = append(matches, match)
	}
	if method != anyMethod {
		if match, ok := lookup(PhasePre, anyMethod); ok {
			matches = append(matches, match)
		}
	}
	if match, ok := lookup(PhaseMain, method); ok {
		matches = append(matches, match)
	} else if match, ok := lookup(PhaseMain, anyMethod); ok {
		matches = append(matches, match)
	} else if method == MethodHEAD { // HEAD is served by GET handles if there is no HEAD handle
		if match, ok := lookup(PhaseMain, MethodGET); ok {
			matches = append(matches, match)
		}
	}
	if match, ok := lookup(PhasePost, method); ok {
		matches = append(matches, match)
	}
	if method != anyMethod {
		if match, ok := lookup(PhasePost, anyMethod); ok {
			matches = append(matches, match)
		}
	}
	return matches
}
