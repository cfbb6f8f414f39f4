// Copyright 2025 The Minima Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package minima

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/url"
	"sync"

	"github.com/minima-js/minima/internal/ambient"
)

// Request is the inbound request record (spec §3). Headers is a
// multimap, matched one-for-one against http.Header's own multimap shape.
type Request struct {
	Method        string
	URL           string
	Headers       http.Header
	Path          string
	Body          net.Conn // set only after Hijack; nil otherwise
	RawBody       *http.Request
	RemoteAddr    string
	parsedURL     *url.URL
	parsedURLOnce sync.Once
}

// ParsedURL returns the memoized parsed form of Request.URL.
func (r *Request) ParsedURL() *url.URL {
	r.parsedURLOnce.Do(func() {
		u, err := url.Parse(r.URL)
		if err != nil {
			u = &url.URL{Path: r.Path}
		}
		r.parsedURL = u
	})
	return r.parsedURL
}

// ResponseState is the mutable in-flight response record (spec §3),
// initialized to {200, empty, undefined}.
type ResponseState struct {
	Status  int
	Headers http.Header
	Body    any
	written bool
}

func newResponseState() *ResponseState {
	return &ResponseState{Status: http.StatusOK, Headers: make(http.Header)}
}

// MatchedRoute is assigned onto Context.Route once the router resolves a
// request (spec §3, "Route match result").
type MatchedRoute struct {
	Route    *Route
	Params   map[string]string
	Methods  []string
	Path     string
	Metadata map[string]any
}

// Context is the per-request ambient record (spec §4.D). Handlers and
// hooks receive it explicitly; code further down the call stack that
// wasn't handed a *Context can recover the same value via Current/Maybe,
// backed by the ambient package.
type Context struct {
	Request  *Request
	Response *ResponseState
	Route    *MatchedRoute
	Locals   map[string]any
	Scope    *Scope

	stdReq *http.Request
	stdRW  http.ResponseWriter

	ctx      context.Context
	cancel   context.CancelFunc
	hijacked bool

	deferFns  []func()
	onErrorFn []func(error)
	mu        sync.Mutex
}

// newContext creates the Context established at pipeline step 1.
func newContext(root *Scope, stdReq *http.Request, stdRW http.ResponseWriter) *Context {
	ctx, cancel := context.WithCancel(stdReq.Context())
	return &Context{
		Request: &Request{
			Method:     stdReq.Method,
			URL:        stdReq.URL.String(),
			Headers:    stdReq.Header,
			Path:       stdReq.URL.Path,
			RawBody:    stdReq,
			RemoteAddr: stdReq.RemoteAddr,
		},
		Response: newResponseState(),
		Locals:   make(map[string]any),
		Scope:    root,
		stdReq:   stdReq,
		stdRW:    stdRW,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Done returns the cancellation signal (spec §5): it trips when the
// underlying *http.Request's context is cancelled, e.g. on client
// disconnect. Abort and the other Abort helpers only build errors; they do
// not trip it.
func (c *Context) Done() <-chan struct{} { return c.ctx.Done() }

// Cancelled reports whether the cancellation signal has tripped.
func (c *Context) Cancelled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// bind makes c the current ambient context and returns a restore function
// that puts back whatever was current before (spec §4.D Safe(fn)).
func bind(c *Context) (restore func()) {
	prev, hadPrev := ambient.Get()
	ambient.Set(c)
	return func() {
		if hadPrev {
			ambient.Set(prev)
		} else {
			ambient.Clear()
		}
	}
}

// Current returns the ambient context for the request executing on the
// calling goroutine. It panics if called outside a request; use Maybe
// for a non-panicking variant.
func Current() *Context {
	c, ok := Maybe()
	if !ok {
		panic("minima: Current() called outside a request")
	}
	return c
}

// Maybe returns the ambient context and true, or (nil, false) if none is
// bound to the calling goroutine (spec §4.D "no context" sentinel).
func Maybe() (*Context, bool) {
	v, ok := ambient.Get()
	if !ok {
		return nil, false
	}
	c, ok := v.(*Context)
	return c, ok
}

// Safe runs fn with ctx bound as the ambient context, restoring whatever
// was previously bound on every exit path including panics (spec §4.D).
func Safe(ctx *Context, fn func()) {
	restore := bind(ctx)
	defer restore()
	fn()
}

// Hijack yields the raw transport connection to caller-controlled code,
// for streaming/async-sequence responses (spec §4.G). Once hijacked, the
// pipeline will not attempt to write a serialized body.
func (c *Context) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := c.stdRW.(http.Hijacker)
	if !ok {
		return nil, nil, errHijackUnsupported
	}
	conn, rw, err := hj.Hijack()
	if err != nil {
		return nil, nil, err
	}
	c.Request.Body = conn
	c.hijacked = true
	return conn, rw, nil
}

// Hijacked reports whether Hijack has already been called on this
// context.
func (c *Context) Hijacked() bool { return c.hijacked }
