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

// Package minima is a minimalist HTTP application runtime: a radix-trie
// router, a hierarchically-scoped plugin/hook engine, and a per-request
// ambient context combined into a single request pipeline.
package minima

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

// App is the application runtime: the Registration Engine (spec §4.E)
// and Public HTTP Accessors entry point (spec §4.I, §6), wired to a root
// Scope, a Router, and the configured observability recorder.
type App struct {
	config *config
	router *Router
	root   *Scope
	scopes []*Scope
	logger *slog.Logger

	observability ObservabilityRecorder

	pending []struct {
		scope *Scope
		p     pendingPlugin
	}
	readyOnce sync.Once
	readyErr  error
	bootCtx   context.Context

	httpServer *http.Server
	mu         sync.Mutex
}

// New builds an App, applying opts over the default configuration and
// validating the result, matching the teacher's
// defaultConfig-then-apply-then-validate sequence (app/app.go New).
func New(opts ...Option) (*App, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if verr := cfg.validate(); verr.HasErrors() {
		return nil, verr.ToError()
	}

	root := newRootScope()
	if cfg.prefix != "" {
		root.SetPrefix(cfg.prefix, nil)
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a := &App{
		config: cfg,
		router: NewRouter(cfg.routerIgnoreTrailingSlash),
		root:   root,
		scopes: []*Scope{root},
		logger: logger,
	}
	a.observability = newObservabilityRecorder(cfg)
	return a, nil
}

// BaseLogger returns the application's configured logger, or a no-op
// logger if logging was disabled (matches app/app.go's BaseLogger).
func (a *App) BaseLogger() *slog.Logger { return a.logger }

// Router exposes the underlying router, mostly useful for diagnostics
// and tests.
func (a *App) Router() *Router { return a.router }

// RootScope returns the application's root scope.
func (a *App) RootScope() *Scope { return a.root }

func (a *App) deriveTracked(parent *Scope) *Scope {
	child := parent.Derive()
	a.scopes = append(a.scopes, child)
	return child
}

// Group creates a child scope with a combined path prefix and registers
// it for lifecycle tracking (spec §6 register/prefix combined with
// app/group.go's nested-group pattern).
func (a *App) Group(prefix string, exclude ...string) *Scope {
	child := a.deriveTracked(a.root)
	child.SetPrefix(child.prefix+prefix, exclude)
	return child
}

// GroupOf derives a child scope of an existing scope (for nested groups),
// matching app/group.go's Group(prefix, middleware...) nesting.
func (a *App) GroupOf(parent *Scope, prefix string, exclude ...string) *Scope {
	child := a.deriveTracked(parent)
	child.SetPrefix(parent.prefix+prefix, exclude)
	return child
}

// Prefix sets the path prefix applied to subsequent routes registered in
// the root scope directly (spec §6 prefix()).
func (a *App) Prefix(path string, exclude ...string) {
	a.root.SetPrefix(path, exclude)
}

func (a *App) addRoute(s *Scope, method, path string, handler Handler, descriptors []MetaDescriptor) *Route {
	full := s.ResolvePath(path)
	r := newRoute(s, method, full, handler, descriptors)
	a.router.Add(method, full, r)
	return r
}

// GET registers a GET route on the root scope.
func (a *App) GET(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodGet, path, handler, descriptors)
}

// POST registers a POST route on the root scope.
func (a *App) POST(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodPost, path, handler, descriptors)
}

// PUT registers a PUT route on the root scope.
func (a *App) PUT(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodPut, path, handler, descriptors)
}

// DELETE registers a DELETE route on the root scope.
func (a *App) DELETE(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodDelete, path, handler, descriptors)
}

// PATCH registers a PATCH route on the root scope.
func (a *App) PATCH(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodPatch, path, handler, descriptors)
}

// HEAD registers a HEAD route on the root scope.
func (a *App) HEAD(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodHead, path, handler, descriptors)
}

// OPTIONS registers an OPTIONS route on the root scope.
func (a *App) OPTIONS(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, http.MethodOptions, path, handler, descriptors)
}

// All registers a route matching any method ("*" fallback, spec §4.A).
func (a *App) All(path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(a.root, "*", path, handler, descriptors)
}

// On registers a route under scope s rather than the root scope; Group
// returns the scope to pass here.
func (a *App) On(s *Scope, method, path string, handler Handler, descriptors ...MetaDescriptor) *Route {
	return a.addRoute(s, method, path, handler, descriptors)
}

// ServeHTTP implements http.Handler: it is the transport-facing entry
// point that invokes the request pipeline (spec §4.F). This is the
// `handle(request) -> response` accessor of spec §6, specialized to
// net/http as the concrete transport.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := a.observability.WrapResponseWriter(w)
	a.observability.OnRequestStart(r)
	a.runPipeline(rw, r)
	a.observability.OnRequestEnd(r, rw)
}

// Handle is the transport-neutral alias for ServeHTTP named after spec
// §6's `handle(request) -> response`.
func (a *App) Handle(w http.ResponseWriter, r *http.Request) { a.ServeHTTP(w, r) }
