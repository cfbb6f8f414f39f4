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
	"context"
	"fmt"
)

// SyncPlugin runs inline with the parent's scope: any hooks or routes it
// registers attach to the parent scope directly (spec §4.E). Registered
// with WithPluginPrefix, it instead runs in a derived child scope that
// carries the prefix.
type SyncPlugin func(s *Scope) error

// AsyncPlugin runs in a scope derived from the parent; it may block on
// ctx, and its own hooks register onto the derived child scope only once
// it returns (spec §4.E).
type AsyncPlugin func(ctx context.Context, s *Scope) error

// composedMarker flags a value built by Compose so the registration
// engine can unroll it in order rather than treating it as one opaque
// plugin (spec §4.E "a plugin is recognized as composed ... by an
// internal marker").
type composedMarker struct {
	plugins []any
}

// Compose combines plugins (SyncPlugin or AsyncPlugin values) into a
// single registrable value. Registration unrolls them in order, each
// deriving its own sibling child scope if async.
func Compose(plugins ...any) any {
	return composedMarker{plugins: plugins}
}

type pendingPlugin struct {
	plugin any
	opts   registerOpts
}

type registerOpts struct {
	prefix string
}

// RegisterOption configures a single Register call.
type RegisterOption func(*registerOpts)

// WithPluginPrefix applies a path prefix to routes registered by this
// plugin invocation only.
func WithPluginPrefix(prefix string) RegisterOption {
	return func(o *registerOpts) { o.prefix = prefix }
}

// Register enqueues plugin against scope s's pending FIFO queue (spec
// §4.E). Both SyncPlugin, AsyncPlugin and values built by Compose are
// accepted.
func (a *App) Register(s *Scope, plugin any, opts ...RegisterOption) *App {
	if a.router.frozen {
		panic("minima: cannot register a plugin after Ready()")
	}
	var o registerOpts
	for _, opt := range opts {
		opt(&o)
	}
	a.pending = append(a.pending, struct {
		scope *Scope
		p     pendingPlugin
	}{scope: s, p: pendingPlugin{plugin: plugin, opts: o}})
	return a
}

// bootPending drains the pending plugin queue transitively: registering
// a plugin may itself enqueue more plugins (on a derived child scope),
// so boot keeps draining until none remain, preserving FIFO order per
// scope.
func (a *App) bootPending() error {
	for len(a.pending) > 0 {
		next := a.pending[0]
		a.pending = a.pending[1:]
		if err := a.bootOne(next.scope, next.p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) bootOne(parent *Scope, p pendingPlugin) error {
	switch plug := p.plugin.(type) {
	case composedMarker:
		for _, sub := range plug.plugins {
			if err := a.bootOne(parent, pendingPlugin{plugin: sub, opts: p.opts}); err != nil {
				return err
			}
		}
		return nil
	case SyncPlugin:
		scoped := parent
		if p.opts.prefix != "" {
			scoped = a.deriveTracked(parent)
			scoped.SetPrefix(p.opts.prefix, nil)
		}
		return plug(scoped)
	case AsyncPlugin:
		child := a.deriveTracked(parent)
		if p.opts.prefix != "" {
			child.SetPrefix(p.opts.prefix, nil)
		}
		return plug(a.bootCtx, child)
	default:
		return fmt.Errorf("minima: unsupported plugin type %T", plug)
	}
}

// Ready awaits the full plugin tree, then runs all ready hooks in
// parent->child, registration order (spec §4.E). It is idempotent.
func (a *App) Ready(ctx context.Context) error {
	a.readyOnce.Do(func() {
		a.bootCtx = ctx
		a.readyErr = a.bootPending()
		a.router.frozen = true
		if a.readyErr == nil {
			a.readyErr = a.runReadyHooks()
		}
	})
	return a.readyErr
}

// runReadyHooks runs every scope's ready hooks in scope derivation order
// (allScopes()), so every parent runs before the scopes derived from it,
// and, within a scope, in registration order (spec §4.E, §8 invariant 2).
// The order is not a strict DFS pre-order: when scopes in sibling
// subtrees are derived interleaved, their ready hooks run interleaved too.
func (a *App) runReadyHooks() error {
	for _, s := range a.allScopes() {
		for _, h := range s.hooks.ready {
			if err := h(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close runs all close hooks child->parent, within a scope in LIFO order
// (reverse registration order), then tears down the transport (spec
// §4.E).
func (a *App) Close(ctx context.Context) error {
	scopes := a.allScopes()
	for i := len(scopes) - 1; i >= 0; i-- {
		hooks := scopes[i].hooks.close
		for j := len(hooks) - 1; j >= 0; j-- {
			if err := hooks[j](newCloseContext(ctx, scopes[i])); err != nil {
				a.logger.Warn("close hook failed", "error", err)
			}
		}
	}
	return a.shutdownTransport(ctx)
}

// allScopes returns every scope registered so far, in the order scopes
// were derived (parents always precede the children derived from them,
// since a child is only ever appended once its parent already exists;
// sibling subtrees are not kept contiguous).
func (a *App) allScopes() []*Scope {
	return a.scopes
}

func newCloseContext(ctx context.Context, s *Scope) *Context {
	c, cancel := context.WithCancel(ctx)
	return &Context{Scope: s, ctx: c, cancel: cancel, Locals: map[string]any{}}
}
