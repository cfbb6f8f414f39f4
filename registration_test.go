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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyHooksRunParentBeforeChild(t *testing.T) {
	a := newTestApp(t)
	var order []string

	a.root.OnReady(func() error { order = append(order, "root"); return nil })
	a.Register(a.root, SyncPlugin(func(s *Scope) error {
		s.OnReady(func() error { order = append(order, "plugin"); return nil })
		return nil
	}))

	require.NoError(t, a.Ready(context.Background()))
	assert.Equal(t, []string{"root", "plugin"}, order)
}

func TestAsyncPluginDerivesTrackedChildScope(t *testing.T) {
	a := newTestApp(t)
	var readyOrder, closeOrder []string

	a.root.OnReady(func() error { readyOrder = append(readyOrder, "root"); return nil })
	a.root.OnClose(func(ctx *Context) error { closeOrder = append(closeOrder, "root"); return nil })

	a.Register(a.root, AsyncPlugin(func(ctx context.Context, s *Scope) error {
		s.OnReady(func() error { readyOrder = append(readyOrder, "child"); return nil })
		s.OnClose(func(ctx *Context) error { closeOrder = append(closeOrder, "child"); return nil })
		return nil
	}))

	require.NoError(t, a.Ready(context.Background()))
	assert.Equal(t, []string{"root", "child"}, readyOrder, "ready hooks run parent before child")

	require.NoError(t, a.Close(context.Background()))
	assert.Equal(t, []string{"child", "root"}, closeOrder, "close hooks run child before parent")
}

func TestComposeUnrollsInOrder(t *testing.T) {
	a := newTestApp(t)
	var order []string

	p1 := SyncPlugin(func(s *Scope) error { order = append(order, "p1"); return nil })
	p2 := SyncPlugin(func(s *Scope) error { order = append(order, "p2"); return nil })
	a.Register(a.root, Compose(p1, p2))

	require.NoError(t, a.Ready(context.Background()))
	assert.Equal(t, []string{"p1", "p2"}, order)
}

func TestReadyIsIdempotent(t *testing.T) {
	a := newTestApp(t)
	calls := 0
	a.Register(a.root, SyncPlugin(func(s *Scope) error { calls++; return nil }))

	require.NoError(t, a.Ready(context.Background()))
	require.NoError(t, a.Ready(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestRegisterAfterReadyPanics(t *testing.T) {
	a := newTestApp(t)
	require.NoError(t, a.Ready(context.Background()))

	assert.Panics(t, func() {
		a.Register(a.root, SyncPlugin(func(s *Scope) error { return nil }))
	})
}

func TestSyncPluginWithPrefixDerivesScope(t *testing.T) {
	a := newTestApp(t)
	a.Register(a.root, SyncPlugin(func(s *Scope) error {
		a.On(s, "GET", "/widgets", func(ctx *Context) (any, error) { return "ok", nil })
		return nil
	}), WithPluginPrefix("/api"))

	require.NoError(t, a.Ready(context.Background()))
	m := a.router.Find("GET", "/api/widgets")
	require.NotNil(t, m)
}
