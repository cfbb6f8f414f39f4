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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeDeriveStartsWithEmptyHookStore(t *testing.T) {
	root := newRootScope()
	root.OnRequest(func(ctx *Context) (any, error) { return nil, nil })

	child := root.Derive()
	child.OnRequest(func(ctx *Context) (any, error) { return nil, nil })

	assert.Len(t, root.hooks.request, 1, "mutating a derived scope must not affect the parent")
	assert.Len(t, child.hooks.request, 1, "a derived scope's own store holds only its own hooks; ancestor hooks are contributed by the chain walk, not copied in")
}

func TestScopeChainIsRootToSelf(t *testing.T) {
	root := newRootScope()
	child := root.Derive()
	grandchild := child.Derive()

	chain := grandchild.Chain()
	require.Len(t, chain, 3)
	assert.Same(t, root, chain[0])
	assert.Same(t, child, chain[1])
	assert.Same(t, grandchild, chain[2])
}

func TestScopeSiblingsNeverShareHookStore(t *testing.T) {
	root := newRootScope()
	a := root.Derive()
	b := root.Derive()

	a.OnRequest(func(ctx *Context) (any, error) { return nil, nil })

	assert.Len(t, a.hooks.request, 1)
	assert.Len(t, b.hooks.request, 0)
	assert.NotSame(t, a.hooks, b.hooks)
}

func TestScopePrefixExclusion(t *testing.T) {
	s := newRootScope()
	s.SetPrefix("/api", []string{"/health"})

	assert.Equal(t, "/api/users", s.ResolvePath("/users"))
	assert.Equal(t, "/health", s.ResolvePath("/health"))
}

type cloneableValue struct{ n int }

func (c *cloneableValue) Clone() any { return &cloneableValue{n: c.n} }

func TestScopeDecorateCloneable(t *testing.T) {
	root := newRootScope()
	root.Decorate("counter", &cloneableValue{n: 1})

	child := root.Derive()
	v, ok := child.Decoration("counter")
	require.True(t, ok)
	cv := v.(*cloneableValue)
	cv.n = 99

	orig, _ := root.Decoration("counter")
	assert.Equal(t, 1, orig.(*cloneableValue).n, "cloned state must not alias the parent's")
}
