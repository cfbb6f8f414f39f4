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
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New()
	require.NoError(t, err)
	return a
}

// S1: happy JSON.
func TestScenarioHappyJSON(t *testing.T) {
	a := newTestApp(t)
	a.GET("/health", func(ctx *Context) (any, error) {
		return map[string]bool{"ok": true}, nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	a.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))
}

// S2: path params.
func TestScenarioPathParams(t *testing.T) {
	a := newTestApp(t)
	a.GET("/users/:id", func(ctx *Context) (any, error) {
		id, err := ctx.Param("id")
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": id}, nil
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/users/42", nil)
	a.ServeHTTP(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"42"}`, w.Body.String())
}

// S3: hook scoping — sibling/child isolation.
func TestScenarioHookScoping(t *testing.T) {
	a := newTestApp(t)
	var trace []string

	a.root.OnRequest(func(ctx *Context) (any, error) {
		trace = append(trace, "A")
		return nil, nil
	})
	a.GET("/a", func(ctx *Context) (any, error) { return "a", nil })

	child := a.Group("")
	child.OnRequest(func(ctx *Context) (any, error) {
		trace = append(trace, "B")
		return nil, nil
	})
	a.On(child, http.MethodGet, "/b", func(ctx *Context) (any, error) { return "b", nil })

	trace = nil
	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/a", nil))
	assert.Equal(t, []string{"A"}, trace)

	trace = nil
	w = httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/b", nil))
	assert.Equal(t, []string{"A", "B"}, trace)
}

// S4: error chain dispatch order and replace-on-throw semantics.
func TestScenarioErrorChain(t *testing.T) {
	a := newTestApp(t)

	errE := NewHTTPError(400, "boom")
	errEPrime := NewHTTPError(400, "E-prime")

	a.root.OnError(func(err error, ctx *Context) (any, bool, error) {
		// H1, registered first, runs LAST.
		assert.Same(t, errEPrime, err)
		return map[string]bool{"handled": true}, true, nil
	})
	a.root.OnError(func(err error, ctx *Context) (any, bool, error) {
		// H2, registered second, runs second (throws E').
		return nil, false, errEPrime
	})
	a.root.OnError(func(err error, ctx *Context) (any, bool, error) {
		// H3, registered third, runs FIRST (returns undefined -> pass).
		assert.Same(t, errE, err)
		return nil, false, nil
	})

	a.GET("/boom", func(ctx *Context) (any, error) { return nil, errE })

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"handled":true}`, w.Body.String())
}

// S5: defer ordering.
func TestScenarioDeferOrdering(t *testing.T) {
	a := newTestApp(t)
	var order []int

	a.GET("/ok", func(ctx *Context) (any, error) {
		ctx.Defer(func() { order = append(order, 1) })
		ctx.Defer(func() { order = append(order, 2) })
		return "ok", nil
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, "ok", w.Body.String())
	assert.Equal(t, []int{1, 2}, order)
}

// S6: prefix exclusion.
func TestScenarioPrefixExclusion(t *testing.T) {
	a := newTestApp(t)
	a.Prefix("/api", "/health")
	a.GET("/users", func(ctx *Context) (any, error) { return "users", nil })
	a.GET("/health", func(ctx *Context) (any, error) { return "health", nil })

	cases := []struct {
		path string
		want int
	}{
		{"/api/users", http.StatusOK},
		{"/health", http.StatusOK},
		{"/api/health", http.StatusNotFound},
		{"/users", http.StatusNotFound},
	}
	for _, c := range cases {
		w := httptest.NewRecorder()
		a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, c.path, nil))
		assert.Equalf(t, c.want, w.Code, "path %s", c.path)
	}
}

func TestUnknownRouteRendersDefault404(t *testing.T) {
	a := newTestApp(t)
	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBodyWithoutParserYields500(t *testing.T) {
	a := newTestApp(t)
	a.GET("/needs-body", func(ctx *Context) (any, error) {
		_, err := ctx.Body()
		return nil, err
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/needs-body", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestParamsGetMissingIs404(t *testing.T) {
	a := newTestApp(t)
	a.GET("/items/:id", func(ctx *Context) (any, error) {
		_, err := ctx.Param("missing")
		return nil, err
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRedirectRendersLocation(t *testing.T) {
	a := newTestApp(t)
	a.GET("/old", func(ctx *Context) (any, error) {
		return nil, Redirect("/new", false)
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/old", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/new", w.Header().Get("Location"))
}

func TestDefaultRenderedErrorFiresSentOnceWithTheError(t *testing.T) {
	a := newTestApp(t)
	var calls int
	var gotErr error
	a.root.OnSent(func(ctx *Context, err error) {
		calls++
		gotErr = err
	})
	a.GET("/boom", func(ctx *Context) (any, error) {
		return nil, NewHTTPError(500, "boom")
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, 1, calls, "sent hooks must fire exactly once on the default-render error path")
	require.Error(t, gotErr)
}

func TestHappyPathSentHookReceivesWriteError(t *testing.T) {
	a := newTestApp(t)
	var calls int
	var gotErr error
	a.root.OnSent(func(ctx *Context, err error) {
		calls++
		gotErr = err
	})
	a.GET("/ok", func(ctx *Context) (any, error) {
		return "ok", nil
	})

	w := httptest.NewRecorder()
	a.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, 1, calls)
	assert.NoError(t, gotErr)
}
