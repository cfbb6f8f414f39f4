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

func newTestContext(t *testing.T, method, target string, header http.Header) *Context {
	t.Helper()
	r := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			r.Header.Add(k, v)
		}
	}
	w := httptest.NewRecorder()
	ctx := newContext(newRootScope(), r, w)
	ctx.Route = &MatchedRoute{Params: map[string]string{}}
	return ctx
}

func TestHeaderAllSplitsCommaExceptSetCookie(t *testing.T) {
	h := http.Header{}
	h.Add("X-Tags", "a, b,c")
	h.Add("Set-Cookie", "a=1, weird")
	h.Add("Set-Cookie", "b=2")
	ctx := newTestContext(t, http.MethodGet, "/", h)

	assert.Equal(t, []string{"a", "b", "c"}, ctx.HeaderAll("X-Tags"))
	assert.Equal(t, []string{"a=1, weird", "b=2"}, ctx.HeaderAll("Set-Cookie"))
}

func TestSetHeaderRejectsEmptyValue(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	assert.Error(t, ctx.SetHeader("X-Foo", ""))
	assert.NoError(t, ctx.SetHeader("X-Foo", "bar"))
	assert.Equal(t, "bar", ctx.Response.Headers.Get("X-Foo"))
}

func TestAppendHeaderAccumulates(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	ctx.AppendHeader("X-Multi", "a")
	ctx.AppendHeader("X-Multi", "b")
	assert.Equal(t, []string{"a", "b"}, ctx.Response.Headers.Values("X-Multi"))
}

func TestParamRequiredMissingIsNotFound(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	_, err := ctx.Param("id")
	require.Error(t, err)
	var nf *NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestParamOptionalMissingIsSilent(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	v, ok, err := ctx.ParamOptional("id")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "", v)
}

func TestParamIntParsesOrNotFound(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	ctx.Route.Params["id"] = "42"
	n, err := ctx.ParamInt("id")
	assert.NoError(t, err)
	assert.Equal(t, 42, n)

	ctx.Route.Params["id"] = "not-a-number"
	_, err = ctx.ParamInt("id")
	assert.Error(t, err)
}

func TestQueryAndQueryAll(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/search?tag=a&tag=b&q=hi", nil)
	assert.Equal(t, "hi", ctx.Query("q"))
	assert.Equal(t, []string{"a", "b"}, ctx.QueryAll("tag"))
	assert.Equal(t, []string{}, ctx.QueryAll("missing"))
}

func TestRespondAppliesOptionalStatus(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	r, err := ctx.Respond(map[string]bool{"ok": true}, "CREATED")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, r.p.status)

	_, err = ctx.Respond("x", "NOT_A_REAL_ALIAS")
	assert.Error(t, err)
}

func TestSetStatusAcceptsAliasOrInt(t *testing.T) {
	ctx := newTestContext(t, http.MethodGet, "/", nil)
	require.NoError(t, ctx.SetStatus("NOT_FOUND"))
	assert.Equal(t, http.StatusNotFound, ctx.Status())

	require.NoError(t, ctx.SetStatus(201))
	assert.Equal(t, 201, ctx.Status())
}

func TestAbortHelpers(t *testing.T) {
	err := Abort("nope")
	assert.True(t, AbortIs(err))

	assert.NoError(t, AbortAssert(true, err))
	assert.Equal(t, err, AbortAssert(false, err))

	assert.Nil(t, AbortAssertNot(true, err))
	assert.Equal(t, err, AbortAssertNot(false, err))

	assert.Equal(t, err, AbortRethrow(err))
	assert.Nil(t, AbortRethrow(assertionError("plain, not abort-like")))
	assert.Nil(t, AbortRethrow(nil))
}
