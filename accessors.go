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
	"fmt"
	"strconv"
	"strings"
)

// bodyParserKey is the Locals key a body-parser plugin stores the parsed
// body under; see Body's doc comment.
const bodyParserKey = "minima.parsedBody"

// Body returns the parsed request body (spec §4.I). It requires a
// body-parser plugin to have run (one that decorates ctx.Locals[bodyParserKey]
// during a request hook); absent that, it returns a 500 "Unable to
// process request" error, matching the boundary behavior in spec §8.
func (c *Context) Body() (any, error) {
	if v, ok := c.Locals[bodyParserKey]; ok {
		return v, nil
	}
	return nil, NewHTTPError(500, "Unable to process request")
}

// SetParsedBody is how a body-parser plugin (an external collaborator
// per spec §1) makes the parsed body available to Body().
func (c *Context) SetParsedBody(v any) { c.Locals[bodyParserKey] = v }

// Headers returns the full set of request headers (spec §4.I).
func (c *Context) Headers() map[string][]string { return c.Request.Headers }

// Header returns the first value of the named request header, optionally
// run through transform.
func (c *Context) Header(name string, transform ...func(string) string) string {
	v := c.Request.Headers.Get(name)
	for _, t := range transform {
		v = t(v)
	}
	return v
}

// HeaderAll returns every value of the named request header. Multi-valued
// headers are comma-split except Set-Cookie, per spec §4.I.
func (c *Context) HeaderAll(name string, transform ...func(string) string) []string {
	vs := c.Request.Headers.Values(name)
	var out []string
	if strings.EqualFold(name, "set-cookie") {
		out = append(out, vs...)
	} else {
		for _, v := range vs {
			out = append(out, strings.Split(v, ",")...)
		}
	}
	for i, v := range out {
		for _, t := range transform {
			v = t(v)
		}
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// SetHeader writes a response header, replacing any existing value.
// Setting with an empty value is rejected (spec §4.I: "Setting a single
// header with undefined value fails").
func (c *Context) SetHeader(name, value string) error {
	if value == "" {
		return fmt.Errorf("minima: cannot set header %q to an empty value", name)
	}
	c.Response.Headers.Set(name, value)
	return nil
}

// AppendHeader appends a response header value.
func (c *Context) AppendHeader(name, value string) { c.Response.Headers.Add(name, value) }

// Param returns a required path parameter, applying transform if given.
// It returns a NotFoundError if the parameter is absent, or if any
// transform returns an error (spec §4.I).
func (c *Context) Param(name string, transform ...func(string) (string, error)) (string, error) {
	v, ok := c.Route.Params[name]
	if !ok {
		return "", NewNotFoundError(fmt.Sprintf("missing path parameter %q", name))
	}
	for _, t := range transform {
		var err error
		v, err = t(v)
		if err != nil {
			return "", NewNotFoundError(fmt.Sprintf("invalid path parameter %q", name))
		}
	}
	return v, nil
}

// ParamInt is a convenience wrapper around Param that parses the value as
// an integer, surfacing a NotFoundError on parse failure (NaN case).
func (c *Context) ParamInt(name string) (int, error) {
	v, err := c.Param(name)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewNotFoundError(fmt.Sprintf("path parameter %q is not a number", name))
	}
	return n, nil
}

// ParamOptional mirrors Param but returns ("", false, nil) when the
// parameter is absent instead of erroring; the bool reports presence.
func (c *Context) ParamOptional(name string, transform ...func(string) (string, error)) (string, bool, error) {
	v, ok := c.Route.Params[name]
	if !ok {
		return "", false, nil
	}
	for _, t := range transform {
		var err error
		v, err = t(v)
		if err != nil {
			return "", true, NewNotFoundError(fmt.Sprintf("invalid path parameter %q", name))
		}
	}
	return v, true, nil
}

// Query returns the first value of the named query-string parameter.
func (c *Context) Query(name string, transform ...func(string) string) string {
	v := c.Request.ParsedURL().Query().Get(name)
	for _, t := range transform {
		v = t(v)
	}
	return v
}

// QueryAll returns every value of the named query-string parameter.
func (c *Context) QueryAll(name string, transform ...func(string) string) []string {
	vs := c.Request.ParsedURL().Query()[name]
	out := make([]string, len(vs))
	for i, v := range vs {
		for _, t := range transform {
			v = t(v)
		}
		out[i] = v
	}
	return out
}

// Respond wraps body as a pre-built response value (spec §4.I "response(body, opts)").
func (c *Context) Respond(body any, status ...any) (*Response, error) {
	r := NewResponse(body)
	if len(status) > 0 {
		n, err := resolveStatus(status[0])
		if err != nil {
			return nil, err
		}
		r.Status(n)
	}
	return r, nil
}

// SetStatus mutates the response state's status, accepting either an int
// or a well-known textual alias.
func (c *Context) SetStatus(code any) error {
	n, err := resolveStatus(code)
	if err != nil {
		return err
	}
	c.Response.Status = n
	return nil
}

// Status returns the response state's current status.
func (c *Context) Status() int { return c.Response.Status }

// Redirect throws a RedirectError (spec §4.I); the pipeline's error chain
// and default renderer convert it into a 301/302.
func Redirect(path string, permanent bool) error {
	return NewRedirectError(path, permanent)
}

// Abort throws an HTTPError with the given message and status, defaulting
// to 400 (spec §4.I).
func Abort(message string, status ...int) error {
	s := 400
	if len(status) > 0 {
		s = status[0]
	}
	return NewHTTPError(s, message)
}

// AbortNotFound throws a NotFoundError.
func AbortNotFound() error { return NewNotFoundError("") }

// AbortIs reports whether err is an abort-like error (any taxonomy HTTP
// error, or a cancellation).
func AbortIs(err error) bool { return IsHTTPError(err) || IsAborted(err) }

// AbortAssert returns err if cond is false, nil otherwise — for flow
// that reads more naturally as an assertion than an if-statement.
func AbortAssert(cond bool, err error) error {
	if !cond {
		return err
	}
	return nil
}

// AbortAssertNot is the negation of AbortAssert.
func AbortAssertNot(cond bool, err error) error {
	if cond {
		return err
	}
	return nil
}

// AbortRethrow re-throws err only if it is abort-like (HTTPError or
// cancellation); anything else is swallowed (spec §4.I).
func AbortRethrow(err error) error {
	if err == nil {
		return nil
	}
	if AbortIs(err) {
		return err
	}
	return nil
}

// Defer appends fn to the current request's defer queue, drained in
// registration order after the transport write (spec §4.F step 12).
func (c *Context) Defer(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deferFns = append(c.deferFns, fn)
}

// OnError appends an observer invoked before the error-hook chain,
// purely for observation: it cannot handle the error (spec §4.I, §4.F).
func (c *Context) OnError(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onErrorFn = append(c.onErrorFn, fn)
}
