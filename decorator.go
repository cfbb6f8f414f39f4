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
	"encoding/json"
)

// Serializer converts a decorated response body into wire bytes and a
// content type. The default is JSON; it is replaceable per scope (spec
// §4.G).
type Serializer interface {
	Serialize(body any) (data []byte, contentType string, err error)
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(body any) ([]byte, string, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, "", err
	}
	return data, "application/json; charset=utf-8", nil
}

// DefaultSerializer is the JSON serializer used when a scope does not
// install its own.
var DefaultSerializer Serializer = jsonSerializer{}

// AsyncSequence marks a handler return value as a finite, non-restartable
// lazy sequence to be streamed chunk-by-chunk rather than buffered (spec
// §4.G). When the body left by the transform hooks is an AsyncSequence,
// the pipeline hijacks the transport and calls Write; the raw connection
// is then available as ctx.Request.Body. Decorators do not run on such a
// body, and an AsyncSequence produced by a decorator is serialized like
// any other value.
type AsyncSequence interface {
	// Write drains the sequence onto the hijacked connection. It owns
	// framing entirely; the pipeline does not touch the body after
	// handing control here.
	Write(ctx *Context) error
}

// Decorator transforms a provisional response body before serialization,
// e.g. wrapping it into a pre-built *Response. A scope has at most one;
// decorators are resolved root-down (spec §4.G).
type Decorator func(body any) (any, error)

// preparedResponse marks a value as already a complete, pre-built
// response that should pass through untouched (spec §4.G).
type preparedResponse struct {
	status      int
	headers     map[string]string
	body        any
	contentType string
}

// Response is a pre-built response value, returned by Context.Respond and
// NewResponse (spec §4.I).
type Response struct {
	p preparedResponse
}

// NewResponse wraps body as a pre-built response, defaulting to status
// 200.
func NewResponse(body any) *Response {
	return &Response{p: preparedResponse{status: 200, body: body}}
}

// Status sets the response's HTTP status, accepting either an int or a
// well-known textual alias (spec §6).
func (r *Response) Status(code any) *Response {
	if n, err := resolveStatus(code); err == nil {
		r.p.status = n
	}
	return r
}

// Code is an alias for Status, matching the "reply.code(...)" affordance
// noted in SPEC_FULL.md's supplemented features.
func (r *Response) Code(n int) *Response { r.p.status = n; return r }

// Type sets the response content type explicitly, bypassing body-shape
// inference.
func (r *Response) Type(ct string) *Response { r.p.contentType = ct; return r }

// Header sets a response header on the pre-built response.
func (r *Response) Header(key, value string) *Response {
	if r.p.headers == nil {
		r.p.headers = make(map[string]string)
	}
	r.p.headers[key] = value
	return r
}

// decorate runs the scope chain's decorators root-down, then classifies
// and serializes the resulting body (spec §4.G). It returns final bytes,
// content type, the headers set on a pre-built *Response, and an explicit status
// (0 meaning "no override": the body wasn't a pre-built *Response, so the
// in-flight ResponseState's status stands as-is).
func decorate(chain []*Scope, serializer Serializer, body any) (data []byte, contentType string, headers map[string]string, status int, err error) {
	for _, s := range chain {
		if s.decorator == nil {
			continue
		}
		body, err = s.decorator(body)
		if err != nil {
			return nil, "", nil, 0, err
		}
	}

	switch v := body.(type) {
	case *Response:
		if v.p.body == nil {
			return nil, v.p.contentType, v.p.headers, v.p.status, nil
		}
		data, contentType, err = classifyAndSerialize(v.p.body, serializer)
		if v.p.contentType != "" {
			contentType = v.p.contentType
		}
		return data, contentType, v.p.headers, v.p.status, err
	default:
		data, contentType, err = classifyAndSerialize(body, serializer)
		return data, contentType, nil, 0, err
	}
}

func classifyAndSerialize(body any, serializer Serializer) ([]byte, string, error) {
	switch v := body.(type) {
	case nil:
		return nil, "", nil
	case string:
		return []byte(v), "text/plain; charset=utf-8", nil
	case []byte:
		return v, "application/octet-stream", nil
	default:
		return serializer.Serialize(v)
	}
}
