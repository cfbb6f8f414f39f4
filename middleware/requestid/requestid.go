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

// Package requestid installs a request hook that assigns a unique ID to
// every request, echoed back as a response header and stashed in
// Context.Locals for handlers and hooks to read.
package requestid

import (
	"github.com/google/uuid"
	"github.com/minima-js/minima"
)

// LocalsKey is the Context.Locals key the generated ID is stored under.
const LocalsKey = "minima.requestID"

// Option configures the request-id hook.
type Option func(*config)

type config struct {
	header        string
	generator     func() string
	allowClientID bool
}

func defaultConfig() *config {
	return &config{
		header:        "X-Request-ID",
		generator:     func() string { return uuid.New().String() },
		allowClientID: true,
	}
}

// WithHeader sets the header name carrying the request ID. Default:
// "X-Request-ID".
func WithHeader(name string) Option {
	return func(c *config) { c.header = name }
}

// WithGenerator overrides the ID generator. Default: google/uuid v4.
func WithGenerator(fn func() string) Option {
	return func(c *config) { c.generator = fn }
}

// WithAllowClientID controls whether an inbound header value is trusted
// instead of generating a fresh ID. Default: true.
func WithAllowClientID(allow bool) Option {
	return func(c *config) { c.allowClientID = allow }
}

// New builds a RequestHook that assigns a request ID. Register it early
// in the request-hook chain of the scope it should apply to.
func New(opts ...Option) minima.RequestHook {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return func(ctx *minima.Context) (any, error) {
		id := ""
		if cfg.allowClientID {
			id = ctx.Header(cfg.header)
		}
		if id == "" {
			id = cfg.generator()
		}
		ctx.Locals[LocalsKey] = id
		_ = ctx.SetHeader(cfg.header, id)
		return nil, nil
	}
}

// FromContext returns the request ID assigned to ctx, if any.
func FromContext(ctx *minima.Context) (string, bool) {
	v, ok := ctx.Locals[LocalsKey]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
