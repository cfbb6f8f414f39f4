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

// Package cors installs a send hook that writes CORS response headers,
// mirroring the Access-Control-* contract without depending on the
// request body shape.
package cors

import (
	"strconv"
	"strings"

	"github.com/minima-js/minima"
)

// Option configures the CORS hook.
type Option func(*config)

type config struct {
	allowedOrigins   []string
	allowedMethods   []string
	allowedHeaders   []string
	exposedHeaders   []string
	allowCredentials bool
	maxAge           int
	allowAllOrigins  bool
}

func defaultConfig() *config {
	return &config{
		allowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		allowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		maxAge:         3600,
	}
}

// WithAllowedOrigins sets specific allowed origins.
func WithAllowedOrigins(origins ...string) Option {
	return func(c *config) { c.allowedOrigins = origins }
}

// WithAllowAllOrigins sets Access-Control-Allow-Origin: * unconditionally.
func WithAllowAllOrigins() Option {
	return func(c *config) { c.allowAllOrigins = true }
}

// WithAllowedMethods overrides the allowed methods list.
func WithAllowedMethods(methods ...string) Option {
	return func(c *config) { c.allowedMethods = methods }
}

// WithAllowCredentials enables Access-Control-Allow-Credentials.
func WithAllowCredentials(allow bool) Option {
	return func(c *config) { c.allowCredentials = allow }
}

func (c *config) originAllowed(origin string) bool {
	if c.allowAllOrigins {
		return true
	}
	for _, o := range c.allowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

// New builds a SendHook that writes CORS headers onto the response
// (spec §4.F step 9: "hooks may observe or mutate response headers ...
// but not the body bytes").
func New(opts ...Option) minima.SendHook {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return func(ctx *minima.Context) {
		origin := ctx.Header("Origin")
		if origin == "" || !cfg.originAllowed(origin) {
			return
		}
		if cfg.allowAllOrigins {
			ctx.AppendHeader("Access-Control-Allow-Origin", "*")
		} else {
			ctx.AppendHeader("Access-Control-Allow-Origin", origin)
			ctx.AppendHeader("Vary", "Origin")
		}
		ctx.AppendHeader("Access-Control-Allow-Methods", strings.Join(cfg.allowedMethods, ", "))
		ctx.AppendHeader("Access-Control-Allow-Headers", strings.Join(cfg.allowedHeaders, ", "))
		if len(cfg.exposedHeaders) > 0 {
			ctx.AppendHeader("Access-Control-Expose-Headers", strings.Join(cfg.exposedHeaders, ", "))
		}
		if cfg.allowCredentials {
			ctx.AppendHeader("Access-Control-Allow-Credentials", "true")
		}
		ctx.AppendHeader("Access-Control-Max-Age", strconv.Itoa(cfg.maxAge))
	}
}
