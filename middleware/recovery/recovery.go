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

// Package recovery builds a root middleware that converts a handler panic
// into a 500 HTTPError instead of crashing the serving goroutine.
package recovery

import (
	"fmt"
	"log"
	"runtime/debug"

	"github.com/minima-js/minima"
)

// Option configures the recovery hook.
type Option func(*config)

type config struct {
	stackTrace bool
	stackSize  int
	logger     func(err any, stack []byte)
}

func defaultConfig() *config {
	return &config{
		stackTrace: true,
		stackSize:  4 << 10,
		logger:     defaultLogger,
	}
}

func defaultLogger(err any, stack []byte) {
	log.Printf("[recovery] panic recovered: %v\n%s", err, stack)
}

// WithStackTrace enables or disables stack trace logging. Default: true.
func WithStackTrace(enabled bool) Option {
	return func(c *config) { c.stackTrace = enabled }
}

// WithStackSize sets the maximum stack trace buffer size. Default: 4KB.
func WithStackSize(size int) Option {
	return func(c *config) { c.stackSize = size }
}

// WithLogger sets a custom panic logger.
func WithLogger(fn func(err any, stack []byte)) Option {
	return func(c *config) { c.logger = fn }
}

// New builds a RootMiddleware that recovers from panics in request hooks,
// the handler, and transform hooks.
//
// Because request hooks run sequentially in the same goroutine rather
// than via defer around the whole pipeline, Recovery is installed as the
// scope's $rootMiddleware rather than as a request hook so it truly wraps
// handler panics; the returned RootMiddleware is what
// App.RootScope().SetRootMiddleware expects.
func New(opts ...Option) minima.RootMiddleware {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return func(ctx *minima.Context, next func() (any, error)) (body any, err error) {
		defer func() {
			if r := recover(); r != nil {
				if cfg.stackTrace {
					stack := debug.Stack()
					if len(stack) > cfg.stackSize {
						stack = stack[:cfg.stackSize]
					}
					cfg.logger(r, stack)
				} else {
					cfg.logger(r, nil)
				}
				err = minima.NewHTTPError(500, fmt.Sprintf("panic: %v", r))
			}
		}()
		return next()
	}
}
