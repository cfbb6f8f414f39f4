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
	"log/slog"
	"time"
)

// config is the application's functional-options target, built via
// defaultConfig then mutated by Option values, then validated — the same
// sequence as app/app.go's New.
type config struct {
	logger *slog.Logger

	prefix                    string
	routerIgnoreTrailingSlash bool
	moduleDiscovery           bool

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	maxHeaderBytes  int
	port            int
	host            string

	enableMetrics bool
	enableTracing bool
	enableH2C     bool
	serviceName   string
}

func defaultConfig() *config {
	return &config{
		routerIgnoreTrailingSlash: true,
		readTimeout:               15 * time.Second,
		writeTimeout:              15 * time.Second,
		shutdownTimeout:           5 * time.Second,
		maxHeaderBytes:            1 << 20,
		port:                      8080,
		host:                      "0.0.0.0",
		serviceName:               "minima",
	}
}

// validate mirrors app/app.go's serverConfig.Validate: cross-field checks
// collected into a single ConfigValidationError rather than failing fast on the
// first problem.
func (c *config) validate() *ConfigValidationError {
	verr := &ConfigValidationError{}

	if c.port < 0 || c.port > 65535 {
		verr.Add(newInvalidValueError("port", c.port, "must be between 0 and 65535"))
	}
	if c.readTimeout <= 0 {
		verr.Add(newInvalidValueError("readTimeout", c.readTimeout, "must be positive"))
	}
	if c.writeTimeout <= 0 {
		verr.Add(newInvalidValueError("writeTimeout", c.writeTimeout, "must be positive"))
	}
	if c.shutdownTimeout < time.Second {
		verr.Add(newComparisonError("shutdownTimeout", c.shutdownTimeout, "must be at least 1s"))
	}
	if c.maxHeaderBytes < 1024 {
		verr.Add(newComparisonError("maxHeaderBytes", c.maxHeaderBytes, "must be at least 1KB"))
	}

	return verr
}

// Option configures an App at construction time (spec §6 createApp(opts)).
type Option func(*config)

// WithLogger installs a structured logger. Passing nil disables logging
// (the app falls back to a discard logger), matching the `logger:
// boolean|object` option of spec §6.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithPrefix sets the application-wide path prefix applied to every
// route registered on the root scope (spec §6).
func WithPrefix(prefix string) Option {
	return func(c *config) { c.prefix = prefix }
}

// WithIgnoreTrailingSlash controls router trailing-slash normalization
// (spec §4.A, §6 `router.ignoreTrailingSlash`).
func WithIgnoreTrailingSlash(ignore bool) Option {
	return func(c *config) { c.routerIgnoreTrailingSlash = ignore }
}

// WithModuleDiscovery toggles file-system module discovery. Discovery
// itself is an external collaborator (spec §1); this only flips the flag
// an external discoverer can check, and defaults to disabled.
func WithModuleDiscovery(enabled bool) Option {
	return func(c *config) { c.moduleDiscovery = enabled }
}

// WithServerTimeouts overrides the transport's read/write/shutdown
// timeouts (ambient stack, grounded on app/app.go's serverConfig).
func WithServerTimeouts(read, write, shutdown time.Duration) Option {
	return func(c *config) {
		c.readTimeout = read
		c.writeTimeout = write
		c.shutdownTimeout = shutdown
	}
}

// WithMaxHeaderBytes overrides the transport's maximum header size.
func WithMaxHeaderBytes(n int) Option {
	return func(c *config) { c.maxHeaderBytes = n }
}

// WithAddr sets the host and port Listen binds to.
func WithAddr(host string, port int) Option {
	return func(c *config) {
		c.host = host
		c.port = port
	}
}

// WithMetrics enables the Prometheus-backed observability recorder
// (SPEC_FULL.md domain stack).
func WithMetrics(enabled bool) Option {
	return func(c *config) { c.enableMetrics = enabled }
}

// WithTracing enables the OpenTelemetry-backed observability recorder
// (SPEC_FULL.md domain stack).
func WithTracing(enabled bool) Option {
	return func(c *config) { c.enableTracing = enabled }
}

// WithH2C enables cleartext HTTP/2 on the transport (SPEC_FULL.md domain
// stack; golang.org/x/net/http2/h2c).
func WithH2C(enabled bool) Option {
	return func(c *config) { c.enableH2C = enabled }
}

// WithServiceName sets the service name reported in spans and metrics.
func WithServiceName(name string) Option {
	return func(c *config) { c.serviceName = name }
}
