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
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// ListenResult mirrors spec §6's `listen() -> {address, port, hostname}`.
type ListenResult struct {
	Address  string
	Port     int
	Hostname string
}

// Listen boots the plugin tree via Ready, binds the transport, prints the
// startup banner, fires listen hooks, and serves until ctx is cancelled,
// then runs Close (spec §6 listen()/close()).
func (a *App) Listen(ctx context.Context) (ListenResult, error) {
	if err := a.Ready(ctx); err != nil {
		return ListenResult{}, fmt.Errorf("minima: ready failed: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", a.config.host, a.config.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return ListenResult{}, fmt.Errorf("minima: listen %s: %w", addr, err)
	}

	var handler http.Handler = a
	if a.config.enableH2C {
		h2s := &http2.Server{}
		handler = h2c.NewHandler(a, h2s)
	}

	a.httpServer = &http.Server{
		Handler:        handler,
		ReadTimeout:    a.config.readTimeout,
		WriteTimeout:   a.config.writeTimeout,
		MaxHeaderBytes: a.config.maxHeaderBytes,
	}

	tcpAddr, _ := ln.Addr().(*net.TCPAddr)
	result := ListenResult{Address: ln.Addr().String(), Hostname: a.config.host}
	if tcpAddr != nil {
		result.Port = tcpAddr.Port
	}

	a.printBanner(result)
	a.fireListenHooks(result.Address)

	go func() {
		if err := a.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.logger.Error("server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.shutdownTimeout)
		defer cancel()
		_ = a.Close(shutdownCtx)
	}()

	return result, nil
}

func (a *App) fireListenHooks(addr string) {
	for _, s := range a.scopes {
		for _, h := range s.hooks.listen {
			h(addr)
		}
	}
}

func (a *App) shutdownTransport(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	return a.httpServer.Shutdown(ctx)
}
