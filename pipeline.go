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
	"errors"
	"log/slog"
	"net/http"
)

var (
	errHijackUnsupported = errors.New("minima: transport does not support hijacking")
	errHijackedResponse  = errors.New("minima: request hook returned a response after hijack")
)

// runPipeline drives a single request through the full algorithm of spec
// §4.F. root is the application's root scope; router resolves routes.
func (a *App) runPipeline(w http.ResponseWriter, r *http.Request) {
	// Step 1: context establishment.
	ctx := newContext(a.root, r, w)
	restore := bind(ctx)
	defer restore()

	body, err := a.root.root(ctx, func() (any, error) {
		return a.dispatch(ctx)
	})

	a.finish(ctx, body, err)
}

// dispatch implements pipeline steps 3-8: match, scope resolution,
// request hooks, handler, transform hooks, serialization. The error
// return is handled by the error-hook chain in runPipeline/finish.
func (a *App) dispatch(ctx *Context) (any, error) {
	// Step 3: route match.
	match := a.router.Find(ctx.Request.Method, ctx.Request.Path)
	if match == nil {
		return nil, NewNotFoundError("")
	}

	// Step 4: scope resolution.
	owner := match.Route.Owner
	ctx.Scope = owner
	ctx.Route = &MatchedRoute{
		Route:    match.Route,
		Params:   match.Params,
		Methods:  a.router.AllowedMethods(ctx.Request.Path),
		Path:     match.Route.Path,
		Metadata: match.Route.Metadata,
	}
	chain := owner.Chain()

	// Step 5: request hooks, parent->child, FIFO within a scope.
	for _, s := range chain {
		for _, h := range s.hooks.request {
			resp, err := h(ctx)
			if err != nil {
				return nil, err
			}
			if resp != nil {
				if ctx.Hijacked() {
					return nil, errHijackedResponse
				}
				return resp, nil
			}
		}
	}

	// Step 6: handler execution.
	body, err := match.Route.Handler(ctx)
	if err != nil {
		return nil, err
	}

	return a.transformAndSerialize(ctx, chain, body)
}

// transformAndSerialize implements pipeline steps 7-8, reused both for
// the happy path and for the "error hook handled it" resumption point.
func (a *App) transformAndSerialize(ctx *Context, chain []*Scope, body any) (any, error) {
	// Step 7: transform hooks, child->parent, LIFO.
	for i := len(chain) - 1; i >= 0; i-- {
		hooks := chain[i].hooks.transform
		for j := len(hooks) - 1; j >= 0; j-- {
			newBody, changed, err := hooks[j](body, ctx)
			if err != nil {
				return nil, err
			}
			if changed {
				body = newBody
			}
		}
	}

	if ctx.Hijacked() {
		return nil, errHijackedResponse
	}

	// An AsyncSequence body is streamed over the hijacked connection
	// instead of being decorated and serialized.
	if seq, ok := body.(AsyncSequence); ok {
		if _, _, err := ctx.Hijack(); err != nil {
			return nil, err
		}
		if err := seq.Write(ctx); err != nil {
			return nil, err
		}
		return renderedResponse{}, nil
	}

	// Step 8: serialization via the decorator chain then the serializer.
	serializer := ctx.Scope.effectiveSerializer()
	data, contentType, headers, status, err := decorate(chain, serializer, body)
	if err != nil {
		return nil, err
	}
	return renderedResponse{data: data, contentType: contentType, headers: headers, status: status}, nil
}

// renderedResponse is the internal value produced by step 8, distinct
// from the user-facing *Response so send/sent hooks and the transport
// writer have a single concrete shape to act on. status is 0 unless the
// handler returned a pre-built *Response carrying an explicit status.
type renderedResponse struct {
	data        []byte
	contentType string
	headers     map[string]string
	status      int
}

// finish implements the remainder of the pipeline: error-hook chain (on
// failure), send hooks, transport write, sent hooks, defer drain (spec
// §4.F steps 9-12 plus the error chain).
func (a *App) finish(ctx *Context, result any, err error) {
	chain := ctx.Scope.Chain()

	if err != nil {
		a.runOnErrorObservers(ctx, err)
		result, err = a.runErrorChain(ctx, chain, err)
	}

	erroredPath := err != nil
	if err != nil {
		result = a.renderDefault(ctx, err)
	}

	rr, ok := result.(renderedResponse)
	if !ok {
		// A request hook's short-circuit response, a root middleware's
		// own response, or the default renderer's body never went
		// through transformAndSerialize. Serialize it now with no
		// transform hooks; only error-hook-handled bodies resume at
		// step 7, and default rendering bypasses transform per spec
		// §4.F.
		data, contentType, err2 := classifyAndSerialize(result, ctx.Scope.effectiveSerializer())
		if err2 != nil {
			data, contentType = []byte(`{"message":"Unable to process request"}`), "application/json; charset=utf-8"
			ctx.Response.Status = http.StatusInternalServerError
		}
		rr = renderedResponse{data: data, contentType: contentType}
	}

	for k, v := range rr.headers {
		ctx.Response.Headers.Set(k, v)
	}
	if rr.contentType != "" {
		ctx.Response.Headers.Set("Content-Type", rr.contentType)
	}
	if rr.status != 0 {
		ctx.Response.Status = rr.status
	}
	ctx.Response.Body = rr.data

	// Step 9: send hooks, child->parent, LIFO.
	for i := len(chain) - 1; i >= 0; i-- {
		hooks := chain[i].hooks.send
		for j := len(hooks) - 1; j >= 0; j-- {
			hooks[j](ctx)
		}
	}

	// Step 10: transport write, skipped if the signal already fired.
	var writeErr error
	if !ctx.Cancelled() && !ctx.hijacked {
		writeErr = a.writeTransport(ctx, rr)
	}

	// Step 11: sent hooks, child->parent, LIFO. On the default-render
	// error path this is the errorSent variant: it still runs the sent
	// store exactly once, after the write, passing the request's error
	// instead of the (usually nil) transport write error.
	sentErr := writeErr
	if erroredPath {
		sentErr = err
	}
	for i := len(chain) - 1; i >= 0; i-- {
		hooks := chain[i].hooks.sent
		for j := len(hooks) - 1; j >= 0; j-- {
			func() {
				defer recoverAndLog(a.logger, "sent hook panic")
				hooks[j](ctx, sentErr)
			}()
		}
	}

	// Step 12: defer queue drain, FIFO, errors logged only.
	ctx.mu.Lock()
	deferred := make([]func(), len(ctx.deferFns))
	copy(deferred, ctx.deferFns)
	ctx.mu.Unlock()
	for _, fn := range deferred {
		func() {
			defer recoverAndLog(a.logger, "defer callback panic")
			fn()
		}()
	}
}

func (a *App) writeTransport(ctx *Context, rr renderedResponse) error {
	for k, vs := range ctx.Response.Headers {
		for _, v := range vs {
			ctx.stdRW.Header().Add(k, v)
		}
	}
	ctx.stdRW.WriteHeader(ctx.Response.Status)
	_, err := ctx.stdRW.Write(rr.data)
	return err
}

// runOnErrorObservers runs request-scoped onError observers before the
// error-hook chain; panics are swallowed and logged (spec §9 open
// question resolution).
func (a *App) runOnErrorObservers(ctx *Context, err error) {
	ctx.mu.Lock()
	observers := make([]func(error), len(ctx.onErrorFn))
	copy(observers, ctx.onErrorFn)
	ctx.mu.Unlock()
	for _, fn := range observers {
		func() {
			defer recoverAndLog(a.logger, "onError observer panic")
			fn(err)
		}()
	}
}

// runErrorChain implements the error-hook chain (spec §4.F): LIFO across
// the scope chain (child->parent, then within each scope LIFO).
func (a *App) runErrorChain(ctx *Context, chain []*Scope, err error) (any, error) {
	for i := len(chain) - 1; i >= 0; i-- {
		hooks := chain[i].hooks.errorH
		for j := len(hooks) - 1; j >= 0; j-- {
			body, handled, rethrow := func() (body any, handled bool, rethrow error) {
				defer func() {
					if r := recover(); r != nil {
						rethrow = toError(r)
					}
				}()
				return hooks[j](err, ctx)
			}()

			if rethrow != nil {
				err = rethrow
				continue
			}
			if handled {
				if bodyErr, ok := body.(error); ok && IsHTTPError(bodyErr) {
					ctx.Response.Status = statusOf(bodyErr)
				} else {
					ctx.Response.Status = http.StatusOK
				}
				result, serr := a.transformAndSerialize(ctx, chain, body)
				return result, serr
			}
		}
	}
	return nil, err
}

// renderDefault applies the default error renderer (spec §4.F, §7) once
// no error hook has handled the error. The errorSent variant of the sent
// hooks fires later, in finish, after the transport write.
func (a *App) renderDefault(ctx *Context, err error) any {
	switch e := err.(type) {
	case *RedirectError:
		ctx.Response.Status = e.Status()
		ctx.Response.Headers.Set("Location", e.Location)
		for k, vs := range e.Headers {
			for _, v := range vs {
				ctx.Response.Headers.Add(k, v)
			}
		}
		return nil
	case *HTTPError:
		ctx.Response.Status = e.Status
		for k, vs := range e.Headers {
			for _, v := range vs {
				ctx.Response.Headers.Add(k, v)
			}
		}
		return e.Payload
	case *ValidationError:
		ctx.Response.Status = e.Status
		return e.Payload
	case *NotFoundError:
		ctx.Response.Status = e.Status
		return e.Payload
	case *ForbiddenError:
		ctx.Response.Status = e.Status
		return e.Payload
	default:
		a.logger.Error("unhandled request error", slog.Any("error", err))
		ctx.Response.Status = http.StatusInternalServerError
		return map[string]string{"message": "Unable to process request"}
	}
}

func toError(r any) error {
	if e, ok := r.(error); ok {
		return e
	}
	return errors.New("minima: panic in error hook")
}

func recoverAndLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil {
		logger.Warn(msg, slog.Any("recovered", r))
	}
}
