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

// Handler is a registered route handler. Its return value becomes the
// provisional response body (spec §4.F step 6).
type Handler func(ctx *Context) (any, error)

// Route is the immutable route record (spec §3): a route's owning scope
// is the scope active when registration occurred, and it never changes
// after registration.
type Route struct {
	Method  string
	Path    string
	Handler Handler

	// Owner is the scope active when this route was registered; it
	// determines the effective scope chain for every request matched
	// to this route (spec §4.F step 4).
	Owner *Scope

	Metadata map[string]any
	Name     string
}

// newRoute builds the draft Route and applies app-level descriptors from
// owner followed by route-level descriptors, so that a route-level
// descriptor using the same metadata key as an app-level one wins by
// assignment order (spec §9 open question, resolved in SPEC_FULL.md).
func newRoute(owner *Scope, method, path string, handler Handler, routeDescriptors []MetaDescriptor) *Route {
	r := &Route{
		Method:   method,
		Path:     path,
		Handler:  handler,
		Owner:    owner,
		Metadata: make(map[string]any),
	}
	for _, d := range owner.descriptors {
		d.apply(r)
	}
	for _, d := range routeDescriptors {
		d.apply(r)
	}
	return r
}
