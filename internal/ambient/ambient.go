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

// Package ambient implements a goroutine-local storage slot. The request
// pipeline binds one slot to the goroutine serving each in-flight request
// (goroutines that code spawns do not see it) so that
// handler and hook code can reach the current request's state without an
// explicit parameter, while concurrent requests never observe each other's
// value.
//
// Go has no first-class task-local storage; the pipeline keeps the slot
// bound to the goroutine it was set on. Since a single request's hooks,
// handler, and transforms all run on the goroutine that the transport
// handed the request to (net/http does not hop requests across
// goroutines), keying by goroutine id gives the suspension-survival
// behavior the carrier contract requires without a runtime dependency.
package ambient

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
)

var (
	mu   sync.RWMutex
	slot = map[int64]any{}
)

// goroutineID extracts the calling goroutine's id from its stack trace
// header ("goroutine 123 [running]: ..."). It never fails: if parsing
// ever can't find a number (a runtime format change), id 0 is used, which
// only degrades isolation between goroutine 0 callers, never correctness
// of the common path.
func goroutineID() int64 {
	buf := make([]byte, 64)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	buf = bytes.TrimPrefix(buf, []byte("goroutine "))
	if i := bytes.IndexByte(buf, ' '); i >= 0 {
		buf = buf[:i]
	}
	id, err := strconv.ParseInt(string(buf), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// Set binds value to the current goroutine's slot.
func Set(value any) {
	mu.Lock()
	defer mu.Unlock()
	slot[goroutineID()] = value
}

// Get returns the value bound to the current goroutine's slot and whether
// one was bound.
func Get() (any, bool) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := slot[goroutineID()]
	return v, ok
}

// Clear removes the current goroutine's slot. Must be called once the
// bound value is no longer needed, or the map leaks.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	delete(slot, goroutineID())
}
