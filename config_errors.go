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
	"strings"
)

// ConfigError describes one invalid Option value. It is never sent to a
// client; it is surfaced from New() before any request handling begins.
type ConfigError struct {
	Field      string
	Value      any
	Message    string
	Constraint string
}

func (e *ConfigError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("minima: %s: %s (got %v, constraint: %s)", e.Field, e.Message, e.Value, e.Constraint)
	}
	if e.Value != nil {
		return fmt.Sprintf("minima: %s: %s (got %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("minima: %s: %s", e.Field, e.Message)
}

func newInvalidValueError(field string, value any, constraint string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: "invalid value", Constraint: constraint}
}

func newComparisonError(field string, value any, constraint string) *ConfigError {
	return &ConfigError{Field: field, Value: value, Message: "failed constraint", Constraint: constraint}
}

// ConfigValidationError aggregates the ConfigErrors found while validating a
// config (app/errors.go's pattern).
type ConfigValidationError struct {
	Errors []*ConfigError
}

func (v *ConfigValidationError) Error() string {
	if len(v.Errors) == 1 {
		return v.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "minima: %d configuration errors:\n", len(v.Errors))
	for i, e := range v.Errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, e.Error())
	}
	return b.String()
}

// Add appends a ConfigError to the set.
func (v *ConfigValidationError) Add(err *ConfigError) { v.Errors = append(v.Errors, err) }

// HasErrors reports whether any ConfigError was collected.
func (v *ConfigValidationError) HasErrors() bool { return len(v.Errors) > 0 }

// ToError returns v as an error, or nil if no ConfigError was collected.
func (v *ConfigValidationError) ToError() error {
	if !v.HasErrors() {
		return nil
	}
	return v
}
