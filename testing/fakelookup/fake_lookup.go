// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fakelookup provides a fake remote lookup keyed by digest for tests.
package fakelookup

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/osv-depcheck/analyzer"
)

// Fake answers lookups from fixed tables and counts the calls it gets.
// Unknown digests are reported as analyzer.ErrNotFound.
type Fake[T any] struct {
	mu      sync.Mutex
	results map[string]*T
	errs    map[string]error
	calls   map[string]int
}

// New returns an empty Fake.
func New[T any]() *Fake[T] {
	return &Fake[T]{
		results: map[string]*T{},
		errs:    map[string]error{},
		calls:   map[string]int{},
	}
}

// WithResult makes lookups of digest return v.
func (f *Fake[T]) WithResult(digest string, v *T) *Fake[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[digest] = v
	return f
}

// WithError makes lookups of digest fail with err.
func (f *Fake[T]) WithError(digest string, err error) *Fake[T] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[digest] = err
	return f
}

// Lookup returns the configured answer for digest.
func (f *Fake[T]) Lookup(ctx context.Context, digest string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[digest]++
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", analyzer.ErrTransport, err)
	}
	if err, ok := f.errs[digest]; ok {
		return nil, err
	}
	if v, ok := f.results[digest]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", analyzer.ErrNotFound, digest)
}

// Calls returns the number of lookups of digest.
func (f *Fake[T]) Calls(digest string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[digest]
}

// TotalCalls returns the number of lookups of any digest.
func (f *Fake[T]) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}
