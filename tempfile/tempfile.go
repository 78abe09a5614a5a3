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

// Package tempfile creates collision-free temporary files and keeps track of
// the ones that could not be removed so they are deleted at process end.
package tempfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/osv-depcheck/log"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var (
	mu      sync.Mutex
	pending = map[string]bool{}
)

// Create creates a new file named "<uuid><suffix>" in dir. The name is unique
// among concurrent callers.
func Create(dir, suffix string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating temp dir %q: %w", dir, err)
	}
	path := filepath.Join(dir, uuid.NewString()+suffix)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return f, nil
}

// Remove deletes path. If the deletion fails the path is registered with
// DeleteOnExit and the failure is only logged.
func Remove(path string) {
	if err := os.RemoveAll(path); err != nil {
		log.Warnf("failed to remove temp path %q, will retry on exit: %v", path, err)
		DeleteOnExit(path)
	}
}

// DeleteOnExit registers path for removal by Cleanup.
func DeleteOnExit(path string) {
	mu.Lock()
	defer mu.Unlock()
	pending[path] = true
}

// Pending returns the registered paths, sorted.
func Pending() []string {
	mu.Lock()
	defer mu.Unlock()
	out := make([]string, 0, len(pending))
	for p := range pending {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Cleanup removes every registered path. Paths that are already gone count as
// removed; the others stay registered and their errors are returned.
func Cleanup() error {
	mu.Lock()
	defer mu.Unlock()
	var errs error
	for p := range pending {
		if err := os.RemoveAll(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = multierr.Append(errs, err)
			continue
		}
		delete(pending, p)
	}
	return errs
}
