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

package depsdev_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/osv-depcheck/clients/depsdev"
)

func TestDefaultConfig(t *testing.T) {
	want := &depsdev.Config{Address: "api.deps.dev:443"}
	if diff := cmp.Diff(want, depsdev.DefaultConfig()); diff != "" {
		t.Errorf("DefaultConfig() returned an unexpected diff (-want +got): %v", diff)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *depsdev.Config
		wantErr error
	}{
		{
			name:    "nil config",
			cfg:     nil,
			wantErr: depsdev.ErrMalformedConfig,
		},
		{
			name:    "empty address",
			cfg:     &depsdev.Config{Address: ""},
			wantErr: depsdev.ErrMalformedConfig,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := depsdev.New(tc.cfg)
			if !cmp.Equal(err, tc.wantErr, cmpopts.EquateErrors()) {
				t.Errorf("New(%v) returned an unexpected error: %v", tc.cfg, err)
			}
			if got != nil {
				t.Errorf("New(%v) = %v, want nil", tc.cfg, got)
			}
		})
	}
}

func TestNewIsLazy(t *testing.T) {
	c, err := depsdev.New(&depsdev.Config{Address: "localhost:1"})
	if err != nil {
		t.Fatalf("New(): %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close(): %v", err)
	}
}
