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

package analyzer_test

import (
	"testing"

	"github.com/google/osv-depcheck/analyzer"
)

func TestExtensionFilter(t *testing.T) {
	f := analyzer.ExtensionFilter("jar", ".war")
	tests := []struct {
		path string
		want bool
	}{
		{"/a/b/lib.jar", true},
		{"/a/b/LIB.JAR", true},
		{"app.war", true},
		{"readme.txt", false},
		{"jar", false},
		{"/a/b.jar/c", false},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := f(tc.path); got != tc.want {
				t.Errorf("ExtensionFilter(jar, war)(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestPhaseOrder(t *testing.T) {
	for i := 1; i < len(analyzer.Phases); i++ {
		if analyzer.Phases[i-1] >= analyzer.Phases[i] {
			t.Errorf("phase %v is not before %v", analyzer.Phases[i-1], analyzer.Phases[i])
		}
	}
	if got := analyzer.PhaseInformationCollection.String(); got != "INFORMATION_COLLECTION" {
		t.Errorf("String() = %q, want INFORMATION_COLLECTION", got)
	}
	if got := analyzer.Phase(99).String(); got != "UNKNOWN" {
		t.Errorf("String() = %q, want UNKNOWN", got)
	}
}
