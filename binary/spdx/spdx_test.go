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

package spdx_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/osv-depcheck/binary/spdx"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"
)

func newDoc() *v2_3.Document {
	return &v2_3.Document{
		SPDXVersion:    "SPDX-2.3",
		DataLicense:    "CC0-1.0",
		SPDXIdentifier: "Document",
		DocumentName:   "Document name",
		CreationInfo: &v2_3.CreationInfo{
			Created: "2006-01-02T15:04:05Z",
		},
	}
}

func TestEncode23(t *testing.T) {
	testCases := []struct {
		desc   string
		format string
		want   string
	}{
		{
			desc:   "tag-value",
			format: "spdx23-tag-value",
			want:   "DocumentName: Document name",
		},
		{
			desc:   "yaml",
			format: "spdx23-yaml",
			want:   "name: Document name",
		},
		{
			desc:   "json",
			format: "spdx23-json",
			want:   `"name": "Document name"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			var buf bytes.Buffer
			if err := spdx.Encode23(&buf, newDoc(), tc.format); err != nil {
				t.Fatalf("spdx.Encode23(%s) returned an error: %v", tc.format, err)
			}
			if !strings.Contains(buf.String(), tc.want) {
				t.Errorf("spdx.Encode23(%s) = %q, want it to contain %q", tc.format, buf.String(), tc.want)
			}
		})
	}
}

func TestWrite_InvalidFormat(t *testing.T) {
	fullPath := filepath.Join(t.TempDir(), "output")
	format := "invalid-format"
	if err := spdx.Write23(newDoc(), fullPath, format); err == nil ||
		!strings.Contains(err.Error(), "invalid SPDX format") {
		t.Errorf("spdx.Write23(%s, %s) didn't return an invalid format error: %v", fullPath, format, err)
	}
}
