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

package extraction

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// SafeJoin resolves an archive entry name against destination. It returns the
// target path on disk and the normalized slash-separated relative path.
// Absolute names, drive letters, UNC paths and names with ".." segments are
// rejected with ErrPathTraversalRejected regardless of the host platform.
func SafeJoin(destination, entry string) (target, rel string, err error) {
	name := strings.ReplaceAll(entry, "\\", "/")
	if name == "" {
		return "", "", fmt.Errorf("%w: empty entry name", ErrPathTraversalRejected)
	}
	if strings.HasPrefix(name, "/") || hasDriveLetter(name) {
		return "", "", fmt.Errorf("%w: absolute entry name %q", ErrPathTraversalRejected, entry)
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", "", fmt.Errorf("%w: entry name %q contains a parent segment", ErrPathTraversalRejected, entry)
		}
	}
	rel = path.Clean(name)
	if rel == "." {
		return filepath.Clean(destination), ".", nil
	}

	target = filepath.Join(destination, filepath.FromSlash(rel))
	r, err := filepath.Rel(destination, target)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) || filepath.IsAbs(r) {
		return "", "", fmt.Errorf("%w: entry name %q resolves outside the destination", ErrPathTraversalRejected, entry)
	}
	return target, rel, nil
}

func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
