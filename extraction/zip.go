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
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"go.uber.org/multierr"
)

func walkZip(path string, visit func(*entry) error) (err error) {
	r, err := zip.OpenReader(path)
	// ErrInsecurePath still yields a usable reader; entry names are checked
	// by SafeJoin.
	if err != nil && !(errors.Is(err, zip.ErrInsecurePath) && r != nil) {
		return fmt.Errorf("%w: %s: %w", ErrArchiveUnreadable, path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(r))

	for _, f := range r.File {
		en := &entry{
			name: f.Name,
			mode: f.Mode(),
			size: int64(f.UncompressedSize64),
			open: func() (io.ReadCloser, error) { return f.Open() },
		}
		if err := visit(en); err != nil {
			return err
		}
	}
	return nil
}
