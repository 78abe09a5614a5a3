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
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
	"go.uber.org/multierr"
)

// decompress wraps r according to format. The returned closer releases the
// decompressor, not r.
func decompress(r io.Reader, format Format) (io.Reader, io.Closer, error) {
	switch format {
	case FormatTar:
		return r, io.NopCloser(nil), nil
	case FormatTarGzip:
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return gz, gz, nil
	case FormatTarZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		rc := dec.IOReadCloser()
		return rc, rc, nil
	case FormatTarXz:
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, err
		}
		return xr, io.NopCloser(nil), nil
	case FormatTarBzip2:
		return bzip2.NewReader(r), io.NopCloser(nil), nil
	default:
		return nil, nil, fmt.Errorf("not a tar format: %s", format)
	}
}

func walkTar(path string, format Format, visit func(*entry) error) (err error) {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArchiveUnreadable, path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(f))

	r, closer, err := decompress(f, format)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrArchiveUnreadable, path, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(closer))

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		// ErrInsecurePath still yields a header; SafeJoin rejects the entry.
		if err != nil && !(errors.Is(err, tar.ErrInsecurePath) && hdr != nil) {
			return fmt.Errorf("%w: %s: failed to read next header in tarball: %w", ErrArchiveUnreadable, path, err)
		}

		opened := false
		en := &entry{
			name: hdr.Name,
			mode: tarMode(hdr),
			size: hdr.Size,
			open: func() (io.ReadCloser, error) {
				if opened {
					return nil, errors.New("tar entry opened twice")
				}
				opened = true
				return io.NopCloser(tr), nil
			},
		}
		if err := visit(en); err != nil {
			return err
		}
	}
}

// tarMode maps a tar header to a file mode. Hardlinks are reported as
// irregular since tar.Header.FileInfo reports them as regular files.
func tarMode(hdr *tar.Header) fs.FileMode {
	switch hdr.Typeflag {
	case tar.TypeReg:
		return fs.FileMode(hdr.Mode).Perm()
	case tar.TypeDir:
		return fs.ModeDir | fs.FileMode(hdr.Mode).Perm()
	case tar.TypeSymlink:
		return fs.ModeSymlink
	default:
		return fs.ModeIrregular
	}
}
