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
	"path/filepath"
	"strings"
)

// Format is an archive container format.
type Format int

// Supported formats.
const (
	FormatUnknown Format = iota
	FormatZip
	FormatTar
	FormatTarGzip
	FormatTarXz
	FormatTarZstd
	FormatTarBzip2
)

func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTar:
		return "tar"
	case FormatTarGzip:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	case FormatTarZstd:
		return "tar.zst"
	case FormatTarBzip2:
		return "tar.bz2"
	default:
		return "unknown"
	}
}

// Extensions of files in the zip family: Java archives, NuGet packages and
// plugin bundles are all plain zip files.
var zipExtensions = map[string]bool{
	".zip":   true,
	".jar":   true,
	".war":   true,
	".ear":   true,
	".sar":   true,
	".nupkg": true,
	".aar":   true,
	".hpi":   true,
	".jpi":   true,
	".nar":   true,
	".par":   true,
	".jmod":  true,
}

var tarSuffixes = []struct {
	suffix string
	format Format
}{
	{".tar.gz", FormatTarGzip},
	{".tgz", FormatTarGzip},
	{".tar.xz", FormatTarXz},
	{".txz", FormatTarXz},
	{".tar.zst", FormatTarZstd},
	{".tzst", FormatTarZstd},
	{".tar.bz2", FormatTarBzip2},
	{".tbz2", FormatTarBzip2},
	{".tar", FormatTar},
}

// DetectFormat returns the container format of path based on its name.
func DetectFormat(path string) Format {
	name := strings.ToLower(filepath.Base(path))
	if zipExtensions[filepath.Ext(name)] {
		return FormatZip
	}
	for _, s := range tarSuffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.format
		}
	}
	return FormatUnknown
}

// IsContainer reports whether path names a file the Extractor can unpack.
func IsContainer(path string) bool {
	return DetectFormat(path) != FormatUnknown
}
