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

// Package cdx provides utilities for writing CycloneDX documents.
package cdx

import (
	"fmt"
	"io"
	"os"

	"github.com/CycloneDX/cyclonedx-go"
)

// Formats maps the output format names accepted by the CLI to CycloneDX file formats.
var Formats = map[string]cyclonedx.BOMFileFormat{
	"cdx-json": cyclonedx.BOMFileFormatJSON,
	"cdx-xml":  cyclonedx.BOMFileFormatXML,
}

// Encode writes doc to w in the chosen format.
func Encode(w io.Writer, doc *cyclonedx.BOM, format string) error {
	cdxFormat, ok := Formats[format]
	if !ok {
		return fmt.Errorf("%q is an invalid CDX format or not supported by depcheck", format)
	}
	return cyclonedx.NewBOMEncoder(w, cdxFormat).SetPretty(true).Encode(doc)
}

// Write writes doc into a file in the chosen format. The path "-" writes to stdout.
func Write(doc *cyclonedx.BOM, path string, format string) error {
	if _, ok := Formats[format]; !ok {
		return fmt.Errorf("%s has an invalid CDX format or not supported by depcheck", path)
	}
	if path == "-" {
		return Encode(os.Stdout, doc, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Encode(f, doc, format); err != nil {
		return err
	}
	return f.Close()
}
