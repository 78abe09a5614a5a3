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

// Package spdx provides utilities for writing SPDX documents.
package spdx

import (
	"fmt"
	"io"
	"os"

	"github.com/spdx/tools-golang/json"
	"github.com/spdx/tools-golang/spdx/v2/v2_3"
	"github.com/spdx/tools-golang/tagvalue"
	"github.com/spdx/tools-golang/yaml"
)

type writeFun func(doc *v2_3.Document, w io.Writer) error

// Writers maps the output format names accepted by the CLI to SPDX v2.3 encoders.
var Writers = map[string]writeFun{
	"spdx23-tag-value": func(doc *v2_3.Document, w io.Writer) error { return tagvalue.Write(doc, w) },
	"spdx23-json":      func(doc *v2_3.Document, w io.Writer) error { return json.Write(doc, w, json.Indent("  ")) },
	"spdx23-yaml":      func(doc *v2_3.Document, w io.Writer) error { return yaml.Write(doc, w) },
}

// Encode23 writes an SPDX v2.3 document to w in the chosen format.
func Encode23(w io.Writer, doc *v2_3.Document, format string) error {
	write, ok := Writers[format]
	if !ok {
		return fmt.Errorf("%q is an invalid SPDX format or not supported by depcheck", format)
	}
	return write(doc, w)
}

// Write23 writes an SPDX v2.3 document into a file in the chosen format. The
// path "-" writes to stdout.
func Write23(doc *v2_3.Document, path string, format string) error {
	if _, ok := Writers[format]; !ok {
		return fmt.Errorf("%s has an invalid SPDX format or not supported by depcheck", path)
	}
	if path == "-" {
		return Encode23(os.Stdout, doc, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Encode23(f, doc, format); err != nil {
		return err
	}
	return f.Close()
}
