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

package proto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/osv-depcheck/log"
	"github.com/klauspost/compress/gzip"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/proto"
)

// Format is the encoding of a report file.
type Format string

// Supported report formats.
const (
	FormatTextProto Format = "textproto"
	FormatBinProto  Format = "binproto"
	FormatJSON      Format = "json"
)

// fileType represents the type of a report file.
type fileType struct {
	isGZipped bool
	format    Format
}

// typeForPath returns the report type of a path, or an error if the path has
// no supported extension.
func typeForPath(filePath string) (*fileType, error) {
	ext := filepath.Ext(filePath)
	if ext == "" {
		return nil, errors.New("invalid filename: Doesn't have an extension")
	}

	isGZipped := false
	if ext == ".gz" {
		isGZipped = true
		ext = filepath.Ext(strings.TrimSuffix(filePath, ext))
		if ext == "" {
			return nil, errors.New("invalid filename: Gzipped file doesn't have an extension")
		}
	}

	switch ext {
	case ".binproto":
		return &fileType{isGZipped: isGZipped, format: FormatBinProto}, nil
	case ".textproto":
		return &fileType{isGZipped: isGZipped, format: FormatTextProto}, nil
	case ".json":
		return &fileType{isGZipped: isGZipped, format: FormatJSON}, nil
	default:
		return nil, errors.New("invalid filename: not a .textproto, .binproto or .json")
	}
}

// ValidExtension returns an error if the file extension is not a report format.
func ValidExtension(path string) error {
	_, err := typeForPath(path)
	return err
}

// Write writes a message to a .textproto, .binproto or .json file, based on
// the file extension. If the file name additionally has the .gz suffix, it's
// zipped before writing.
func Write(filePath string, msg proto.Message) error {
	ft, err := typeForPath(filePath)
	if err != nil {
		return err
	}
	return write(filePath, msg, ft)
}

// WriteWithFormat writes a message to filePath in the given format, ignoring
// the file extension.
func WriteWithFormat(filePath string, msg proto.Message, format Format) error {
	switch format {
	case FormatTextProto, FormatBinProto, FormatJSON:
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
	return write(filePath, msg, &fileType{format: format})
}

func marshal(msg proto.Message, format Format) ([]byte, error) {
	switch format {
	case FormatBinProto:
		return proto.Marshal(msg)
	case FormatJSON:
		return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
	default:
		return prototext.MarshalOptions{Multiline: true}.Marshal(msg)
	}
}

func write(filePath string, msg proto.Message, ft *fileType) error {
	p, err := marshal(msg, ft.format)
	if err != nil {
		return err
	}

	log.Infof("Marshaled report has %d bytes", len(p))

	f, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer f.Close()
	if ft.isGZipped {
		writer := gzip.NewWriter(f)
		if _, err := writer.Write(p); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
	} else if _, err := f.Write(p); err != nil {
		return err
	}
	return f.Close()
}
