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

// Package extraction unpacks archives into private working directories so
// that their content can be scanned as dependencies of its own. Entry names
// are never trusted: every entry is resolved through SafeJoin and entries
// resolving outside the destination are skipped.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/osv-depcheck/log"
	"go.uber.org/multierr"
)

var (
	// ErrArchiveUnreadable is returned when the file is not a valid container.
	// Callers should keep analyzing the file as a flat dependency.
	ErrArchiveUnreadable = errors.New("archive unreadable")
	// ErrPathTraversalRejected is recorded for entries whose name resolves
	// outside the destination directory.
	ErrPathTraversalRejected = errors.New("entry path escapes destination")
	// ErrDestinationUnwritable is returned when the job destination can't be
	// created. It is fatal for the job.
	ErrDestinationUnwritable = errors.New("destination unwritable")
	// ErrEntryConflict is recorded for entries whose directories can't be
	// created inside the destination, e.g. because an earlier file entry
	// took the name.
	ErrEntryConflict = errors.New("entry conflicts with an extracted path")
	// ErrMaxExtractionDepthExceeded is returned for jobs nested deeper than
	// the configured bound.
	ErrMaxExtractionDepthExceeded = errors.New("max extraction depth exceeded")
	// ErrEntryTooLarge is recorded for entries larger than the per-entry cap.
	ErrEntryTooLarge = errors.New("entry exceeds size limit")
)

// DefaultMaxFileBytes is the default per-entry size cap.
const DefaultMaxFileBytes int64 = 1 << 30

// AcceptFunc decides whether the entry with the given slash-separated
// relative path should be written.
type AcceptFunc func(rel string) bool

// Job describes a single extraction of Archive into Destination.
type Job struct {
	Archive     string
	Destination string
	// Accept filters file entries. A nil Accept writes every file.
	Accept AcceptFunc
	// Depth is the nesting depth of Archive, 0 for files found on disk.
	Depth int
	// MaxDepth is the deepest archive that may still be unpacked.
	MaxDepth int
}

// File is a file written by an extraction job.
type File struct {
	// Path is the file's location on disk.
	Path string
	// Rel is the slash-separated path relative to the job destination.
	Rel string
}

// Rejection is an archive entry that was skipped because it was unsafe or
// unreadable.
type Rejection struct {
	Entry string
	Err   error
}

// Result lists what an extraction job produced.
type Result struct {
	Files    []File
	Rejected []Rejection
	// Entries is the number of entries seen in the archive.
	Entries int
}

// Extractor unpacks archives. The zero value is usable and applies
// DefaultMaxFileBytes.
type Extractor struct {
	// MaxFileBytes caps the uncompressed size of a single entry. Entries
	// above the cap are rejected with ErrEntryTooLarge.
	MaxFileBytes int64
}

// New returns an Extractor with the given per-entry size cap. A cap <= 0
// selects DefaultMaxFileBytes.
func New(maxFileBytes int64) *Extractor {
	return &Extractor{MaxFileBytes: maxFileBytes}
}

func (e *Extractor) maxFileBytes() int64 {
	if e == nil || e.MaxFileBytes <= 0 {
		return DefaultMaxFileBytes
	}
	return e.MaxFileBytes
}

// entry is a format-independent view of an archive entry.
type entry struct {
	name string
	mode fs.FileMode
	size int64
	// open returns the entry content. For stream formats it must be called
	// at most once and before the next entry is read.
	open func() (io.ReadCloser, error)
}

// Extract runs job. On ErrArchiveUnreadable for a truncated archive the
// returned Result still lists the files written before the failure.
func (e *Extractor) Extract(ctx context.Context, job Job) (*Result, error) {
	if job.Depth > job.MaxDepth {
		return nil, fmt.Errorf("%w: %s is nested %d level(s) deep, limit is %d", ErrMaxExtractionDepthExceeded, job.Archive, job.Depth, job.MaxDepth)
	}
	format := DetectFormat(job.Archive)
	if format == FormatUnknown {
		return nil, fmt.Errorf("%w: %s: unsupported format", ErrArchiveUnreadable, job.Archive)
	}
	if err := os.MkdirAll(job.Destination, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDestinationUnwritable, err)
	}

	res := &Result{}
	visit := func(en *entry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res.Entries++
		return e.writeEntry(job, en, res)
	}

	var err error
	if format == FormatZip {
		err = walkZip(job.Archive, visit)
	} else {
		err = walkTar(job.Archive, format, visit)
	}
	return res, err
}

func (e *Extractor) writeEntry(job Job, en *entry, res *Result) (err error) {
	target, rel, err := SafeJoin(job.Destination, en.name)
	if err != nil {
		log.Warnf("%s: skipping entry: %v", job.Archive, err)
		res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: err})
		return nil
	}

	switch {
	case en.mode.IsDir():
		if err := os.MkdirAll(target, 0700); err != nil {
			rejectConflict(job, en, res, err)
		}
		return nil
	case !en.mode.IsRegular():
		// Symlinks, hardlinks and devices are never materialized.
		log.Debugf("%s: skipping non-regular entry %q (%s)", job.Archive, en.name, en.mode.Type())
		return nil
	case rel == ".":
		res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: fmt.Errorf("%w: file entry without a name", ErrPathTraversalRejected)})
		return nil
	}

	if job.Accept != nil && !job.Accept(rel) {
		return nil
	}
	limit := e.maxFileBytes()
	if en.size > limit {
		res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: fmt.Errorf("%w: %d > %d bytes", ErrEntryTooLarge, en.size, limit)})
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(target), 0700); err != nil {
		rejectConflict(job, en, res, err)
		return nil
	}

	n, err := copyEntry(en, target, limit)
	if err != nil {
		_ = os.Remove(target)
		res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: err})
		return nil
	}
	if n > limit {
		_ = os.Remove(target)
		res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: fmt.Errorf("%w: more than %d bytes", ErrEntryTooLarge, limit)})
		return nil
	}
	res.Files = append(res.Files, File{Path: target, Rel: rel})
	return nil
}

func rejectConflict(job Job, en *entry, res *Result, err error) {
	log.Warnf("%s: skipping entry %q: %v", job.Archive, en.name, err)
	res.Rejected = append(res.Rejected, Rejection{Entry: en.name, Err: fmt.Errorf("%w: %w", ErrEntryConflict, err)})
}

// copyEntry streams at most limit+1 bytes of the entry into target.
func copyEntry(en *entry, target string, limit int64) (n int64, err error) {
	r, err := en.open()
	if err != nil {
		return 0, fmt.Errorf("opening entry %q: %w", en.name, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(r))

	out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, fmt.Errorf("creating %q: %w", target, err)
	}
	defer multierr.AppendInvoke(&err, multierr.Close(out))

	n, err = io.Copy(out, io.LimitReader(r, limit+1))
	if err != nil {
		return n, fmt.Errorf("reading entry %q: %w", en.name, err)
	}
	return n, nil
}
