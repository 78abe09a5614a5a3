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

// Package discovery resolves scan roots into the files that become the
// initial dependencies of a scan.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/google/osv-depcheck/log"
)

// ErrRootNotFound is returned when a scan root doesn't exist.
var ErrRootNotFound = errors.New("scan root not found")

// Config configures a Walker.
type Config struct {
	// Include and Exclude are globs over slash-separated paths relative to
	// the root. "*" doesn't cross "/", "**" does. Exclude also prunes
	// directories. An empty Include matches every file.
	Include []string
	Exclude []string
	// SymlinkDepth is the number of symlinks that may be followed along one
	// path. 0 ignores symlinks.
	SymlinkDepth int
}

// File is a discovered file.
type File struct {
	// Path is the absolute path.
	Path string
	// Root is the absolute scan root the file was found under.
	Root string
	// Rel is the slash-separated path relative to Root.
	Rel string
}

// Result is the outcome of a walk.
type Result struct {
	Files []File
	// Skipped counts files and directories filtered out by the globs or
	// because they were unreadable.
	Skipped int
}

// Walker walks scan roots.
type Walker struct {
	include      []glob.Glob
	exclude      []glob.Glob
	symlinkDepth int
}

// New compiles the globs of cfg.
func New(cfg Config) (*Walker, error) {
	w := &Walker{symlinkDepth: cfg.SymlinkDepth}
	var err error
	if w.include, err = compile(cfg.Include); err != nil {
		return nil, err
	}
	if w.exclude, err = compile(cfg.Exclude); err != nil {
		return nil, err
	}
	return w, nil
}

func compile(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid glob %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

func matchAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func (w *Walker) excluded(rel string, isDir bool) bool {
	if matchAny(w.exclude, rel) {
		return true
	}
	return isDir && matchAny(w.exclude, rel+"/")
}

func (w *Walker) included(rel string) bool {
	return len(w.include) == 0 || matchAny(w.include, rel)
}

type walkContext struct {
	ctx  context.Context
	root string
	seen map[string]bool
	res  *Result
}

// Walk returns the files under roots, each file at most once, in walk order.
// A root may be a single file. All roots are checked before walking; a
// missing root fails with ErrRootNotFound.
func (w *Walker) Walk(ctx context.Context, roots ...string) (*Result, error) {
	abs := make([]string, 0, len(roots))
	for _, r := range roots {
		a, err := filepath.Abs(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, r, err)
		}
		if _, err := os.Stat(a); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, r, err)
		}
		abs = append(abs, a)
	}

	res := &Result{}
	seen := map[string]bool{}
	for _, root := range abs {
		wc := &walkContext{ctx: ctx, root: root, seen: seen, res: res}
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrRootNotFound, root, err)
		}
		if !info.IsDir() {
			w.addFile(wc, root, filepath.Base(root))
			continue
		}
		real, err := filepath.EvalSymlinks(root)
		if err != nil {
			real = root
		}
		if err := w.walkDir(wc, root, "", 0, map[string]bool{real: true}); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (w *Walker) addFile(wc *walkContext, path, rel string) {
	if !w.included(rel) || w.excluded(rel, false) {
		wc.res.Skipped++
		return
	}
	if wc.seen[path] {
		return
	}
	wc.seen[path] = true
	wc.res.Files = append(wc.res.Files, File{Path: path, Root: wc.root, Rel: rel})
}

// walkDir walks dir. ancestors holds the resolved paths of the directories on
// the current path, to break symlink cycles.
func (w *Walker) walkDir(wc *walkContext, dir, rel string, links int, ancestors map[string]bool) error {
	if err := wc.ctx.Err(); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			log.Debugf("discovery: permission error: %v", err)
		} else {
			log.Warnf("discovery: reading %s: %v", dir, err)
		}
		wc.res.Skipped++
		return nil
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}
		mode := e.Type()
		childLinks := links

		if mode&fs.ModeSymlink != 0 {
			if links >= w.symlinkDepth {
				continue
			}
			info, err := os.Stat(path)
			if err != nil {
				log.Debugf("discovery: dangling symlink %s: %v", path, err)
				continue
			}
			mode = info.Mode().Type()
			childLinks++
		}

		switch {
		case mode.IsDir():
			if w.excluded(childRel, true) {
				wc.res.Skipped++
				continue
			}
			real, err := filepath.EvalSymlinks(path)
			if err != nil {
				real = path
			}
			if ancestors[real] {
				log.Debugf("discovery: symlink cycle at %s", path)
				continue
			}
			ancestors[real] = true
			err = w.walkDir(wc, path, childRel, childLinks, ancestors)
			delete(ancestors, real)
			if err != nil {
				return err
			}
		case mode.IsRegular():
			w.addFile(wc, path, childRel)
		}
	}
	return nil
}
