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

// Package main is a small example of using depcheck as a library: it scans
// the given paths with the local analyzers and prints one line per
// identified package.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	depcheck "github.com/google/osv-depcheck"
	"github.com/google/osv-depcheck/analyzer/list"
	"github.com/google/osv-depcheck/cache"
	"github.com/google/osv-depcheck/config"
	"github.com/google/osv-depcheck/converter"
	"github.com/google/osv-depcheck/log"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("depcheck-inventory", flag.ContinueOnError)
	analyzers := fs.String("analyzers", list.NameOffline, "Comma-separated analyzers or analyzer groups to run")
	depth := fs.Int("max-extraction-depth", 16, "Deepest archive nesting level that is unpacked")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		log.Errorf("usage: depcheck-inventory [flags] <path>...")
		return 2
	}

	cfg := config.Default()
	cfg.Scan.MaxExtractionDepth = *depth
	cfg.Scan.Offline = *analyzers == list.NameOffline

	c, err := cache.New(cfg.Cache.Size, "")
	if err != nil {
		log.Errorf("cache.New(): %v", err)
		return 1
	}
	defer c.Close()

	as, err := list.FromNames(strings.Split(*analyzers, ","), list.Deps{Config: cfg, Cache: c})
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	engine, err := depcheck.New(&cfg, as)
	if err != nil {
		log.Errorf("depcheck.New(): %v", err)
		return 1
	}
	defer engine.Close()

	result, err := engine.Scan(context.Background(), fs.Args()...)
	if err != nil {
		log.Errorf("Scan(): %v", err)
		return 1
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PACKAGE\tCONFIDENCE\tLOCATIONS")
	for _, p := range converter.Packages(result.Dependencies) {
		fmt.Fprintf(w, "%s\t%s\t%s\n", p.Identity, p.Identity.Confidence, strings.Join(p.Locations, ","))
	}
	if err := w.Flush(); err != nil {
		log.Errorf("writing output: %v", err)
		return 1
	}
	return 0
}
