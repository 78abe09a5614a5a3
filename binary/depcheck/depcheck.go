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

// The depcheck command wraps around the depcheck library to create a
// standalone CLI that identifies the dependencies under the given paths and
// reports their known vulnerabilities.
package main

import (
	"flag"
	"os"

	"github.com/google/osv-depcheck/binary/cli"
	"github.com/google/osv-depcheck/binary/scanrunner"
	"github.com/google/osv-depcheck/log"
)

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	var subcommand string
	if len(args) >= 2 {
		subcommand = args[1]
	}
	switch subcommand {
	case "scan":
		flags, err := parseFlags(args[2:])
		if err != nil {
			log.Errorf("Error parsing CLI args: %v", err)
			return 1
		}
		return scanrunner.RunScan(flags)
	default:
		// Assume 'scan' if subcommand is not recognized/specified.
		flags, err := parseFlags(args[1:])
		if err != nil {
			log.Errorf("Error parsing CLI args: %v", err)
			return 1
		}
		return scanrunner.RunScan(flags)
	}
}

func parseFlags(args []string) (*cli.Flags, error) {
	fs := flag.NewFlagSet("depcheck", flag.ContinueOnError)
	printVersion := fs.Bool("version", false, "Print the depcheck version and exit")
	configFile := fs.String("config", "", "Path of a .yaml, .toml or .json config file. Flags override its values.")
	resultFile := fs.String("result", "", "The path of the output scan report (.textproto, .binproto or .json, optionally .gz)")
	var output cli.Array
	fs.Var(&output, "o", "The path of the scanner outputs in various formats, e.g. -o json=report.json -o spdx23-json=result.spdx.json -o cdx-json=result.cyclonedx.json")
	analyzersToRun := cli.NewStringListFlag([]string{"default"})
	fs.Var(&analyzersToRun, "analyzers", "Comma-separated list of analyzers to run, or one of default, all, offline")
	var requiredAnalyzers cli.StringListFlag
	fs.Var(&requiredAnalyzers, "required-analyzers", "Comma-separated list of analyzers that must be able to run; the scan fails otherwise")
	var disabledAnalyzers cli.StringListFlag
	fs.Var(&disabledAnalyzers, "disabled-analyzers", "Comma-separated list of analyzers to disable")
	var include cli.StringListFlag
	fs.Var(&include, "include", "Comma-separated list of globs; if set only matching files are scanned. Globs match slash-separated paths relative to the scan root.")
	var exclude cli.StringListFlag
	fs.Var(&exclude, "exclude", "Comma-separated list of globs for files and directories to skip")
	maxExtractionDepth := fs.Int("max-extraction-depth", -1, "How deep nested archives are unpacked. Negative values keep the configured depth.")
	parallelism := fs.Int("parallelism", 0, "Default number of dependencies analyzed in parallel by each analyzer")
	tempDir := fs.String("temp-dir", "", "Directory for extracted archives, defaults to the system temp dir")
	offline := fs.Bool("offline", false, "Offline mode: Run only analyzers that don't require network access")
	nexusURL := fs.String("nexus-url", "", "URL of a Nexus repository manager's REST service, e.g. https://nexus.example.com/service/local/")
	cacheFile := fs.String("cache", "", "Path of a file persisting remote lookups across scans")
	localDB := fs.String("localdb", "", "Path of a local SQLite vulnerability database")
	skipVulnLookup := fs.Bool("skip-vuln-lookup", false, "Only identify dependencies, don't look up their vulnerabilities")
	failOnCVSS := fs.Float64("fail-on-cvss", -1, "Exit with an error if a vulnerability scores at least this CVSS base score (0-10). Negative values disable the check.")
	spdxDocumentName := fs.String("spdx-document-name", "", "The 'name' field for the output SPDX document")
	spdxDocumentNamespace := fs.String("spdx-document-namespace", "", "The 'documentNamespace' field for the output SPDX document")
	spdxCreators := fs.String("spdx-creators", "", "The 'creators' field for the output SPDX document. Format is --spdx-creators=creatortype1:creator1,creatortype2:creator2")
	cdxComponentName := fs.String("cdx-component-name", "", "The 'metadata.component.name' field for the output CDX document")
	cdxComponentVersion := fs.String("cdx-component-version", "", "The 'metadata.component.version' field for the output CDX document")
	cdxAuthors := fs.String("cdx-authors", "", "The 'authors' field for the output CDX document. Format is --cdx-authors=author1,author2")
	verbose := fs.Bool("verbose", false, "Enable this to print debug logs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	flags := &cli.Flags{
		PrintVersion:          *printVersion,
		ConfigFile:            *configFile,
		Roots:                 fs.Args(),
		ResultFile:            *resultFile,
		Output:                output,
		AnalyzersToRun:        analyzersToRun.GetSlice(),
		RequiredAnalyzers:     requiredAnalyzers.GetSlice(),
		DisabledAnalyzers:     disabledAnalyzers.GetSlice(),
		Include:               include.GetSlice(),
		Exclude:               exclude.GetSlice(),
		MaxExtractionDepth:    *maxExtractionDepth,
		Parallelism:           *parallelism,
		TempDir:               *tempDir,
		Offline:               *offline,
		NexusURL:              *nexusURL,
		CacheFile:             *cacheFile,
		LocalDBPath:           *localDB,
		SkipVulnLookup:        *skipVulnLookup,
		FailOnCVSS:            *failOnCVSS,
		SPDXDocumentName:      *spdxDocumentName,
		SPDXDocumentNamespace: *spdxDocumentNamespace,
		SPDXCreators:          *spdxCreators,
		CDXComponentName:      *cdxComponentName,
		CDXComponentVersion:   *cdxComponentVersion,
		CDXAuthors:            *cdxAuthors,
		Verbose:               *verbose,
	}
	if err := cli.ValidateFlags(flags); err != nil {
		return nil, err
	}
	return flags, nil
}
