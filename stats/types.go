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

package stats

import "time"

// DiscoveryStats is a struct containing stats about the discovery walk.
type DiscoveryStats struct {
	Roots   []string
	Files   int
	Skipped int
	Runtime time.Duration
}

// ExtractionStats is a struct containing stats about a single extraction job.
type ExtractionStats struct {
	Archive  string
	Depth    int
	Files    int
	Rejected int
	Runtime  time.Duration
	Error    error
}

// AnalyzerStats is a struct containing stats about one analyzer run over a phase.
type AnalyzerStats struct {
	Dependencies int
	Failures     int
	Runtime      time.Duration
	Error        error
}

// LookupResult is a string representation of the outcome of a remote lookup.
type LookupResult string

const (
	// LookupResultFound indicates the remote service identified the artifact.
	LookupResultFound LookupResult = "LOOKUP_RESULT_FOUND"
	// LookupResultNotFound indicates the remote service doesn't know the artifact.
	LookupResultNotFound LookupResult = "LOOKUP_RESULT_NOT_FOUND"
	// LookupResultError indicates a transport or decoding failure.
	LookupResultError LookupResult = "LOOKUP_RESULT_ERROR"
)
