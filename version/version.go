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

// Package version holds the depcheck version.
package version

// ScannerVersion is the current version of depcheck. It is reported in the
// User-Agent of remote requests.
const ScannerVersion = "0.1.0"

// UserAgent is sent with HTTP requests to remote services.
const UserAgent = "osv-depcheck/" + ScannerVersion
