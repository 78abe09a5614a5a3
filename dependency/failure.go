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

package dependency

import (
	"errors"
	"fmt"
)

// ErrIOReadingFile is returned when a dependency's file can no longer be read.
var ErrIOReadingFile = errors.New("error reading dependency file")

// Severity of a recorded analysis failure.
type Severity int

// Severity values.
const (
	SeverityError Severity = iota
	SeverityLow
)

func (s Severity) String() string {
	if s == SeverityLow {
		return "LOW"
	}
	return "ERROR"
}

// AnalysisFailure is a non-fatal problem an analyzer ran into while
// processing a dependency.
type AnalysisFailure struct {
	Analyzer string
	Err      error
	Severity Severity
}

func (f AnalysisFailure) String() string {
	return fmt.Sprintf("%s [%s]: %v", f.Analyzer, f.Severity, f.Err)
}

type lowSeverityError struct {
	err error
}

func (e *lowSeverityError) Error() string { return e.err.Error() }
func (e *lowSeverityError) Unwrap() error { return e.err }

// LowSeverity marks err so that it is recorded with SeverityLow. A nil err
// stays nil.
func LowSeverity(err error) error {
	if err == nil {
		return nil
	}
	return &lowSeverityError{err: err}
}

// IsLowSeverity reports whether any error in err's chain was marked with
// LowSeverity.
func IsLowSeverity(err error) bool {
	var l *lowSeverityError
	return errors.As(err, &l)
}

func severityOf(err error) Severity {
	if IsLowSeverity(err) {
		return SeverityLow
	}
	return SeverityError
}
