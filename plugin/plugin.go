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

// Package plugin collects the code shared by all analyzers: identity,
// environment requirements and run status.
package plugin

import (
	"fmt"
	"strings"
)

// Network is the network access of the scanner or the network
// requirements of a plugin.
type Network int

// Network values
const (
	// NetworkAny is used only when specifying Plugin requirements. Specifies
	// that the plugin doesn't care whether the scanner has network access or not.
	NetworkAny     Network = iota
	NetworkOffline Network = iota
	NetworkOnline  Network = iota
)

// Capabilities lists capabilities that the scanning environment provides for the plugins.
// A plugin can't be enabled if it has more requirements than what the scanning environment provides.
type Capabilities struct {
	// Whether network access is provided.
	Network Network
}

// Plugin is the part of the analyzer interface that identifies it.
type Plugin interface {
	// A unique name used to identify this plugin.
	Name() string
	// Plugin version, should get bumped whenever major changes are made.
	Version() int
	// Requirements about the scanning environment, e.g. "needs to have network access".
	Requirements() *Capabilities
}

// Status contains the status and version of the plugins that ran.
type Status struct {
	Name    string
	Version int
	Status  *ScanStatus
}

// ScanStatus is the status of a plugin run. In case the run fails, FailureReason contains details.
type ScanStatus struct {
	Status        ScanStatusEnum
	FailureReason string
	// Number of dependencies the plugin failed on. Zero for plugins that
	// failed as a whole (e.g. during initialization).
	FailedDependencies int
}

// ScanStatusEnum is the enum for the scan status.
type ScanStatusEnum int

// ScanStatusEnum values.
const (
	ScanStatusUnspecified ScanStatusEnum = iota
	ScanStatusSucceeded
	ScanStatusPartiallySucceeded
	ScanStatusFailed
	// ScanStatusDisabled is reported for plugins that were registered but
	// never ran, e.g. because their preflight check failed.
	ScanStatusDisabled
)

// ValidateRequirements checks that the specified scanning capabilities satisfy
// the requirements of a given plugin.
func ValidateRequirements(p Plugin, capabs *Capabilities) error {
	if capabs == nil || p.Requirements() == nil {
		return nil
	}
	errs := []string{}
	if p.Requirements().Network != NetworkAny && p.Requirements().Network != capabs.Network {
		if capabs.Network == NetworkOffline {
			errs = append(errs, "needs network access but scan environment doesn't provide it")
		} else {
			errs = append(errs, "should only run offline but the scan environment provides network access")
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("plugin %s can't be enabled: %s", p.Name(), strings.Join(errs, ", "))
}

// FilterByCapabilities returns all plugins from the given list that can run
// under the specified capabilities of the scanning environment.
func FilterByCapabilities[P Plugin](pls []P, capabs *Capabilities) []P {
	result := []P{}
	for _, pl := range pls {
		if err := ValidateRequirements(pl, capabs); err == nil {
			result = append(result, pl)
		}
	}
	return result
}

// StatusFromErr returns a status for a plugin based on an error and the number
// of dependencies it failed on. failed > 0 with a nil error means the plugin
// ran but some dependencies were annotated with diagnostics.
func StatusFromErr(p Plugin, overallErr error, failed int) *Status {
	status := &ScanStatus{FailedDependencies: failed}
	switch {
	case overallErr != nil:
		status.Status = ScanStatusFailed
		status.FailureReason = overallErr.Error()
	case failed > 0:
		status.Status = ScanStatusPartiallySucceeded
		status.FailureReason = fmt.Sprintf("encountered %d error(s) while running plugin; check dependency diagnostics for details", failed)
	default:
		status.Status = ScanStatusSucceeded
	}
	return &Status{
		Name:    p.Name(),
		Version: p.Version(),
		Status:  status,
	}
}

// DisabledStatus returns the status of a plugin that was registered but not run.
func DisabledStatus(p Plugin, reason string) *Status {
	return &Status{
		Name:    p.Name(),
		Version: p.Version(),
		Status:  &ScanStatus{Status: ScanStatusDisabled, FailureReason: reason},
	}
}

// String returns a string representation of the scan status.
func (s *ScanStatus) String() string {
	switch s.Status {
	case ScanStatusSucceeded:
		return "SUCCEEDED"
	case ScanStatusPartiallySucceeded:
		return "PARTIALLY_SUCCEEDED: " + s.FailureReason
	case ScanStatusFailed:
		return "FAILED: " + s.FailureReason
	case ScanStatusDisabled:
		return "DISABLED: " + s.FailureReason
	case ScanStatusUnspecified:
		fallthrough
	default:
		return "UNSPECIFIED"
	}
}
