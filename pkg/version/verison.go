// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"os"
	"path/filepath"
)

var (
	version     string
	buildCommit string
	buildTime   string
	telemetry   string
)

func telemetryOn() bool {
	switch telemetry {
	case "true", "yes", "on", "1":
		return true
	}
	return false
}

// GetVersionString returns a standard version header
func GetVersionString() string {
	return fmt.Sprintf("%s %v (%s), built %v", filepath.Base(os.Args[0]), version, buildCommit, buildTime)
}

func GetBuildCommit() string {
	return buildCommit
}

// GetVersion returns the semver compatible version number
func GetVersion() string {
	return version
}

func GetServerVersion() string {
	return "Wren/" + version
}

func GetTelemeryUserAgent() string {
	if u, err := Uname(); err == nil {
		return fmt.Sprintf("Wren/%s (%s; %s; %s)", version, u.Name, u.Machine, u.Release)
	}
	return "Wren/" + version
}

func GetUserAgent() string {
	if telemetryOn() {
		return GetTelemeryUserAgent()
	}
	return "Wren/" + version
}

func GetBannerVersion() string {
	if telemetryOn() {
		if u, err := Uname(); err == nil {
			// SSH-protoversion-softwareversion SP comments CR LF
			return fmt.Sprintf("WREN-%s (%s; %s; %s)", version, u.Name, u.Machine, u.Release)
		}
	}
	return "WREN-" + version
}

func GetServerBannerVersion() string {
	return "WREN-" + version
}

// GetBuildTime returns the time at which the build took place
func GetBuildTime() string {
	return buildTime
}
