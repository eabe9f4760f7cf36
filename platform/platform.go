// Package platform maps the host operating system and cpu architecture to the
// artifact naming used by a tool distributor.
//
// The mapping is a static [Table] keyed by [Target]; supporting a new platform
// means adding a row, not writing new logic.
package platform

import (
	"fmt"
	"runtime"
	"sort"
)

// OS is an operating system known to the descriptor tables.
// Values match GOOS.
type OS string

const (
	Linux   OS = "linux"
	Windows OS = "windows"
	MacOS   OS = "darwin"
)

// Arch is a cpu architecture known to the descriptor tables.
// Values match GOARCH.
type Arch string

const (
	AMD64 Arch = "amd64"
	ARM64 Arch = "arm64"
)

// Target is an (os, arch) pair.
type Target struct {
	OS   OS
	Arch Arch
}

// Current returns the target of the running process.
func Current() Target {
	return Target{OS: OS(runtime.GOOS), Arch: Arch(runtime.GOARCH)}
}

func (t Target) String() string {
	return fmt.Sprintf("%s/%s", t.OS, t.Arch)
}

// ExecutableExtension is the suffix executables carry on the target.
// Usually it's empty on unix systems and ".exe" on windows.
func (t Target) ExecutableExtension() string {
	if t.OS == Windows {
		return ".exe"
	}
	return ""
}

// Descriptor holds the distributor naming for a single target.
type Descriptor struct {
	// Artifact is the file name published by the distributor for the target,
	// without the archive extension.
	Artifact string
	// ArchiveExtension is set when the artifact is an archive, e.g. ".zip".
	// Empty means the artifact is the executable itself.
	ArchiveExtension string
	// ExecutablePath is the location of the executable inside the archive.
	// Only meaningful when ArchiveExtension is set.
	ExecutablePath string
}

// IsArchive reports whether the artifact needs to be extracted.
func (d Descriptor) IsArchive() bool {
	return d.ArchiveExtension != ""
}

// Table maps every supported target to its descriptor.
type Table map[Target]Descriptor

// Describe returns the descriptor for target, or an [UnsupportedPlatformError]
// when the table has no row for it.
func (t Table) Describe(target Target) (Descriptor, error) {
	desc, ok := t[target]
	if !ok || desc.Artifact == "" {
		return Descriptor{}, &UnsupportedPlatformError{Target: target}
	}
	return desc, nil
}

// Targets lists the supported targets ordered by os and then arch.
func (t Table) Targets() []Target {
	targets := make([]Target, 0, len(t))
	for target := range t {
		targets = append(targets, target)
	}

	sort.Slice(targets, func(i, j int) bool {
		if targets[i].OS != targets[j].OS {
			return targets[i].OS < targets[j].OS
		}
		return targets[i].Arch < targets[j].Arch
	})

	return targets
}

// UnsupportedPlatformError is returned when no artifact is published for a target.
type UnsupportedPlatformError struct {
	Target Target
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported platform %s", e.Target)
}
