package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Target represents a build target platform as a GOOS/GOARCH pair
type Target struct {
	OS   string
	Arch string
}

// ParseTarget parses a target string like "linux/amd64"
func ParseTarget(s string) (Target, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Target{}, goerr.New("invalid target, expected os/arch", goerr.V("target", s))
	}
	return Target{OS: parts[0], Arch: parts[1]}, nil
}

// String returns the canonical "os/arch" form
func (t Target) String() string {
	return t.OS + "/" + t.Arch
}

// Label returns the form used in archive names, e.g. "linux_amd64"
func (t Target) Label() string {
	return t.OS + "_" + t.Arch
}

// IsWindows reports whether the target builds Windows binaries
func (t Target) IsWindows() bool {
	return t.OS == "windows"
}
