package installer

import (
	"fmt"
)

// Platform is the canonical OS/architecture pair used in release asset names.
type Platform struct {
	OS   string
	Arch string
}

// UnsupportedPlatformError is returned for kernels or CPUs with no release asset.
type UnsupportedPlatformError struct {
	Kind  string // "os" or "arch"
	Value string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unsupported %s %q", e.Kind, e.Value)
}

// MapPlatform maps uname's kernel name and machine to asset labels.
// Only Linux on x86_64 and aarch64 is supported.
func MapPlatform(sysname, machine string) (Platform, error) {
	var p Platform

	switch sysname {
	case "Linux":
		p.OS = "linux"
	default:
		return Platform{}, &UnsupportedPlatformError{Kind: "os", Value: sysname}
	}

	switch machine {
	case "x86_64":
		p.Arch = "x64"
	case "aarch64":
		p.Arch = "arm64"
	default:
		return Platform{}, &UnsupportedPlatformError{Kind: "arch", Value: machine}
	}

	return p, nil
}

// DetectPlatform maps the running kernel and CPU.
func DetectPlatform() (Platform, error) {
	sysname, machine, err := uname()
	if err != nil {
		return Platform{}, fmt.Errorf("uname: %w", err)
	}
	return MapPlatform(sysname, machine)
}
