//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package installer

import "runtime"

// Without uname the Go names are reported as-is; MapPlatform rejects them.
func uname() (sysname, machine string, err error) {
	return runtime.GOOS, runtime.GOARCH, nil
}
