// Package build provides variables that are set at build-time
// with the -X ldflag. If the values are not given at build-time,
// they will be determined from [debug.BuildInfo].
package build

import (
	"regexp"
	"sync"
)

var (
	pkg       string
	version   string
	buildTime string
)

var once sync.Once

var semverRe = regexp.MustCompile(`v?\d+(\.\d+){0,2}`)

func semver(v string) string {
	loc := semverRe.FindStringIndex(v)
	if loc == nil {
		return v
	}
	return v[loc[0]:loc[1]]
}

func vcsTime(s string) string {
	if n := len(s); n > 0 && s[n-1] == 'Z' {
		return s[:n-1] + "+00:00"
	}
	return s
}

// Package returns the import path of the main module, such as "github.com/lone-faerie/thermo".
func Package() string {
	once.Do(load)
	return pkg
}

// Version returns the version of the main module.
func Version() string {
	once.Do(load)
	return version
}

// BuildTime returns the time of the commit the binary was built from.
func BuildTime() string {
	once.Do(load)
	return buildTime
}
