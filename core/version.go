package core

import "github.com/blang/semver"

// Version is the semantic version of segeval tools and the HTTP API.
var Version = semver.MustParse("0.4.0")

// APIVersion returns the major.minor version string used in HTTP responses.
func APIVersion() string {
	v := semver.Version{Major: Version.Major, Minor: Version.Minor}
	return v.String()
}
