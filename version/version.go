// Package version reports the build version of iceagent.
package version

import (
	goversion "github.com/hashicorp/go-version"
)

// version is set at build time with -ldflags "-X github.com/netbirdio/iceagent/version.version=v1.2.3".
var version = "development"

// Version returns the build version. Semantic versions are normalised, so "v1.2" reads "1.2.0".
func Version() string {
	v, err := Semantic()
	if err != nil {
		return version
	}
	return v.String()
}

// Semantic parses the build version. Development builds return an error.
func Semantic() (*goversion.Version, error) {
	return goversion.NewVersion(version)
}

// Software is the default SOFTWARE attribute advertised in STUN messages.
func Software() string {
	return "iceagent/" + Version()
}
