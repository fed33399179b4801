// Package version provides the version algebra used by the release engine.
// Versions are opaque value objects under a named scheme; SemVer 2.0.0 is the
// only scheme currently implemented.
package version

import (
	"strings"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Scheme identifies a versioning scheme.
type Scheme string

const (
	// SchemeSemVer is Semantic Versioning 2.0.0.
	SchemeSemVer Scheme = "semver"
)

// IsValid returns true if the scheme is supported.
func (s Scheme) IsValid() bool {
	return s == SchemeSemVer
}

// ParseScheme parses a scheme name, case-insensitively.
func ParseScheme(s string) (Scheme, error) {
	scheme := Scheme(strings.ToLower(strings.TrimSpace(s)))
	if !scheme.IsValid() {
		return "", nyxerrors.Newf(nyxerrors.KindConfiguration, "version.ParseScheme", "unsupported versioning scheme %q", s)
	}
	return scheme, nil
}

// ParseWithScheme parses a version string under the given scheme.
// In lenient mode the given prefix (and the conventional "v") is stripped and
// surrounding whitespace is tolerated.
func ParseWithScheme(scheme Scheme, s string, lenient bool, prefix string) (Version, error) {
	if !scheme.IsValid() {
		return Version{}, nyxerrors.Newf(nyxerrors.KindConfiguration, "version.Parse", "unsupported versioning scheme %q", string(scheme))
	}
	if lenient {
		return ParseLenient(s, prefix)
	}
	return Parse(s)
}

// DefaultInitial returns the default initial version for the scheme.
func DefaultInitial(scheme Scheme) Version {
	return Version{major: 0, minor: 1, patch: 0}
}
