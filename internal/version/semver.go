package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Version is a value object representing a Semantic Versioning 2.0.0 version.
// Immutable: all operations return new instances. Build identifiers never
// participate in precedence.
type Version struct {
	major      uint64
	minor      uint64
	patch      uint64
	prerelease []string
	build      []string
}

var (
	// semverRegex validates canonical semantic version strings.
	semverRegex = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
		`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
		`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

	numericRegex = regexp.MustCompile(`^(0|[1-9]\d*)$`)
)

// New creates a new Version with the given core components.
func New(major, minor, patch uint64) Version {
	return Version{major: major, minor: minor, patch: patch}
}

// Parse parses a version string in strict canonical form.
func Parse(s string) (Version, error) {
	matches := semverRegex.FindStringSubmatch(s)
	if matches == nil {
		return Version{}, nyxerrors.Newf(nyxerrors.KindRelease, "version.Parse", "invalid semantic version %q", s)
	}

	major, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil {
		return Version{}, nyxerrors.Wrapf(err, nyxerrors.KindRelease, "version.Parse", "invalid major component in %q", s)
	}
	minor, err := strconv.ParseUint(matches[2], 10, 64)
	if err != nil {
		return Version{}, nyxerrors.Wrapf(err, nyxerrors.KindRelease, "version.Parse", "invalid minor component in %q", s)
	}
	patch, err := strconv.ParseUint(matches[3], 10, 64)
	if err != nil {
		return Version{}, nyxerrors.Wrapf(err, nyxerrors.KindRelease, "version.Parse", "invalid patch component in %q", s)
	}

	v := Version{major: major, minor: minor, patch: patch}
	if matches[4] != "" {
		v.prerelease = strings.Split(matches[4], ".")
	}
	if matches[5] != "" {
		v.build = strings.Split(matches[5], ".")
	}
	return v, nil
}

// MustParse parses a version string and panics if invalid.
// Use only for known-good version strings.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// ParseWithPrefix parses a version string in strict canonical form after
// stripping the configured release prefix.
func ParseWithPrefix(s, prefix string) (Version, error) {
	if prefix != "" {
		s = strings.TrimPrefix(s, prefix)
	}
	return Parse(s)
}

// ParseLenient parses a version string tolerating surrounding whitespace and
// an optional prefix. The conventional "v" prefix is always accepted; an
// additional release prefix may be passed.
func ParseLenient(s string, prefix string) (Version, error) {
	trimmed := strings.TrimSpace(s)
	if prefix != "" {
		trimmed = strings.TrimPrefix(trimmed, prefix)
	}
	trimmed = strings.TrimPrefix(trimmed, "v")
	return Parse(trimmed)
}

// Major returns the major component.
func (v Version) Major() uint64 {
	return v.major
}

// Minor returns the minor component.
func (v Version) Minor() uint64 {
	return v.minor
}

// Patch returns the patch component.
func (v Version) Patch() uint64 {
	return v.patch
}

// Prerelease returns the ordered pre-release identifiers.
func (v Version) Prerelease() []string {
	return append([]string(nil), v.prerelease...)
}

// Build returns the ordered build identifiers.
func (v Version) Build() []string {
	return append([]string(nil), v.build...)
}

// IsPrerelease returns true if the version carries pre-release identifiers.
func (v Version) IsPrerelease() bool {
	return len(v.prerelease) > 0
}

// String returns the scheme-canonical representation.
func (v Version) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d.%d.%d", v.major, v.minor, v.patch)
	if len(v.prerelease) > 0 {
		sb.WriteString("-")
		sb.WriteString(strings.Join(v.prerelease, "."))
	}
	if len(v.build) > 0 {
		sb.WriteString("+")
		sb.WriteString(strings.Join(v.build, "."))
	}
	return sb.String()
}

// CoreString returns only the major.minor.patch portion.
func (v Version) CoreString() string {
	return fmt.Sprintf("%d.%d.%d", v.major, v.minor, v.patch)
}

// Compare compares two versions under SemVer precedence.
// Returns -1 if v < other, 0 if equal, 1 if v > other.
// Build identifiers are ignored.
func (v Version) Compare(other Version) int {
	if v.major != other.major {
		return compareUint(v.major, other.major)
	}
	if v.minor != other.minor {
		return compareUint(v.minor, other.minor)
	}
	if v.patch != other.patch {
		return compareUint(v.patch, other.patch)
	}
	return comparePrerelease(v.prerelease, other.prerelease)
}

// Equal returns true if two versions are equal, ignoring build identifiers
// per the SemVer specification.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// LessThan returns true if v < other.
func (v Version) LessThan(other Version) bool {
	return v.Compare(other) < 0
}

// GreaterThan returns true if v > other.
func (v Version) GreaterThan(other Version) bool {
	return v.Compare(other) > 0
}

func compareUint(a, b uint64) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// comparePrerelease implements SemVer rule 11: a version without pre-release
// identifiers has higher precedence; numeric identifiers compare numerically
// and rank below alphanumeric ones; a longer list wins over its prefix.
func comparePrerelease(a, b []string) int {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	if len(a) == 0 {
		return 1
	}
	if len(b) == 0 {
		return -1
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareIdentifier(a[i], b[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func compareIdentifier(a, b string) int {
	aNum, aErr := strconv.ParseUint(a, 10, 64)
	bNum, bErr := strconv.ParseUint(b, 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		return compareUint(aNum, bNum)
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func isNumericIdentifier(s string) bool {
	return numericRegex.MatchString(s)
}

// Sort orders versions ascending under the scheme precedence, in place.
func Sort(versions []Version) {
	for i := 1; i < len(versions); i++ {
		for j := i; j > 0 && versions[j].LessThan(versions[j-1]); j-- {
			versions[j], versions[j-1] = versions[j-1], versions[j]
		}
	}
}
