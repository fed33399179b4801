package version

import (
	"strconv"
	"strings"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Component identifies the axis along which a version is incremented:
// one of the core components or a named pre-release identifier.
type Component string

const (
	// ComponentMajor bumps the major component.
	ComponentMajor Component = "major"
	// ComponentMinor bumps the minor component.
	ComponentMinor Component = "minor"
	// ComponentPatch bumps the patch component.
	ComponentPatch Component = "patch"
	// ComponentNone leaves the version unchanged.
	ComponentNone Component = ""
)

// IsCore returns true for major, minor and patch.
func (c Component) IsCore() bool {
	switch c {
	case ComponentMajor, ComponentMinor, ComponentPatch:
		return true
	default:
		return false
	}
}

// rank orders core components for significance comparison.
func (c Component) rank() int {
	switch c {
	case ComponentMajor:
		return 3
	case ComponentMinor:
		return 2
	case ComponentPatch:
		return 1
	default:
		return 0
	}
}

// MostSignificant returns the higher-ranked of two core components.
func MostSignificant(a, b Component) Component {
	if b.rank() > a.rank() {
		return b
	}
	return a
}

// Bump increments the version along the given component. Core components
// reset the lower-order ones and drop pre-release and build identifiers.
// Any other component name bumps the named pre-release identifier: its
// numeric tail is incremented, or ".1" is appended when absent.
func (v Version) Bump(component Component) (Version, error) {
	switch component {
	case ComponentMajor:
		return Version{major: v.major + 1}, nil
	case ComponentMinor:
		return Version{major: v.major, minor: v.minor + 1}, nil
	case ComponentPatch:
		return Version{major: v.major, minor: v.minor, patch: v.patch + 1}, nil
	case ComponentNone:
		return v, nil
	default:
		return v.bumpPrereleaseIdentifier(string(component))
	}
}

// bumpPrereleaseIdentifier increments the numeric identifier following the
// named one, appending the name (and "1") when missing.
func (v Version) bumpPrereleaseIdentifier(name string) (Version, error) {
	if strings.TrimSpace(name) == "" {
		return v, nyxerrors.New(nyxerrors.KindRelease, "version.Bump", "cannot bump an empty identifier")
	}

	prerelease := append([]string(nil), v.prerelease...)
	for i, id := range prerelease {
		if id != name {
			continue
		}
		if i+1 < len(prerelease) && isNumericIdentifier(prerelease[i+1]) {
			n, err := strconv.ParseUint(prerelease[i+1], 10, 64)
			if err != nil {
				return v, nyxerrors.Wrapf(err, nyxerrors.KindRelease, "version.Bump", "identifier %q has a non-numeric tail", name)
			}
			prerelease[i+1] = strconv.FormatUint(n+1, 10)
		} else {
			tail := append([]string{"1"}, prerelease[i+1:]...)
			prerelease = append(prerelease[:i+1], tail...)
		}
		return Version{major: v.major, minor: v.minor, patch: v.patch, prerelease: prerelease, build: v.build}, nil
	}

	prerelease = append(prerelease, name, "1")
	return Version{major: v.major, minor: v.minor, patch: v.patch, prerelease: prerelease, build: v.build}, nil
}

// Position identifies the slot an extra identifier is inserted into.
type Position string

const (
	// PositionPreRelease appends into the pre-release identifier list.
	PositionPreRelease Position = "PRE_RELEASE"
	// PositionBuild appends into the build identifier list.
	PositionBuild Position = "BUILD"
)

// IsValid returns true for known positions.
func (p Position) IsValid() bool {
	return p == PositionPreRelease || p == PositionBuild
}

// WithIdentifier appends "qualifier.value" (or just the qualifier when the
// value is empty) in the given slot, de-duplicating by qualifier: an existing
// occurrence has its value replaced in place.
func (v Version) WithIdentifier(position Position, qualifier, value string) (Version, error) {
	if strings.TrimSpace(qualifier) == "" {
		return v, nyxerrors.New(nyxerrors.KindRelease, "version.WithIdentifier", "identifier qualifier cannot be empty")
	}

	var slot []string
	switch position {
	case PositionPreRelease:
		slot = append([]string(nil), v.prerelease...)
	case PositionBuild:
		slot = append([]string(nil), v.build...)
	default:
		return v, nyxerrors.Newf(nyxerrors.KindRelease, "version.WithIdentifier", "unknown identifier position %q", string(position))
	}

	slot = upsertIdentifier(slot, qualifier, value)

	out := Version{major: v.major, minor: v.minor, patch: v.patch, prerelease: v.prerelease, build: v.build}
	if position == PositionPreRelease {
		out.prerelease = slot
	} else {
		out.build = slot
	}
	return out, nil
}

func upsertIdentifier(slot []string, qualifier, value string) []string {
	for i, id := range slot {
		if id != qualifier {
			continue
		}
		if value == "" {
			return slot
		}
		// replace the existing value if one follows, insert otherwise
		if i+1 < len(slot) && isNumericIdentifier(slot[i+1]) {
			slot[i+1] = value
			return slot
		}
		tail := append([]string{value}, slot[i+1:]...)
		return append(slot[:i+1], tail...)
	}

	slot = append(slot, qualifier)
	if value != "" {
		slot = append(slot, value)
	}
	return slot
}

// PrereleaseQualifier returns the first pre-release identifier, or "" when
// the version is not a pre-release.
func (v Version) PrereleaseQualifier() string {
	if len(v.prerelease) == 0 {
		return ""
	}
	return v.prerelease[0]
}

// WithPrereleaseQualifier replaces the whole pre-release portion with the
// given qualifier, dropping build identifiers. This is the collapsed-version
// base form: the ordinal is appended separately.
func (v Version) WithPrereleaseQualifier(qualifier string) Version {
	return Version{major: v.major, minor: v.minor, patch: v.patch, prerelease: []string{qualifier}}
}

// WithPrereleaseOrdinal returns the collapsed form "core-qualifier.ordinal".
func (v Version) WithPrereleaseOrdinal(qualifier string, ordinal uint64) Version {
	return Version{
		major:      v.major,
		minor:      v.minor,
		patch:      v.patch,
		prerelease: []string{qualifier, strconv.FormatUint(ordinal, 10)},
	}
}

// PrereleaseOrdinal returns the numeric identifier immediately following the
// given qualifier, and whether one was found.
func (v Version) PrereleaseOrdinal(qualifier string) (uint64, bool) {
	for i, id := range v.prerelease {
		if id == qualifier && i+1 < len(v.prerelease) && isNumericIdentifier(v.prerelease[i+1]) {
			n, err := strconv.ParseUint(v.prerelease[i+1], 10, 64)
			if err != nil {
				return 0, false
			}
			return n, true
		}
	}
	return 0, false
}
