package version

import (
	"fmt"
	"regexp"
	"strings"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// branchVersionRegex extracts the version-looking portion of a branch name,
// e.g. "1.x", "v1.2.x", "rel/1.4.x", "release-2.0.x".
var branchVersionRegex = regexp.MustCompile(`(?:^|[/\-])v?(\d+)(?:\.(\d+|x))?(?:\.(\d+|x))?$`)

// InRange reports whether the canonical rendering of the version matches the
// given regular expression.
func InRange(v Version, pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, "version.InRange", "invalid version range expression %q", pattern)
	}
	return re.MatchString(v.String()), nil
}

// RangeFromBranchName derives a version-range regular expression from a
// branch name: numeric components become literals and an "x" (or a missing
// component) leaves the remainder unconstrained. "rel/1.4.x" yields
// `^1\.4\.`, "v2.x" yields `^2\.`.
func RangeFromBranchName(branch string) (string, error) {
	matches := branchVersionRegex.FindStringSubmatch(strings.TrimSpace(branch))
	if matches == nil {
		return "", nyxerrors.Newf(nyxerrors.KindConfiguration, "version.RangeFromBranchName", "branch name %q does not embed a version constraint", branch).
			WithFields("releaseTypes.items.*.versionRangeFromBranchName")
	}

	var sb strings.Builder
	sb.WriteString("^")
	sb.WriteString(matches[1])
	sb.WriteString(`\.`)

	for _, component := range matches[2:] {
		if component == "" || component == "x" {
			break
		}
		sb.WriteString(component)
		sb.WriteString(`\.`)
	}
	return sb.String(), nil
}

// CheckRange validates a candidate version against the range expression,
// returning a version-range violation error on mismatch.
func CheckRange(v Version, pattern string) error {
	ok, err := InRange(v, pattern)
	if err != nil {
		return err
	}
	if !ok {
		return nyxerrors.New(nyxerrors.KindVersionRange, "version.CheckRange",
			fmt.Sprintf("version %s does not match the configured range %q", v.String(), pattern))
	}
	return nil
}
