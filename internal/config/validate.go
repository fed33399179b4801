package config

import (
	"regexp"

	"github.com/Masterminds/semver/v3"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

var validVerbosity = map[string]struct{}{
	"fatal": {}, "error": {}, "warning": {}, "warn": {}, "info": {}, "debug": {}, "trace": {},
}

var validWorkspaceStatus = map[string]struct{}{
	"": {}, "CLEAN": {}, "DIRTY": {}, "ANY": {},
}

var validIdentifierPosition = map[string]struct{}{
	"": {}, "PRE_RELEASE": {}, "BUILD": {},
}

var validServiceType = map[string]struct{}{
	"GITHUB": {}, "GITLAB": {},
}

// Validate checks the effective configuration for structural errors. Template
// fields are not resolved here; only plainly invalid values are rejected.
func Validate(cfg *Config) error {
	const op = "config.Validate"

	if cfg.Scheme != "" && cfg.Scheme != "semver" {
		return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "unsupported scheme %q", cfg.Scheme).
			WithFields("scheme")
	}

	if cfg.Verbosity != "" {
		if _, ok := validVerbosity[cfg.Verbosity]; !ok {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "unknown verbosity %q", cfg.Verbosity).
				WithFields("verbosity")
		}
	}

	// cross-check fixed versions with the strict semver grammar
	if cfg.InitialVersion != "" {
		if _, err := semver.StrictNewVersion(cfg.InitialVersion); err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "invalid initialVersion %q", cfg.InitialVersion).
				WithFields("initialVersion")
		}
	}
	if cfg.Version != "" {
		if _, err := semver.StrictNewVersion(cfg.Version); err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "invalid version override %q", cfg.Version).
				WithFields("version")
		}
	}

	if cfg.Bump != "" {
		switch cfg.Bump {
		case "major", "minor", "patch":
		default:
			// named identifiers are legal bump targets, but reject values
			// that could never be identifiers
			if !regexp.MustCompile(`^[0-9A-Za-z-]+$`).MatchString(cfg.Bump) {
				return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "invalid bump component %q", cfg.Bump).
					WithFields("bump")
			}
		}
	}

	if err := validateConventions(&cfg.CommitMessageConventions); err != nil {
		return err
	}
	if err := validateReleaseTypes(&cfg.ReleaseTypes); err != nil {
		return err
	}
	if err := validateServices(cfg.Services); err != nil {
		return err
	}
	return validateChangelog(&cfg.Changelog)
}

func validateConventions(c *ConventionsConfig) error {
	const op = "config.Validate"

	for _, name := range c.Enabled {
		item, ok := c.Items[name]
		if !ok {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "enabled commit message convention %q is not defined", name).
				WithFields("commitMessageConventions.enabled")
		}
		if item.Expression == "" {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "commit message convention %q has no expression", name).
				WithFields("commitMessageConventions.items." + name + ".expression")
		}
		if _, err := regexp.Compile(item.Expression); err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "commit message convention %q has an invalid expression", name).
				WithFields("commitMessageConventions.items." + name + ".expression")
		}
		for component, expr := range item.BumpExpressions {
			if _, err := regexp.Compile(expr); err != nil {
				return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "bump expression %q of convention %q is invalid", component, name).
					WithFields("commitMessageConventions.items." + name + ".bumpExpressions." + component)
			}
		}
	}
	return nil
}

func validateReleaseTypes(r *ReleaseTypesConfig) error {
	const op = "config.Validate"

	for _, name := range r.Enabled {
		item, ok := r.Items[name]
		if !ok {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "enabled release type %q is not defined", name).
				WithFields("releaseTypes.enabled")
		}
		if _, ok := validWorkspaceStatus[item.MatchWorkspaceStatus]; !ok {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "release type %q has an invalid matchWorkspaceStatus %q", name, item.MatchWorkspaceStatus).
				WithFields("releaseTypes.items." + name + ".matchWorkspaceStatus")
		}
		for _, id := range item.Identifiers {
			if _, ok := validIdentifierPosition[id.Position]; !ok {
				return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "release type %q has an invalid identifier position %q", name, id.Position).
					WithFields("releaseTypes.items." + name + ".identifiers")
			}
			if id.Qualifier == "" {
				return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "release type %q has an identifier without a qualifier", name).
					WithFields("releaseTypes.items." + name + ".identifiers")
			}
		}
	}
	return nil
}

func validateServices(services map[string]ServiceConfig) error {
	const op = "config.Validate"

	for name, svc := range services {
		if _, ok := validServiceType[svc.Type]; !ok {
			return nyxerrors.Newf(nyxerrors.KindConfiguration, op, "service %q has an unsupported type %q", name, svc.Type).
				WithFields("services." + name + ".type")
		}
	}
	return nil
}

func validateChangelog(c *ChangelogConfig) error {
	const op = "config.Validate"

	for _, pair := range c.Sections.Pairs() {
		if _, err := regexp.Compile(pair.Value); err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "changelog section %q has an invalid expression", pair.Key).
				WithFields("changelog.sections." + pair.Key)
		}
	}
	for _, pair := range c.Substitutions.Pairs() {
		if _, err := regexp.Compile(pair.Key); err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "changelog substitution %q is not a valid expression", pair.Key).
				WithFields("changelog.substitutions")
		}
	}
	return nil
}
