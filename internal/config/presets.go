package config

import (
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// Preset names.
const (
	PresetSimple          = "simple"
	PresetExtended        = "extended"
	PresetExtendedGitFlow = "extendedGitFlow"
)

// PresetByName returns the compiled-in configuration bundle with the given
// name, or nil for the empty name.
func PresetByName(name string) (*Config, error) {
	switch name {
	case "":
		return nil, nil
	case PresetSimple:
		return simplePreset(), nil
	case PresetExtended:
		return extendedPreset(), nil
	case PresetExtendedGitFlow:
		// same rule set, with selection order tuned for git-flow naming
		cfg := extendedPreset()
		cfg.ReleaseTypes.Enabled = []string{
			"mainline", "release", "hotfix", "feature", "integration",
			"maturity", "maintenance", "internal",
		}
		return cfg, nil
	default:
		return nil, nyxerrors.Newf(nyxerrors.KindConfiguration, "config.PresetByName", "unknown preset %q", name).
			WithFields("preset")
	}
}

// conventionalCommits classifies messages per the Conventional Commits
// specification: feat yields minor, fix yields patch, the "!" marker or a
// BREAKING CHANGE footer yields major.
func conventionalCommitsConvention() ConventionConfig {
	return ConventionConfig{
		Expression: `(?m)^(?P<type>[a-zA-Z0-9_]+)(?:\((?P<scope>[a-zA-Z0-9 \-_]+)\))?(?P<breaking>!)?: (?P<title>.+)`,
		BumpExpressions: map[string]string{
			"major": `(?s)(?m)^[a-zA-Z0-9_]+(?:\([a-zA-Z0-9 \-_]+\))?!: .*|(?s)(?m)^.*\n\s*BREAKING[ -]CHANGE:.*`,
			"minor": `(?m)^feat(?:\([a-zA-Z0-9 \-_]+\))?!?: .*`,
			"patch": `(?m)^fix(?:\([a-zA-Z0-9 \-_]+\))?!?: .*`,
		},
	}
}

// conventionalCommitsForMerge applies the same classification anywhere in
// the message, catching squashed and merge commits that embed conventional
// lines below the subject.
func conventionalCommitsForMergeConvention() ConventionConfig {
	return ConventionConfig{
		Expression: `(?s)(?m)^.*(?P<type>feat|fix|build|chore|ci|docs|style|refactor|perf|test)(?:\((?P<scope>[a-zA-Z0-9 \-_]+)\))?(?P<breaking>!)?: (?P<title>.+)`,
		BumpExpressions: map[string]string{
			"major": `(?s)(?m)^.*[a-zA-Z0-9_]+(?:\([a-zA-Z0-9 \-_]+\))?!: .*|(?s)(?m)^.*\n\s*BREAKING[ -]CHANGE:.*`,
			"minor": `(?s)(?m)^.*feat(?:\([a-zA-Z0-9 \-_]+\))?: .*`,
			"patch": `(?s)(?m)^.*fix(?:\([a-zA-Z0-9 \-_]+\))?: .*`,
		},
	}
}

func coreVersionFilter() string {
	return `^{{configuration.releasePrefix}}(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)$`
}

func branchQualifiedFilter() string {
	return `^{{configuration.releasePrefix}}(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)(-(0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(\.(0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*)?$`
}

func sanitizedBranchQualifier() string {
	return `{{#sanitizeLower}}{{branch}}{{/sanitizeLower}}`
}

// simplePreset carries the conventional-commits matcher and a two-type
// matrix: releases from the mainline, collapsed internal versions elsewhere.
func simplePreset() *Config {
	return &Config{
		CommitMessageConventions: ConventionsConfig{
			Enabled: []string{"conventionalCommits"},
			Items: map[string]ConventionConfig{
				"conventionalCommits": conventionalCommitsConvention(),
			},
		},
		ReleaseTypes: ReleaseTypesConfig{
			Enabled:            []string{"mainline", "internal"},
			RemoteRepositories: []string{"origin"},
			Items: map[string]ReleaseTypeConfig{
				"mainline": mainlineType(),
				"internal": internalType(),
			},
		},
	}
}

// extendedPreset reproduces the full branch matrix with the github and
// gitlab service stubs.
func extendedPreset() *Config {
	return &Config{
		CommitMessageConventions: ConventionsConfig{
			Enabled: []string{"conventionalCommits", "conventionalCommitsForMerge"},
			Items: map[string]ConventionConfig{
				"conventionalCommits":         conventionalCommitsConvention(),
				"conventionalCommitsForMerge": conventionalCommitsForMergeConvention(),
			},
		},
		ReleaseTypes: ReleaseTypesConfig{
			Enabled: []string{
				"mainline", "integration", "maturity", "feature",
				"hotfix", "release", "maintenance", "internal",
			},
			RemoteRepositories: []string{"origin"},
			Items: map[string]ReleaseTypeConfig{
				"mainline":    mainlineType(),
				"integration": integrationType(),
				"maturity":    maturityType(),
				"feature":     featureType(),
				"hotfix":      hotfixType(),
				"release":     releaseType(),
				"maintenance": maintenanceType(),
				"internal":    internalType(),
			},
		},
		Services: map[string]ServiceConfig{
			"github": {
				Type: "GITHUB",
				Options: map[string]string{
					"AUTHENTICATION_TOKEN": `{{#environment.variable}}GITHUB_TOKEN{{/environment.variable}}`,
				},
			},
			"gitlab": {
				Type: "GITLAB",
				Options: map[string]string{
					"AUTHENTICATION_TOKEN": `{{#environment.variable}}GITLAB_TOKEN{{/environment.variable}}`,
				},
			},
		},
	}
}

func mainlineType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:     BoolPtr(false),
		Description:          "Release {{version}}",
		FilterTags:           coreVersionFilter(),
		GitCommit:            "false",
		GitCommitMessage:     "Release version {{version}}",
		GitPush:              "true",
		GitTag:               "true",
		GitTagMessage:        "Release {{version}}",
		MatchBranches:        `^(master|main)$`,
		MatchWorkspaceStatus: "CLEAN",
		Publish:              "true",
	}
}

func integrationType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:          BoolPtr(true),
		CollapsedVersionQualifier: sanitizedBranchQualifier(),
		Description:               "Integration release {{version}}",
		FilterTags:                branchQualifiedFilter(),
		GitCommit:                 "false",
		GitPush:                   "true",
		GitTag:                    "true",
		GitTagMessage:             "Integration release {{version}}",
		MatchBranches:             `^(develop|development|integration|latest)$`,
		MatchWorkspaceStatus:      "CLEAN",
		Publish:                   "true",
	}
}

func maturityType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:          BoolPtr(true),
		CollapsedVersionQualifier: sanitizedBranchQualifier(),
		Description:               "Maturity release {{version}}",
		FilterTags:                branchQualifiedFilter(),
		GitCommit:                 "false",
		GitPush:                   "true",
		GitTag:                    "true",
		GitTagMessage:             "Maturity release {{version}}",
		MatchBranches:             `^(alpha|beta|gamma|delta|epsilon|zeta|eta|theta|iota|kappa|lambda|mu|nu|xi|omicron|pi|rho|sigma|tau|upsilon|phi|chi|psi|omega)$`,
		MatchWorkspaceStatus:      "ANY",
		Publish:                   "true",
	}
}

func featureType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:          BoolPtr(true),
		CollapsedVersionQualifier: sanitizedBranchQualifier(),
		Description:               "Feature build {{version}}",
		FilterTags:                branchQualifiedFilter(),
		GitCommit:                 "false",
		GitPush:                   "false",
		GitTag:                    "false",
		MatchBranches:             `^(feat|feature)((-|\/)[0-9a-zA-Z-]+)?$`,
		MatchWorkspaceStatus:      "ANY",
		Publish:                   "false",
	}
}

func hotfixType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:          BoolPtr(true),
		CollapsedVersionQualifier: sanitizedBranchQualifier(),
		Description:               "Hotfix release {{version}}",
		FilterTags:                branchQualifiedFilter(),
		GitCommit:                 "false",
		GitPush:                   "true",
		GitTag:                    "true",
		GitTagMessage:             "Hotfix release {{version}}",
		MatchBranches:             `^(fix|hotfix)((-|\/)[0-9a-zA-Z-]+)?$`,
		MatchWorkspaceStatus:      "CLEAN",
		Publish:                   "true",
	}
}

func releaseType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:           BoolPtr(true),
		CollapsedVersionQualifier:  sanitizedBranchQualifier(),
		Description:                "Release candidate {{version}}",
		FilterTags:                 branchQualifiedFilter(),
		GitCommit:                  "false",
		GitPush:                    "true",
		GitTag:                     "true",
		GitTagMessage:              "Release candidate {{version}}",
		MatchBranches:              `^(rel|release)(-|\/)v?(\d+)(\.(\d+|x))?(\.(\d+|x))?$`,
		MatchWorkspaceStatus:       "CLEAN",
		Publish:                    "false",
		VersionRangeFromBranchName: BoolPtr(true),
	}
}

func maintenanceType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:           BoolPtr(false),
		Description:                "Maintenance release {{version}}",
		FilterTags:                 coreVersionFilter(),
		GitCommit:                  "false",
		GitPush:                    "true",
		GitTag:                     "true",
		GitTagMessage:              "Maintenance release {{version}}",
		MatchBranches:              `^[a-zA-Z]*(\d+)(\.(\d+|x))?(\.(\d+|x))?$`,
		MatchWorkspaceStatus:       "CLEAN",
		Publish:                    "true",
		VersionRangeFromBranchName: BoolPtr(true),
	}
}

func internalType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:          BoolPtr(true),
		CollapsedVersionQualifier: "internal",
		Description:               "Internal build {{version}}",
		GitCommit:                 "false",
		GitPush:                   "false",
		GitTag:                    "false",
		Identifiers: []IdentifierConfig{
			{
				Position:  "BUILD",
				Qualifier: "timestamp",
				Value:     `{{#timestampYYYYMMDDHHMMSS}}{{timestamp}}{{/timestampYYYYMMDDHHMMSS}}`,
			},
		},
		MatchBranches:        "",
		MatchWorkspaceStatus: "ANY",
		Publish:              "false",
	}
}
