package config

// DefaultReleaseTypeName is the built-in release type used when no other
// type matches; it disables all side effects.
const DefaultReleaseTypeName = "default"

// Defaults returns the built-in configuration layer, the lowest priority in
// the stack.
func Defaults() *Config {
	return &Config{
		Changelog: ChangelogConfig{},
		CommitMessageConventions: ConventionsConfig{
			Enabled: nil,
			Items:   map[string]ConventionConfig{},
		},
		Directory:      ".",
		DryRun:         BoolPtr(false),
		InitialVersion: "0.1.0",
		ReleaseLenient: BoolPtr(true),
		ReleaseTypes: ReleaseTypesConfig{
			Enabled:             []string{DefaultReleaseTypeName},
			PublicationServices: nil,
			RemoteRepositories:  []string{"origin"},
			Items: map[string]ReleaseTypeConfig{
				DefaultReleaseTypeName: defaultReleaseType(),
			},
		},
		Resume:    BoolPtr(false),
		Scheme:    "semver",
		Verbosity: "info",
	}
}

// DefaultReleaseType returns the built-in release type used as the selector
// fallback: it matches any branch and performs no side effects.
func DefaultReleaseType() ReleaseTypeConfig {
	return defaultReleaseType()
}

// defaultReleaseType matches any branch and performs no side effects.
func defaultReleaseType() ReleaseTypeConfig {
	return ReleaseTypeConfig{
		CollapseVersions:     BoolPtr(false),
		GitCommit:            "false",
		GitCommitMessage:     "Release version {{version}}",
		GitPush:              "false",
		GitTag:               "false",
		GitTagMessage:        "",
		MatchBranches:        "",
		MatchWorkspaceStatus: "ANY",
		Publish:              "false",
	}
}
