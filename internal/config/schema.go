// Package config provides the layered configuration model for the release
// engine. Values are stored raw; template fields are resolved lazily against
// the live state by their consumers.
package config

// Config is the root configuration record. Scalar pointers distinguish
// "unset" from an explicit zero so that layering can fill gaps from lower
// priority sources.
type Config struct {
	// Bump overrides the bump component inferred from commit history.
	Bump string `json:"bump,omitempty" yaml:"bump,omitempty" mapstructure:"bump"`
	// Changelog configures the changelog artifact produced by Make.
	Changelog ChangelogConfig `json:"changelog,omitempty" yaml:"changelog,omitempty" mapstructure:"changelog"`
	// CommitMessageConventions configures the commit classifiers.
	CommitMessageConventions ConventionsConfig `json:"commitMessageConventions,omitempty" yaml:"commitMessageConventions,omitempty" mapstructure:"commitMessageConventions"`
	// ConfigurationFile is an explicit configuration file layered above presets.
	ConfigurationFile string `json:"configurationFile,omitempty" yaml:"configurationFile,omitempty" mapstructure:"configurationFile"`
	// Directory is the repository working directory.
	Directory string `json:"directory,omitempty" yaml:"directory,omitempty" mapstructure:"directory"`
	// DryRun short-circuits every side effect to a logged no-op.
	DryRun *bool `json:"dryRun,omitempty" yaml:"dryRun,omitempty" mapstructure:"dryRun"`
	// Git configures remotes and their credentials.
	Git GitConfig `json:"git,omitempty" yaml:"git,omitempty" mapstructure:"git"`
	// InitialVersion is used when no previous version is found in history.
	InitialVersion string `json:"initialVersion,omitempty" yaml:"initialVersion,omitempty" mapstructure:"initialVersion"`
	// Preset names a compiled-in configuration bundle.
	Preset string `json:"preset,omitempty" yaml:"preset,omitempty" mapstructure:"preset"`
	// ReleaseAssets declares artifacts attached to published releases.
	ReleaseAssets map[string]AssetConfig `json:"releaseAssets,omitempty" yaml:"releaseAssets,omitempty" mapstructure:"releaseAssets"`
	// ReleaseLenient tolerates non-canonical tags when reading history.
	ReleaseLenient *bool `json:"releaseLenient,omitempty" yaml:"releaseLenient,omitempty" mapstructure:"releaseLenient"`
	// ReleasePrefix is prepended to tag names (e.g. "v").
	ReleasePrefix string `json:"releasePrefix,omitempty" yaml:"releasePrefix,omitempty" mapstructure:"releasePrefix"`
	// ReleaseTypes configures the release-type rule set.
	ReleaseTypes ReleaseTypesConfig `json:"releaseTypes,omitempty" yaml:"releaseTypes,omitempty" mapstructure:"releaseTypes"`
	// Resume reloads a previous state file before running.
	Resume *bool `json:"resume,omitempty" yaml:"resume,omitempty" mapstructure:"resume"`
	// Scheme is the versioning scheme ("semver").
	Scheme string `json:"scheme,omitempty" yaml:"scheme,omitempty" mapstructure:"scheme"`
	// Services configures hosting-service providers by name.
	Services map[string]ServiceConfig `json:"services,omitempty" yaml:"services,omitempty" mapstructure:"services"`
	// SharedConfigurationFile is layered between the explicit file and presets.
	SharedConfigurationFile string `json:"sharedConfigurationFile,omitempty" yaml:"sharedConfigurationFile,omitempty" mapstructure:"sharedConfigurationFile"`
	// StateFile persists the engine state between invocations.
	StateFile string `json:"stateFile,omitempty" yaml:"stateFile,omitempty" mapstructure:"stateFile"`
	// SummaryFile writes the flat run summary after Infer.
	SummaryFile string `json:"summaryFile,omitempty" yaml:"summaryFile,omitempty" mapstructure:"summaryFile"`
	// Verbosity is the log level (fatal, error, warning, info, debug, trace).
	Verbosity string `json:"verbosity,omitempty" yaml:"verbosity,omitempty" mapstructure:"verbosity"`
	// Version overrides the inferred version entirely.
	Version string `json:"version,omitempty" yaml:"version,omitempty" mapstructure:"version"`

	// Extra preserves unknown top-level keys for forward compatibility.
	Extra map[string]any `json:"-" yaml:"-" mapstructure:",remain"`
}

// ChangelogConfig configures the changelog artifact.
type ChangelogConfig struct {
	// Path is the changelog file location; empty disables the changelog.
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
	// Sections maps section names to commit-type regular expressions, in
	// declaration order.
	Sections OrderedPairs `json:"sections,omitempty" yaml:"sections,omitempty" mapstructure:"sections"`
	// Substitutions are regex→replacement pairs applied to rendered lines,
	// in declaration order.
	Substitutions OrderedPairs `json:"substitutions,omitempty" yaml:"substitutions,omitempty" mapstructure:"substitutions"`
	// Template overrides the default layout.
	Template string `json:"template,omitempty" yaml:"template,omitempty" mapstructure:"template"`
}

// ConventionsConfig configures the commit message convention matchers.
type ConventionsConfig struct {
	// Enabled lists the convention names to evaluate, in order.
	Enabled []string `json:"enabled,omitempty" yaml:"enabled,omitempty" mapstructure:"enabled"`
	// Items defines the conventions by name.
	Items map[string]ConventionConfig `json:"items,omitempty" yaml:"items,omitempty" mapstructure:"items"`
}

// ConventionConfig defines one commit message convention.
type ConventionConfig struct {
	// Expression matches and decomposes the commit message; named groups
	// "type", "scope", "title" and "breaking" are recognized.
	Expression string `json:"expression,omitempty" yaml:"expression,omitempty" mapstructure:"expression"`
	// BumpExpressions maps bump components to regular expressions.
	BumpExpressions map[string]string `json:"bumpExpressions,omitempty" yaml:"bumpExpressions,omitempty" mapstructure:"bumpExpressions"`
}

// GitConfig configures git remotes.
type GitConfig struct {
	// Remotes maps remote names to credentials.
	Remotes map[string]RemoteConfig `json:"remotes,omitempty" yaml:"remotes,omitempty" mapstructure:"remotes"`
}

// RemoteConfig carries per-remote credentials. Values may be templates
// (typically environment lookups).
type RemoteConfig struct {
	User     string `json:"user,omitempty" yaml:"user,omitempty" mapstructure:"user"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
}

// ReleaseTypesConfig configures the ordered release-type rule set.
type ReleaseTypesConfig struct {
	// Enabled lists the type names to evaluate, in order.
	Enabled []string `json:"enabled,omitempty" yaml:"enabled,omitempty" mapstructure:"enabled"`
	// PublicationServices lists the service names Publish releases to.
	PublicationServices []string `json:"publicationServices,omitempty" yaml:"publicationServices,omitempty" mapstructure:"publicationServices"`
	// RemoteRepositories lists the remotes Mark pushes to.
	RemoteRepositories []string `json:"remoteRepositories,omitempty" yaml:"remoteRepositories,omitempty" mapstructure:"remoteRepositories"`
	// Items defines the release types by name.
	Items map[string]ReleaseTypeConfig `json:"items,omitempty" yaml:"items,omitempty" mapstructure:"items"`
}

// ReleaseTypeConfig defines one release type. String fields may be templates
// resolved against the live state when read.
type ReleaseTypeConfig struct {
	CollapseVersions           *bool              `json:"collapseVersions,omitempty" yaml:"collapseVersions,omitempty" mapstructure:"collapseVersions"`
	CollapsedVersionQualifier  string             `json:"collapsedVersionQualifier,omitempty" yaml:"collapsedVersionQualifier,omitempty" mapstructure:"collapsedVersionQualifier"`
	Description                string             `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	FilterTags                 string             `json:"filterTags,omitempty" yaml:"filterTags,omitempty" mapstructure:"filterTags"`
	GitCommit                  string             `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty" mapstructure:"gitCommit"`
	GitCommitMessage           string             `json:"gitCommitMessage,omitempty" yaml:"gitCommitMessage,omitempty" mapstructure:"gitCommitMessage"`
	GitPush                    string             `json:"gitPush,omitempty" yaml:"gitPush,omitempty" mapstructure:"gitPush"`
	GitTag                     string             `json:"gitTag,omitempty" yaml:"gitTag,omitempty" mapstructure:"gitTag"`
	GitTagMessage              string             `json:"gitTagMessage,omitempty" yaml:"gitTagMessage,omitempty" mapstructure:"gitTagMessage"`
	Identifiers                []IdentifierConfig `json:"identifiers,omitempty" yaml:"identifiers,omitempty" mapstructure:"identifiers"`
	MatchBranches              string             `json:"matchBranches,omitempty" yaml:"matchBranches,omitempty" mapstructure:"matchBranches"`
	MatchEnvironmentVariables  map[string]string  `json:"matchEnvironmentVariables,omitempty" yaml:"matchEnvironmentVariables,omitempty" mapstructure:"matchEnvironmentVariables"`
	MatchWorkspaceStatus       string             `json:"matchWorkspaceStatus,omitempty" yaml:"matchWorkspaceStatus,omitempty" mapstructure:"matchWorkspaceStatus"`
	Publish                    string             `json:"publish,omitempty" yaml:"publish,omitempty" mapstructure:"publish"`
	VersionRange               string             `json:"versionRange,omitempty" yaml:"versionRange,omitempty" mapstructure:"versionRange"`
	VersionRangeFromBranchName *bool              `json:"versionRangeFromBranchName,omitempty" yaml:"versionRangeFromBranchName,omitempty" mapstructure:"versionRangeFromBranchName"`
}

// IdentifierConfig declares one extra identifier appended to inferred
// versions. Value may be a template.
type IdentifierConfig struct {
	Position  string `json:"position,omitempty" yaml:"position,omitempty" mapstructure:"position"`
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty" mapstructure:"qualifier"`
	Value     string `json:"value,omitempty" yaml:"value,omitempty" mapstructure:"value"`
}

// ServiceConfig configures one hosting-service provider.
type ServiceConfig struct {
	// Type is the provider kind (GITHUB, GITLAB).
	Type string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	// Options are provider options; values may be templates.
	Options map[string]string `json:"options,omitempty" yaml:"options,omitempty" mapstructure:"options"`
}

// AssetConfig declares one release asset.
type AssetConfig struct {
	FileName    string `json:"fileName,omitempty" yaml:"fileName,omitempty" mapstructure:"fileName"`
	Description string `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty" mapstructure:"type"`
	Path        string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`
}

// BoolPtr returns a pointer to the given boolean, for literal configuration.
func BoolPtr(b bool) *bool {
	return &b
}
