package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Layering folds configuration sources in fixed priority: command-line and
// environment, then the explicit file, the shared file, the preset and the
// built-in defaults. Records and maps deep-merge; scalars and lists replace.

// Resolve builds the effective configuration from the command-line layer.
// File layers referenced by the command-line layer (or by each other) are
// loaded on demand.
func Resolve(cmdline *Config) (*Config, error) {
	if cmdline == nil {
		cmdline = &Config{}
	}

	var explicit, shared *Config
	var err error

	if path := cmdline.ConfigurationFile; path != "" {
		explicit, err = LoadFile(path)
		if err != nil {
			return nil, err
		}
	}

	sharedPath := firstNonEmpty(cmdline.SharedConfigurationFile, fieldOf(explicit, func(c *Config) string { return c.SharedConfigurationFile }))
	if sharedPath != "" {
		shared, err = LoadFile(sharedPath)
		if err != nil {
			return nil, err
		}
	}

	presetName := firstNonEmpty(
		cmdline.Preset,
		fieldOf(explicit, func(c *Config) string { return c.Preset }),
		fieldOf(shared, func(c *Config) string { return c.Preset }),
	)
	preset, err := PresetByName(presetName)
	if err != nil {
		return nil, err
	}

	effective := Defaults()
	for _, layer := range []*Config{preset, shared, explicit, cmdline} {
		if layer != nil {
			overlay(effective, layer)
		}
	}
	return effective, nil
}

func fieldOf(c *Config, get func(*Config) string) string {
	if c == nil {
		return ""
	}
	return get(c)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// overlay applies src on top of dst: set fields of src win.
func overlay(dst, src *Config) {
	setString(&dst.Bump, src.Bump)
	overlayChangelog(&dst.Changelog, &src.Changelog)
	overlayConventions(&dst.CommitMessageConventions, &src.CommitMessageConventions)
	setString(&dst.ConfigurationFile, src.ConfigurationFile)
	setString(&dst.Directory, src.Directory)
	setBool(&dst.DryRun, src.DryRun)
	overlayGit(&dst.Git, &src.Git)
	setString(&dst.InitialVersion, src.InitialVersion)
	setString(&dst.Preset, src.Preset)
	dst.ReleaseAssets = overlayMap(dst.ReleaseAssets, src.ReleaseAssets, func(old, new AssetConfig) AssetConfig {
		setString(&old.FileName, new.FileName)
		setString(&old.Description, new.Description)
		setString(&old.Type, new.Type)
		setString(&old.Path, new.Path)
		return old
	})
	setBool(&dst.ReleaseLenient, src.ReleaseLenient)
	setString(&dst.ReleasePrefix, src.ReleasePrefix)
	overlayReleaseTypes(&dst.ReleaseTypes, &src.ReleaseTypes)
	setBool(&dst.Resume, src.Resume)
	setString(&dst.Scheme, src.Scheme)
	dst.Services = overlayMap(dst.Services, src.Services, func(old, new ServiceConfig) ServiceConfig {
		setString(&old.Type, new.Type)
		old.Options = overlayMap(old.Options, new.Options, func(_, n string) string { return n })
		return old
	})
	setString(&dst.SharedConfigurationFile, src.SharedConfigurationFile)
	setString(&dst.StateFile, src.StateFile)
	setString(&dst.SummaryFile, src.SummaryFile)
	setString(&dst.Verbosity, src.Verbosity)
	setString(&dst.Version, src.Version)

	dst.Extra = overlayMap(dst.Extra, src.Extra, func(_, n any) any { return n })
}

func overlayChangelog(dst, src *ChangelogConfig) {
	setString(&dst.Path, src.Path)
	if !src.Sections.IsEmpty() {
		dst.Sections = src.Sections
	}
	if !src.Substitutions.IsEmpty() {
		dst.Substitutions = src.Substitutions
	}
	setString(&dst.Template, src.Template)
}

func overlayConventions(dst, src *ConventionsConfig) {
	if len(src.Enabled) > 0 {
		dst.Enabled = append([]string(nil), src.Enabled...)
	}
	dst.Items = overlayMap(dst.Items, src.Items, func(old, new ConventionConfig) ConventionConfig {
		setString(&old.Expression, new.Expression)
		old.BumpExpressions = overlayMap(old.BumpExpressions, new.BumpExpressions, func(_, n string) string { return n })
		return old
	})
}

func overlayGit(dst, src *GitConfig) {
	dst.Remotes = overlayMap(dst.Remotes, src.Remotes, func(old, new RemoteConfig) RemoteConfig {
		setString(&old.User, new.User)
		setString(&old.Password, new.Password)
		return old
	})
}

func overlayReleaseTypes(dst, src *ReleaseTypesConfig) {
	if len(src.Enabled) > 0 {
		dst.Enabled = append([]string(nil), src.Enabled...)
	}
	if len(src.PublicationServices) > 0 {
		dst.PublicationServices = append([]string(nil), src.PublicationServices...)
	}
	if len(src.RemoteRepositories) > 0 {
		dst.RemoteRepositories = append([]string(nil), src.RemoteRepositories...)
	}
	dst.Items = overlayMap(dst.Items, src.Items, overlayReleaseType)
}

func overlayReleaseType(old, new ReleaseTypeConfig) ReleaseTypeConfig {
	setBool(&old.CollapseVersions, new.CollapseVersions)
	setString(&old.CollapsedVersionQualifier, new.CollapsedVersionQualifier)
	setString(&old.Description, new.Description)
	setString(&old.FilterTags, new.FilterTags)
	setString(&old.GitCommit, new.GitCommit)
	setString(&old.GitCommitMessage, new.GitCommitMessage)
	setString(&old.GitPush, new.GitPush)
	setString(&old.GitTag, new.GitTag)
	setString(&old.GitTagMessage, new.GitTagMessage)
	if len(new.Identifiers) > 0 {
		old.Identifiers = append([]IdentifierConfig(nil), new.Identifiers...)
	}
	setString(&old.MatchBranches, new.MatchBranches)
	old.MatchEnvironmentVariables = overlayMap(old.MatchEnvironmentVariables, new.MatchEnvironmentVariables, func(_, n string) string { return n })
	setString(&old.MatchWorkspaceStatus, new.MatchWorkspaceStatus)
	setString(&old.Publish, new.Publish)
	setString(&old.VersionRange, new.VersionRange)
	setBool(&old.VersionRangeFromBranchName, new.VersionRangeFromBranchName)
	return old
}

func setString(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func setBool(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func overlayMap[V any](dst, src map[string]V, merge func(old, new V) V) map[string]V {
	if len(src) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]V, len(src))
	}
	for k, v := range src {
		if old, ok := dst[k]; ok {
			dst[k] = merge(old, v)
		} else {
			dst[k] = v
		}
	}
	return dst
}

// Hash returns a stable digest of the configuration, used by the resume
// staleness check. Options that do not affect inference (resume, dryRun,
// verbosity and the auxiliary file paths) are excluded so toggling them does
// not invalidate a previous state.
func (c *Config) Hash() string {
	clone := *c
	clone.DryRun = nil
	clone.Resume = nil
	clone.StateFile = ""
	clone.SummaryFile = ""
	clone.Verbosity = ""

	data, err := json.Marshal(&clone)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
