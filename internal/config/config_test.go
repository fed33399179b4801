package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, "0.1.0", cfg.InitialVersion)
	assert.Equal(t, "semver", cfg.Scheme)
	assert.Equal(t, ".", cfg.Directory)
	require.NotNil(t, cfg.ReleaseLenient)
	assert.True(t, *cfg.ReleaseLenient)
	require.NotNil(t, cfg.DryRun)
	assert.False(t, *cfg.DryRun)
	assert.Equal(t, []string{DefaultReleaseTypeName}, cfg.ReleaseTypes.Enabled)

	def := cfg.ReleaseTypes.Items[DefaultReleaseTypeName]
	assert.Equal(t, "false", def.GitTag)
	assert.Equal(t, "false", def.Publish)
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nyx.yaml", `
initialVersion: 1.0.0
releasePrefix: v
changelog:
  path: CHANGELOG.md
  sections:
    Added: "^feat$"
    Fixed: "^fix$"
releaseTypes:
  enabled:
    - mainline
  items:
    mainline:
      matchBranches: "^main$"
      gitTag: "true"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", cfg.InitialVersion)
	assert.Equal(t, "v", cfg.ReleasePrefix)
	assert.Equal(t, "CHANGELOG.md", cfg.Changelog.Path)

	pairs := cfg.Changelog.Sections.Pairs()
	require.Len(t, pairs, 2)
	assert.Equal(t, "Added", pairs[0].Key)
	assert.Equal(t, "Fixed", pairs[1].Key)

	mainline := cfg.ReleaseTypes.Items["mainline"]
	assert.Equal(t, "^main$", mainline.MatchBranches)
	assert.Equal(t, "true", mainline.GitTag)
}

func TestLoadFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nyx.json", `{
  "initialVersion": "2.0.0",
  "changelog": {
    "path": "CHANGELOG.md",
    "sections": {"Changed": "^chore$", "Added": "^feat$"}
  }
}`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", cfg.InitialVersion)

	pairs := cfg.Changelog.Sections.Pairs()
	require.Len(t, pairs, 2)
	// JSON object order is preserved
	assert.Equal(t, "Changed", pairs[0].Key)
	assert.Equal(t, "Added", pairs[1].Key)
}

func TestLoadFileTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nyx.toml", `
initialVersion = "3.0.0"
releasePrefix = "v"

[changelog]
path = "CHANGELOG.md"
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "3.0.0", cfg.InitialVersion)
	assert.Equal(t, "CHANGELOG.md", cfg.Changelog.Path)
}

func TestLoadFileUnknownKeysPreserved(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "nyx.yaml", `
initialVersion: 1.0.0
futureOption: keep-me
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.Contains(t, cfg.Extra, "futureOption")
	assert.Equal(t, "keep-me", cfg.Extra["futureOption"])
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFile(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	path := writeFile(t, dir, "nyx.ini", "a=b")
	_, err = LoadFile(path)
	require.Error(t, err)

	path = writeFile(t, dir, "bad.yaml", "{{{not yaml")
	_, err = LoadFile(path)
	require.Error(t, err)
}

func TestResolveLayerPriority(t *testing.T) {
	dir := t.TempDir()

	sharedPath := writeFile(t, dir, "shared.yaml", `
initialVersion: 0.2.0
releasePrefix: shared-
stateFile: shared-state.yml
`)
	explicitPath := writeFile(t, dir, "explicit.yaml", `
releasePrefix: v
`)

	cmdline := &Config{
		ConfigurationFile:       explicitPath,
		SharedConfigurationFile: sharedPath,
		InitialVersion:          "9.9.9",
	}

	cfg, err := Resolve(cmdline)
	require.NoError(t, err)

	// command-line wins over every file
	assert.Equal(t, "9.9.9", cfg.InitialVersion)
	// explicit file wins over shared
	assert.Equal(t, "v", cfg.ReleasePrefix)
	// shared file wins over defaults
	assert.Equal(t, "shared-state.yml", cfg.StateFile)
	// defaults fill the rest
	assert.Equal(t, "semver", cfg.Scheme)
}

func TestResolveAppliesPreset(t *testing.T) {
	cfg, err := Resolve(&Config{Preset: PresetExtended})
	require.NoError(t, err)

	assert.Contains(t, cfg.ReleaseTypes.Enabled, "mainline")
	assert.Contains(t, cfg.ReleaseTypes.Enabled, "internal")
	assert.Contains(t, cfg.CommitMessageConventions.Enabled, "conventionalCommits")
	require.Contains(t, cfg.Services, "github")
	assert.Equal(t, "GITHUB", cfg.Services["github"].Type)

	// preset types deep-merge over the default matrix
	assert.Contains(t, cfg.ReleaseTypes.Items, DefaultReleaseTypeName)
}

func TestResolveUnknownPreset(t *testing.T) {
	_, err := Resolve(&Config{Preset: "galactic"})
	require.Error(t, err)
}

func TestOverlayDeepMergesReleaseType(t *testing.T) {
	base := Defaults()
	layer := &Config{
		ReleaseTypes: ReleaseTypesConfig{
			Items: map[string]ReleaseTypeConfig{
				DefaultReleaseTypeName: {GitTag: "true"},
			},
		},
	}
	overlay(base, layer)

	def := base.ReleaseTypes.Items[DefaultReleaseTypeName]
	assert.Equal(t, "true", def.GitTag)
	// untouched fields survive the merge
	assert.Equal(t, "false", def.Publish)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{name: "bad scheme", mutate: func(c *Config) { c.Scheme = "calver" }, wantErr: true},
		{name: "bad verbosity", mutate: func(c *Config) { c.Verbosity = "shouting" }, wantErr: true},
		{name: "bad initial version", mutate: func(c *Config) { c.InitialVersion = "one.two" }, wantErr: true},
		{name: "bad version override", mutate: func(c *Config) { c.Version = "not-a-version" }, wantErr: true},
		{name: "named identifier bump is valid", mutate: func(c *Config) { c.Bump = "alpha" }},
		{name: "enabled convention missing", mutate: func(c *Config) {
			c.CommitMessageConventions.Enabled = []string{"ghost"}
		}, wantErr: true},
		{name: "enabled release type missing", mutate: func(c *Config) {
			c.ReleaseTypes.Enabled = []string{"ghost"}
		}, wantErr: true},
		{name: "bad workspace status", mutate: func(c *Config) {
			item := c.ReleaseTypes.Items[DefaultReleaseTypeName]
			item.MatchWorkspaceStatus = "MESSY"
			c.ReleaseTypes.Items[DefaultReleaseTypeName] = item
		}, wantErr: true},
		{name: "bad service type", mutate: func(c *Config) {
			c.Services = map[string]ServiceConfig{"svc": {Type: "SOURCEFORGE"}}
		}, wantErr: true},
		{name: "bad section regex", mutate: func(c *Config) {
			c.Changelog.Sections = NewOrderedPairs(Pair{Key: "Added", Value: "("})
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestPresetValidates(t *testing.T) {
	for _, preset := range []string{PresetSimple, PresetExtended, PresetExtendedGitFlow} {
		t.Run(preset, func(t *testing.T) {
			cfg, err := Resolve(&Config{Preset: preset})
			require.NoError(t, err)
			require.NoError(t, Validate(cfg))
		})
	}
}

func TestConfigHashStable(t *testing.T) {
	a, err := Resolve(&Config{Preset: PresetSimple})
	require.NoError(t, err)
	b, err := Resolve(&Config{Preset: PresetSimple})
	require.NoError(t, err)

	assert.NotEmpty(t, a.Hash())
	assert.Equal(t, a.Hash(), b.Hash())

	b.InitialVersion = "5.0.0"
	assert.NotEqual(t, a.Hash(), b.Hash())
}

func TestFromEnvironment(t *testing.T) {
	t.Setenv("NYX_PRESET", "simple")
	t.Setenv("NYX_DRY_RUN", "true")
	t.Setenv("NYX_STATE_FILE", "state.json")

	cfg := FromEnvironment(NewEnvironment())
	assert.Equal(t, "simple", cfg.Preset)
	assert.Equal(t, "state.json", cfg.StateFile)
	require.NotNil(t, cfg.DryRun)
	assert.True(t, *cfg.DryRun)
}

func TestOrderedPairs(t *testing.T) {
	var o OrderedPairs
	o.Set("b", "2")
	o.Set("a", "1")
	o.Set("b", "3")

	assert.Equal(t, 2, o.Len())
	v, ok := o.Get("b")
	require.True(t, ok)
	assert.Equal(t, "3", v)

	pairs := o.Pairs()
	assert.Equal(t, "b", pairs[0].Key)
	assert.Equal(t, "a", pairs[1].Key)

	_, ok = o.Get("missing")
	assert.False(t, ok)
}
