package conventions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/version"
)

func conventionalConfig(t *testing.T) *config.ConventionsConfig {
	t.Helper()
	cfg, err := config.Resolve(&config.Config{Preset: config.PresetSimple})
	require.NoError(t, err)
	return &cfg.CommitMessageConventions
}

func TestMatcherConventionalCommits(t *testing.T) {
	matcher, err := NewMatcher(conventionalConfig(t))
	require.NoError(t, err)

	tests := []struct {
		name     string
		message  string
		wantBump version.Component
		wantType string
		wantNil  bool
	}{
		{name: "feat is minor", message: "feat: add pipeline resume", wantBump: version.ComponentMinor, wantType: "feat"},
		{name: "fix is patch", message: "fix: npe in scope resolver", wantBump: version.ComponentPatch, wantType: "fix"},
		{name: "feat with scope", message: "feat(core): new walker", wantBump: version.ComponentMinor, wantType: "feat"},
		{name: "breaking marker is major", message: "feat!: drop legacy layout", wantBump: version.ComponentMajor, wantType: "feat"},
		{name: "breaking footer is major", message: "feat: change defaults\n\nBREAKING CHANGE: defaults differ", wantBump: version.ComponentMajor, wantType: "feat"},
		{name: "chore is insignificant", message: "chore: bump deps", wantNil: true},
		{name: "docs is insignificant", message: "docs: typo", wantNil: true},
		{name: "non conventional", message: "merged stuff", wantNil: true},
		{name: "empty", message: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			match := matcher.Match(tt.message)
			if tt.wantNil {
				assert.Nil(t, match)
				return
			}
			require.NotNil(t, match)
			assert.Equal(t, tt.wantBump, match.Bump)
			assert.Equal(t, tt.wantType, match.Type)
			assert.True(t, match.IsSignificant())
		})
	}
}

func TestMatcherCapturesGroups(t *testing.T) {
	matcher, err := NewMatcher(conventionalConfig(t))
	require.NoError(t, err)

	match := matcher.Match("feat(api)!: redesign endpoints")
	require.NotNil(t, match)
	assert.Equal(t, "feat", match.Type)
	assert.Equal(t, "api", match.Scope)
	assert.Equal(t, "redesign endpoints", match.Title)
	assert.True(t, match.Breaking)
	assert.Equal(t, version.ComponentMajor, match.Bump)
}

func TestMatcherFirstConventionWins(t *testing.T) {
	cfg := &config.ConventionsConfig{
		Enabled: []string{"strict", "loose"},
		Items: map[string]config.ConventionConfig{
			"strict": {
				Expression:      `^(?P<type>feat): (?P<title>.+)$`,
				BumpExpressions: map[string]string{"minor": `^feat: .*`},
			},
			"loose": {
				Expression:      `(?P<type>\w+): (?P<title>.+)`,
				BumpExpressions: map[string]string{"patch": `.*`},
			},
		},
	}
	matcher, err := NewMatcher(cfg)
	require.NoError(t, err)

	match := matcher.Match("feat: both match")
	require.NotNil(t, match)
	assert.Equal(t, "strict", match.Convention)
	assert.Equal(t, version.ComponentMinor, match.Bump)

	match = matcher.Match("fix: only loose")
	require.NotNil(t, match)
	assert.Equal(t, "loose", match.Convention)
	assert.Equal(t, version.ComponentPatch, match.Bump)
}

func TestDescribeMatchesInsignificantCommits(t *testing.T) {
	matcher, err := NewMatcher(conventionalConfig(t))
	require.NoError(t, err)

	match := matcher.Describe("chore: housekeeping")
	require.NotNil(t, match)
	assert.Equal(t, "chore", match.Type)
	assert.Equal(t, version.ComponentNone, match.Bump)
	assert.False(t, match.IsSignificant())
}

func TestNewMatcherErrors(t *testing.T) {
	_, err := NewMatcher(&config.ConventionsConfig{
		Enabled: []string{"ghost"},
	})
	require.Error(t, err)

	_, err = NewMatcher(&config.ConventionsConfig{
		Enabled: []string{"bad"},
		Items: map[string]config.ConventionConfig{
			"bad": {Expression: "("},
		},
	})
	require.Error(t, err)
}
