package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/entities"
	"github.com/relicta-tech/nyx/internal/release"
	"github.com/relicta-tech/nyx/internal/version"
)

func sampleState(t *testing.T) *State {
	t.Helper()

	cfg, err := config.Resolve(&config.Config{Preset: config.PresetSimple})
	require.NoError(t, err)

	s := New()
	s.Branch = "main"
	s.Bump = "minor"
	s.Configuration = cfg
	s.ConfigurationHash = cfg.Hash()
	s.Directory = "/work/repo"
	s.NewVersion = true
	s.NewRelease = true
	s.ReleaseType = "mainline"
	s.Scheme = "semver"
	s.Version = "1.3.0"
	s.ReleaseScope = &ScopeState{
		PreviousVersion:       "1.2.0",
		PreviousVersionCommit: "aaaa",
		PrimeVersion:          "1.2.0",
		FinalCommit:           "bbbb",
	}
	s.RecordPhase(PhaseInfer, "1.3.0", true)
	return s
}

func TestNewState(t *testing.T) {
	s := New()
	assert.NotEmpty(t, s.RunID)
	assert.NotZero(t, s.Timestamp)
	assert.NotNil(t, s.Phases)
}

func TestPhaseRecording(t *testing.T) {
	s := New()
	assert.False(t, s.PhaseSucceeded(PhaseMark, "1.0.0"))

	s.RecordPhase(PhaseMark, "1.0.0", true)
	assert.True(t, s.PhaseSucceeded(PhaseMark, "1.0.0"))
	// a different version invalidates the recorded success
	assert.False(t, s.PhaseSucceeded(PhaseMark, "1.0.1"))

	s.RecordPhase(PhasePublish, "1.0.0", false)
	assert.False(t, s.PhaseSucceeded(PhasePublish, "1.0.0"))
}

func TestInvalidateComputed(t *testing.T) {
	s := sampleState(t)
	runID := s.RunID
	s.InvalidateComputed()

	assert.Empty(t, s.Version)
	assert.Empty(t, s.Branch)
	assert.Nil(t, s.ReleaseScope)
	assert.False(t, s.NewVersion)
	// identity and phase history survive
	assert.Equal(t, runID, s.RunID)
	assert.True(t, s.PhaseSucceeded(PhaseInfer, "1.3.0"))
}

func TestSetScope(t *testing.T) {
	s := New()

	commit := entities.NewCommit("cafe", "feat: thing",
		entities.Identity{Name: "A", Email: "a@example.com"},
		entities.Identity{Name: "A", Email: "a@example.com"},
		time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC), nil, nil)

	scope := &release.Scope{
		PreviousVersion:       version.MustParse("1.0.0"),
		PreviousVersionCommit: "aaaa",
		PrimeVersion:          version.MustParse("1.0.0"),
		FinalCommit:           "cafe",
	}
	scope.SignificantCommits = []release.SignificantCommit{{Commit: commit}}
	s.SetScope(scope)

	require.NotNil(t, s.ReleaseScope)
	assert.Equal(t, "1.0.0", s.ReleaseScope.PreviousVersion)
	assert.Equal(t, "cafe", s.ReleaseScope.FinalCommit)
	require.Len(t, s.ReleaseScope.SignificantCommits, 1)
	assert.Equal(t, "feat: thing", s.ReleaseScope.SignificantCommits[0].Message)
}

func TestTemplateContext(t *testing.T) {
	s := sampleState(t)
	ctx := s.TemplateContext()

	assert.Equal(t, "main", ctx["branch"])
	assert.Equal(t, "1.3.0", ctx["version"])

	scope, ok := ctx["releaseScope"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bbbb", scope["finalCommit"])

	configuration, ok := ctx["configuration"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0.1.0", configuration["initialVersion"])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	for _, ext := range []string{"yml", "yaml", "json"} {
		t.Run(ext, func(t *testing.T) {
			s := sampleState(t)
			path := filepath.Join(t.TempDir(), "state."+ext)

			require.NoError(t, Save(s, path))

			loaded, err := Load(path)
			require.NoError(t, err)

			assert.Equal(t, s.Branch, loaded.Branch)
			assert.Equal(t, s.Version, loaded.Version)
			assert.Equal(t, s.RunID, loaded.RunID)
			assert.Equal(t, s.ConfigurationHash, loaded.ConfigurationHash)
			assert.Equal(t, s.NewRelease, loaded.NewRelease)
			require.NotNil(t, loaded.ReleaseScope)
			assert.Equal(t, "1.2.0", loaded.ReleaseScope.PreviousVersion)
			assert.True(t, loaded.PhaseSucceeded(PhaseInfer, "1.3.0"))
			require.NotNil(t, loaded.Configuration)
			assert.Equal(t, "0.1.0", loaded.Configuration.InitialVersion)

			// a second save of the loaded state is stable
			second := filepath.Join(t.TempDir(), "state2."+ext)
			require.NoError(t, Save(loaded, second))
			reloaded, err := Load(second)
			require.NoError(t, err)
			assert.Equal(t, loaded.Version, reloaded.Version)
		})
	}
}

func TestUnknownFieldsSurviveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "version": "1.0.0",
  "futureField": {"nested": true}
}`), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", s.Version)
	require.Contains(t, s.Extra, "futureField")

	// mutate and save: the unknown field is written back
	s.Version = "1.1.0"
	out := filepath.Join(dir, "state2.json")
	require.NoError(t, Save(s, out))

	reloaded, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", reloaded.Version)
	assert.Contains(t, reloaded.Extra, "futureField")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{{{"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}
