package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/entities"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/git"
	"github.com/relicta-tech/nyx/internal/services"
	"github.com/relicta-tech/nyx/internal/state"
)

// fakeRepo is a mutable in-memory Repository, newest commit first.
type fakeRepo struct {
	branch  string
	clean   bool
	commits []entities.Commit

	createdTags []entities.Tag
	pushed      []string
	committed   []string
}

var _ git.Repository = (*fakeRepo)(nil)

var fakeSeq int

func fakeCommit(message string, tags ...entities.Tag) entities.Commit {
	fakeSeq++
	return entities.NewCommit(
		entities.SHA(fmt.Sprintf("%040d", fakeSeq)),
		message,
		entities.Identity{Name: "Author", Email: "author@example.com"},
		entities.Identity{Name: "Author", Email: "author@example.com"},
		time.Date(2026, 1, 1, 0, 0, fakeSeq, 0, time.UTC),
		nil,
		tags,
	)
}

func (f *fakeRepo) Add(ctx context.Context, paths []string) error { return nil }

func (f *fakeRepo) Commit(ctx context.Context, message string) (entities.Commit, error) {
	commit := fakeCommit(message)
	f.commits = append([]entities.Commit{commit}, f.commits...)
	f.committed = append(f.committed, message)
	return commit, nil
}

func (f *fakeRepo) Tag(ctx context.Context, name, message string, target entities.SHA) (entities.Tag, error) {
	tag := entities.NewTag(name, target)
	if message != "" {
		tag = entities.NewAnnotatedTag(name, target, message)
	}
	f.createdTags = append(f.createdTags, tag)
	return tag, nil
}

func (f *fakeRepo) Push(ctx context.Context, remote string, credentials git.Credentials) (string, error) {
	f.pushed = append(f.pushed, remote)
	return remote, nil
}

func (f *fakeRepo) WalkHistory(ctx context.Context, start, end string, visit func(entities.Commit) bool) error {
	started := start == ""
	for _, commit := range f.commits {
		if !started {
			if commit.SHA().String() == start {
				started = true
			} else {
				continue
			}
		}
		if !visit(commit) {
			return nil
		}
		if end != "" && commit.SHA().String() == end {
			return nil
		}
	}
	return nil
}

func (f *fakeRepo) GetCommitTags(ctx context.Context, commit string) ([]entities.Tag, error) {
	for _, c := range f.commits {
		if c.SHA().String() == commit {
			return c.Tags(), nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) GetCurrentBranch(ctx context.Context) (string, error) { return f.branch, nil }

func (f *fakeRepo) IsClean(ctx context.Context) (bool, error) { return f.clean, nil }

func (f *fakeRepo) GetLatestCommit(ctx context.Context) (entities.SHA, error) {
	if len(f.commits) == 0 {
		return "", nyxerrors.Git("git.GetLatestCommit", "the repository has no commits")
	}
	return f.commits[0].SHA(), nil
}

func (f *fakeRepo) GetRootCommit(ctx context.Context) (entities.SHA, error) {
	if len(f.commits) == 0 {
		return "", nyxerrors.Git("git.GetRootCommit", "the repository has no commits")
	}
	return f.commits[len(f.commits)-1].SHA(), nil
}

func (f *fakeRepo) GetRemoteNames(ctx context.Context) ([]string, error) {
	return []string{"origin"}, nil
}

// fakeService records publications and can be told to fail.
type fakeService struct {
	name     string
	fail     bool
	created  []services.Release
	existing map[string]*services.Release
}

var _ services.Service = (*fakeService)(nil)

func (s *fakeService) Name() string                { return s.name }
func (s *fakeService) Provider() services.Provider { return services.ProviderGitHub }
func (s *fakeService) Supports(c services.Capability) bool {
	return c == services.CapabilityReleases || c == services.CapabilityUsers
}

func (s *fakeService) GetAuthenticatedUser(ctx context.Context) (*services.User, error) {
	return &services.User{Login: "robot"}, nil
}

func (s *fakeService) GetReleaseByTag(ctx context.Context, tag string) (*services.Release, error) {
	if release, ok := s.existing[tag]; ok {
		return release, nil
	}
	return nil, nil
}

func (s *fakeService) CreateRelease(ctx context.Context, title, tag, body string) (*services.Release, error) {
	if s.fail {
		return nil, nyxerrors.Service("services.fake.CreateRelease", "HTTP 502")
	}
	release := services.Release{Title: title, Tag: tag, Body: body, URL: "https://example.com/" + tag}
	s.created = append(s.created, release)
	return &release, nil
}

func (s *fakeService) PublishReleaseAssets(ctx context.Context, release *services.Release, assets []services.Asset) error {
	return nil
}

// testConfig builds an extended-preset configuration against a temp
// directory with a state file and one publication service.
func testConfig(t *testing.T, dir string) *config.Config {
	t.Helper()
	cfg, err := config.Resolve(&config.Config{
		Preset:    config.PresetExtended,
		Directory: dir,
		StateFile: filepath.Join(dir, "state.yml"),
	})
	require.NoError(t, err)
	cfg.ReleaseTypes.PublicationServices = []string{"github"}
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, repo git.Repository, svc *fakeService) *Pipeline {
	t.Helper()
	p, err := New(cfg, repo,
		WithServiceFactory(func(name string, _ config.ServiceConfig, _ services.Options) (services.Service, error) {
			return svc, nil
		}),
		WithEnvironment(func(string) string { return "" }),
	)
	require.NoError(t, err)
	return p
}

func TestRunPatchRelease(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Changelog.Path = "CHANGELOG.md"
	cfg.Changelog.Sections = config.NewOrderedPairs(
		config.Pair{Key: "Fixed", Value: "^fix$"},
	)

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}
	svc := &fakeService{name: "github"}

	p := newPipeline(t, cfg, repo, svc)
	require.NoError(t, p.Run(context.Background()))

	s := p.State()
	assert.Equal(t, "1.2.4", s.Version)
	assert.True(t, s.NewVersion)
	assert.True(t, s.NewRelease)
	assert.Equal(t, "mainline", s.ReleaseType)
	assert.Equal(t, "patch", s.Bump)

	// Mark created the tag and pushed
	require.Len(t, repo.createdTags, 1)
	assert.Equal(t, "1.2.4", repo.createdTags[0].Name())
	assert.True(t, repo.createdTags[0].IsAnnotated())
	assert.Equal(t, []string{"origin"}, repo.pushed)

	// Make produced the changelog
	data, err := os.ReadFile(filepath.Join(dir, "CHANGELOG.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "npe")

	// Publish created the hosted release with the changelog body
	require.Len(t, svc.created, 1)
	assert.Equal(t, "1.2.4", svc.created[0].Tag)
	assert.Contains(t, svc.created[0].Body, "npe")

	// the state was checkpointed
	_, err = os.Stat(cfg.StateFile)
	require.NoError(t, err)
}

func TestInferIsPure(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.StateFile = ""

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}

	first := newPipeline(t, cfg, repo, &fakeService{name: "github"})
	require.NoError(t, first.Infer(context.Background()))

	second := newPipeline(t, cfg, repo, &fakeService{name: "github"})
	require.NoError(t, second.Infer(context.Background()))

	a, b := first.State(), second.State()
	assert.Equal(t, a.Version, b.Version)
	assert.Equal(t, a.Bump, b.Bump)
	assert.Equal(t, a.ReleaseType, b.ReleaseType)
	assert.Equal(t, a.ReleaseScope, b.ReleaseScope)
	assert.Equal(t, a.ConfigurationHash, b.ConfigurationHash)

	// no side effects happened
	assert.Empty(t, repo.createdTags)
	assert.Empty(t, repo.pushed)
}

func TestNoMatchingTypeDisablesSideEffects(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	// only mainline enabled: a topic branch matches nothing
	cfg.ReleaseTypes.Enabled = []string{"mainline"}

	repo := &fakeRepo{branch: "topic/foo", clean: true, commits: []entities.Commit{
		fakeCommit("feat: something"),
	}}
	svc := &fakeService{name: "github"}

	p := newPipeline(t, cfg, repo, svc)
	require.NoError(t, p.Run(context.Background()))

	s := p.State()
	assert.Equal(t, config.DefaultReleaseTypeName, s.ReleaseType)
	assert.False(t, s.NewRelease)
	assert.Empty(t, repo.createdTags)
	assert.Empty(t, repo.pushed)
	assert.Empty(t, svc.created)
}

func TestNoSignificantCommitsNoTag(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("docs: readme"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}
	svc := &fakeService{name: "github"}

	p := newPipeline(t, cfg, repo, svc)
	require.NoError(t, p.Run(context.Background()))

	s := p.State()
	assert.Equal(t, "1.2.3", s.Version)
	assert.False(t, s.NewVersion)
	assert.Empty(t, repo.createdTags)
	assert.Empty(t, svc.created)
}

func TestDryRunMakesNoWritesBesidesState(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.DryRun = config.BoolPtr(true)
	cfg.Changelog.Path = "CHANGELOG.md"
	cfg.Changelog.Sections = config.NewOrderedPairs(config.Pair{Key: "Fixed", Value: "^fix$"})

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}
	svc := &fakeService{name: "github"}

	p := newPipeline(t, cfg, repo, svc)
	require.NoError(t, p.Run(context.Background()))

	assert.Empty(t, repo.createdTags)
	assert.Empty(t, repo.pushed)
	assert.Empty(t, svc.created)

	_, err := os.Stat(filepath.Join(dir, "CHANGELOG.md"))
	assert.True(t, os.IsNotExist(err))

	// the state file is the one permitted write
	_, err = os.Stat(cfg.StateFile)
	require.NoError(t, err)
}

func TestResumeRetriesPublishOnly(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}

	// first run: publication fails
	failing := &fakeService{name: "github", fail: true}
	first := newPipeline(t, cfg, repo, failing)
	err := first.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, nyxerrors.KindService, nyxerrors.GetKind(err))
	require.Len(t, repo.createdTags, 1)

	// second run resumes: Infer/Mark/Make are skipped, Publish retried
	cfg.Resume = config.BoolPtr(true)
	working := &fakeService{name: "github"}
	second := newPipeline(t, cfg, repo, working)
	require.NoError(t, second.Run(context.Background()))

	assert.Equal(t, "1.2.4", second.State().Version)
	// Mark did not run again
	assert.Len(t, repo.createdTags, 1)
	require.Len(t, working.created, 1)
	assert.Equal(t, "1.2.4", working.created[0].Tag)
}

func TestResumeInvalidatesOnNewCommit(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}
	svc := &fakeService{name: "github"}

	first := newPipeline(t, cfg, repo, svc)
	require.NoError(t, first.Infer(context.Background()))
	assert.Equal(t, "1.2.4", first.State().Version)

	// a new commit lands before the resumed run
	repo.commits = append([]entities.Commit{fakeCommit("feat: shiny")}, repo.commits...)

	cfg.Resume = config.BoolPtr(true)
	second := newPipeline(t, cfg, repo, svc)
	require.NoError(t, second.Infer(context.Background()))
	assert.Equal(t, "1.3.0", second.State().Version)
}

func TestPublishSkipsExistingRelease(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}
	svc := &fakeService{name: "github", existing: map[string]*services.Release{
		"1.2.4": {Tag: "1.2.4"},
	}}

	p := newPipeline(t, cfg, repo, svc)
	require.NoError(t, p.Run(context.Background()))

	assert.Empty(t, svc.created)
	assert.True(t, p.State().PhaseSucceeded(state.PhasePublish, "1.2.4"))
}

func TestVersionOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.Version = "9.9.9"

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}

	p := newPipeline(t, cfg, repo, &fakeService{name: "github"})
	require.NoError(t, p.Infer(context.Background()))

	s := p.State()
	assert.Equal(t, "9.9.9", s.Version)
	assert.True(t, s.OverriddenVersion)
	// the scope is still computed from history
	require.NotNil(t, s.ReleaseScope)
	assert.Equal(t, "1.2.3", s.ReleaseScope.PreviousVersion)
}

func TestSummary(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t, dir)
	cfg.SummaryFile = filepath.Join(dir, "summary.txt")

	repo := &fakeRepo{branch: "main", clean: true, commits: []entities.Commit{
		fakeCommit("fix: npe"),
		fakeCommit("feat: older", entities.NewTag("1.2.3", "")),
	}}

	p := newPipeline(t, cfg, repo, &fakeService{name: "github"})
	require.NoError(t, p.Infer(context.Background()))

	summary := p.Summary()
	assert.Contains(t, summary, "branch")
	assert.Contains(t, summary, "main")
	assert.Contains(t, summary, "1.2.4")

	data, err := os.ReadFile(cfg.SummaryFile)
	require.NoError(t, err)
	assert.Equal(t, summary, string(data))
}
