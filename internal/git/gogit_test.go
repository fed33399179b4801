package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relicta-tech/nyx/internal/entities"
)

// testRepo builds a throwaway repository on disk.
type testRepo struct {
	t    *testing.T
	dir  string
	repo *gogit.Repository
	seq  int
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return &testRepo{t: t, dir: dir, repo: repo}
}

func (r *testRepo) commit(message string) string {
	r.t.Helper()
	r.seq++

	name := filepath.Join(r.dir, "file.txt")
	require.NoError(r.t, os.WriteFile(name, []byte(message), 0o644))

	worktree, err := r.repo.Worktree()
	require.NoError(r.t, err)
	_, err = worktree.Add("file.txt")
	require.NoError(r.t, err)

	sig := &object.Signature{
		Name:  "Test Author",
		Email: "author@example.com",
		When:  time.Date(2026, 1, 1, 0, 0, r.seq, 0, time.UTC),
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	require.NoError(r.t, err)
	return hash.String()
}

func (r *testRepo) tag(name, target string, annotated bool) {
	r.t.Helper()
	var opts *gogit.CreateTagOptions
	if annotated {
		opts = &gogit.CreateTagOptions{
			Message: name,
			Tagger:  &object.Signature{Name: "Tagger", Email: "tagger@example.com", When: time.Now()},
		}
	}
	_, err := r.repo.CreateTag(name, plumbing.NewHash(target), opts)
	require.NoError(r.t, err)
}

func (r *testRepo) open() *GoGitRepository {
	r.t.Helper()
	repo, err := Open(r.dir)
	require.NoError(r.t, err)
	return repo
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("")
	require.Error(t, err)

	_, err = Open(t.TempDir())
	require.Error(t, err)
}

func TestGetLatestAndRootCommit(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	first := fixture.commit("chore: initial")
	fixture.commit("feat: middle")
	last := fixture.commit("fix: latest")

	repo := fixture.open()

	head, err := repo.GetLatestCommit(ctx)
	require.NoError(t, err)
	assert.Equal(t, last, head.String())

	root, err := repo.GetRootCommit(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, root.String())
}

func TestGetLatestCommitEmptyRepository(t *testing.T) {
	dir := t.TempDir()
	_, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	repo, err := Open(dir)
	require.NoError(t, err)

	_, err = repo.GetLatestCommit(context.Background())
	require.Error(t, err)
}

func TestGetCurrentBranch(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	fixture.commit("chore: initial")

	repo := fixture.open()
	branch, err := repo.GetCurrentBranch(ctx)
	require.NoError(t, err)
	assert.Contains(t, []string{"master", "main"}, branch)
}

func TestGetCurrentBranchDetachedHead(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	sha := fixture.commit("chore: initial")
	fixture.commit("feat: more")

	worktree, err := fixture.repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, worktree.Checkout(&gogit.CheckoutOptions{Hash: plumbing.NewHash(sha)}))

	repo := fixture.open()
	_, err = repo.GetCurrentBranch(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "detached HEAD")
}

func TestIsClean(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	fixture.commit("chore: initial")

	repo := fixture.open()
	clean, err := repo.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(fixture.dir, "dirty.txt"), []byte("x"), 0o644))
	clean, err = repo.IsClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean)
}

func TestGetCommitTags(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	first := fixture.commit("chore: initial")
	second := fixture.commit("feat: more")
	fixture.tag("1.0.0", first, false)
	fixture.tag("1.1.0", second, true)

	repo := fixture.open()

	tags, err := repo.GetCommitTags(ctx, first)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "1.0.0", tags[0].Name())
	assert.False(t, tags[0].IsAnnotated())

	tags, err = repo.GetCommitTags(ctx, second)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "1.1.0", tags[0].Name())
	assert.True(t, tags[0].IsAnnotated())
	assert.Equal(t, second, tags[0].Target().String())

	// cached lookups return the same answer
	tags, err = repo.GetCommitTags(ctx, second)
	require.NoError(t, err)
	require.Len(t, tags, 1)
}

func TestWalkHistoryOrderAndBoundaries(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	first := fixture.commit("one")
	second := fixture.commit("two")
	third := fixture.commit("three")

	repo := fixture.open()

	var visited []string
	err := repo.WalkHistory(ctx, "", "", func(c entities.Commit) bool {
		visited = append(visited, c.SHA().String())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{third, second, first}, visited)

	// end boundary is inclusive
	visited = nil
	err = repo.WalkHistory(ctx, "", second, func(c entities.Commit) bool {
		visited = append(visited, c.SHA().String())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{third, second}, visited)

	// visitor can stop the walk
	visited = nil
	err = repo.WalkHistory(ctx, "", "", func(c entities.Commit) bool {
		visited = append(visited, c.SHA().String())
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{third}, visited)
}

func TestWalkHistoryFollowsFirstParent(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	first := fixture.commit("one")
	second := fixture.commit("two")

	repo := fixture.open()

	var visited []string
	err := repo.WalkHistory(ctx, second, "", func(c entities.Commit) bool {
		visited = append(visited, c.SHA().String())
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, []string{second, first}, visited)
}

func TestTagCreation(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	sha := fixture.commit("feat: tag me")

	repo := fixture.open()

	lightweight, err := repo.Tag(ctx, "2.0.0", "", "")
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", lightweight.Name())
	assert.False(t, lightweight.IsAnnotated())

	annotated, err := repo.Tag(ctx, "2.0.0+annotated", "Release 2.0.0", entities.SHA(sha))
	require.NoError(t, err)
	assert.True(t, annotated.IsAnnotated())
	assert.Equal(t, "Release 2.0.0", annotated.Message())

	// duplicate names fail
	_, err = repo.Tag(ctx, "2.0.0", "", "")
	require.Error(t, err)

	// the tag cache reflects the new tags
	tags, err := repo.GetCommitTags(ctx, sha)
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestAddAndCommit(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	fixture.commit("chore: initial")

	repo := fixture.open()

	require.NoError(t, os.WriteFile(filepath.Join(fixture.dir, "CHANGELOG.md"), []byte("# Changelog"), 0o644))
	require.NoError(t, repo.Add(ctx, []string{"CHANGELOG.md"}))

	commit, err := repo.Commit(ctx, "Release version 1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "Release version 1.0.0", commit.Message())

	clean, err := repo.IsClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)

	_, err = repo.Commit(ctx, "")
	require.Error(t, err)
}

func TestGetRemoteNames(t *testing.T) {
	ctx := context.Background()
	fixture := newTestRepo(t)
	fixture.commit("chore: initial")

	repo := fixture.open()
	names, err := repo.GetRemoteNames(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}
