// Package git provides the narrow repository facade consumed by the release
// engine, deliberately small so it can be implemented over different
// backends.
package git

import (
	"context"

	"github.com/relicta-tech/nyx/internal/entities"
)

// DefaultRemoteName is the conventional default remote.
const DefaultRemoteName = "origin"

// Credentials carries the user name and password for a remote. With token
// authentication the token goes in either slot depending on the provider.
type Credentials struct {
	User     string
	Password string
}

// IsEmpty returns true when no credential material is present.
func (c Credentials) IsEmpty() bool {
	return c.User == "" && c.Password == ""
}

// Repository is the facade over a local git repository.
type Repository interface {
	// Add stages the given path globs.
	Add(ctx context.Context, paths []string) error

	// Commit commits staged changes with the given message and returns the
	// new commit.
	Commit(ctx context.Context, message string) (entities.Commit, error)

	// Tag tags the given object (HEAD when target is empty) with the given
	// name. A non-empty message produces an annotated tag.
	Tag(ctx context.Context, name, message string, target entities.SHA) (entities.Tag, error)

	// Push pushes the current branch and all tags to the named remote,
	// returning the remote name.
	Push(ctx context.Context, remote string, credentials Credentials) (string, error)

	// WalkHistory visits commits from start (HEAD when empty) to end (the
	// root when empty) in first-parent reverse-chronological order. The
	// visitor returns false to stop the walk.
	WalkHistory(ctx context.Context, start, end string, visit func(entities.Commit) bool) error

	// GetCommitTags returns the tags pointing at the given commit.
	GetCommitTags(ctx context.Context, commit string) ([]entities.Tag, error)

	// GetCurrentBranch returns the current branch name. The detached HEAD
	// state is an error.
	GetCurrentBranch(ctx context.Context) (string, error)

	// IsClean reports whether no differences exist between the working
	// tree, the index and HEAD.
	IsClean(ctx context.Context) (bool, error)

	// GetLatestCommit returns the HEAD commit identifier.
	GetLatestCommit(ctx context.Context) (entities.SHA, error)

	// GetRootCommit returns the first-parent root commit identifier.
	GetRootCommit(ctx context.Context) (entities.SHA, error)

	// GetRemoteNames returns the configured remote names.
	GetRemoteNames(ctx context.Context) ([]string, error)
}
