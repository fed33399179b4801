package git

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	gogit "github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/relicta-tech/nyx/internal/entities"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// tagCacheSize bounds the commit→tags cache used during history walks,
// where every visited commit queries the tag list.
const tagCacheSize = 4096

// GoGitRepository implements Repository over go-git.
type GoGitRepository struct {
	repo     *gogit.Repository
	tagCache *lru.Cache[string, []entities.Tag]
}

var _ Repository = (*GoGitRepository)(nil)

// Open returns a repository working in the given directory.
func Open(directory string) (*GoGitRepository, error) {
	const op = "git.Open"

	if strings.TrimSpace(directory) == "" {
		return nil, nyxerrors.Git(op, "repository directory cannot be blank")
	}
	repo, err := gogit.PlainOpen(directory)
	if err != nil {
		return nil, nyxerrors.GitWrap(err, op, "unable to open git repository in "+directory)
	}
	return newGoGitRepository(repo)
}

// Clone clones the repository at the given URI into the directory and
// returns it. Credentials may be empty for public repositories.
func Clone(directory, uri string, credentials Credentials) (*GoGitRepository, error) {
	const op = "git.Clone"

	if strings.TrimSpace(directory) == "" || strings.TrimSpace(uri) == "" {
		return nil, nyxerrors.Git(op, "clone requires a directory and a URI")
	}

	log.Debug("cloning repository", "uri", uri, "directory", directory)
	repo, err := gogit.PlainClone(directory, false, &gogit.CloneOptions{
		URL:  uri,
		Auth: basicAuth(credentials),
	})
	if err != nil {
		return nil, nyxerrors.GitWrap(nyxerrors.RedactError(err), op, "unable to clone "+uri)
	}
	return newGoGitRepository(repo)
}

func newGoGitRepository(repo *gogit.Repository) (*GoGitRepository, error) {
	cache, err := lru.New[string, []entities.Tag](tagCacheSize)
	if err != nil {
		return nil, nyxerrors.GitWrap(err, "git.Open", "unable to initialize the tag cache")
	}
	return &GoGitRepository{repo: repo, tagCache: cache}, nil
}

// basicAuth builds the HTTP basic authentication method, nil when no
// credentials were given. With token authentication the token may be passed
// as either the user or the password.
func basicAuth(credentials Credentials) *githttp.BasicAuth {
	if credentials.IsEmpty() {
		return nil
	}
	return &githttp.BasicAuth{Username: credentials.User, Password: credentials.Password}
}

// Add stages the given path globs.
func (r *GoGitRepository) Add(ctx context.Context, paths []string) error {
	const op = "git.Add"

	if len(paths) == 0 {
		return nyxerrors.Git(op, "cannot stage an empty set of paths")
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return nyxerrors.GitWrap(err, op, "unable to get the repository worktree")
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nyxerrors.Wrap(err, nyxerrors.KindCanceled, op, "staging canceled")
		}
		if err := worktree.AddWithOptions(&gogit.AddOptions{Glob: path}); err != nil {
			return nyxerrors.GitWrap(err, op, "unable to stage "+path)
		}
	}
	return nil
}

// Commit commits staged changes with the given message.
func (r *GoGitRepository) Commit(ctx context.Context, message string) (entities.Commit, error) {
	const op = "git.Commit"

	if message == "" {
		return entities.Commit{}, nyxerrors.Git(op, "cannot commit with an empty message")
	}
	worktree, err := r.repo.Worktree()
	if err != nil {
		return entities.Commit{}, nyxerrors.GitWrap(err, op, "unable to get the repository worktree")
	}
	hash, err := worktree.Commit(message, &gogit.CommitOptions{})
	if err != nil {
		return entities.Commit{}, nyxerrors.GitWrap(err, op, "commit failed")
	}
	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		return entities.Commit{}, nyxerrors.GitWrap(err, op, "unable to read back the new commit")
	}
	log.Debug("created commit", "sha", hash.String())
	return r.commitFrom(commit)
}

// Tag tags the given object, HEAD when the target is empty. A non-empty
// message produces an annotated tag.
func (r *GoGitRepository) Tag(ctx context.Context, name, message string, target entities.SHA) (entities.Tag, error) {
	const op = "git.Tag"

	if name == "" {
		return entities.Tag{}, nyxerrors.Git(op, "tag name cannot be empty")
	}

	var opts *gogit.CreateTagOptions
	if message != "" {
		// annotated tags carry options, lightweight tags must pass nil
		opts = &gogit.CreateTagOptions{Message: message}
	}

	targetHash := plumbing.NewHash(target.String())
	if target.IsEmpty() {
		head, err := r.GetLatestCommit(ctx)
		if err != nil {
			return entities.Tag{}, err
		}
		targetHash = plumbing.NewHash(head.String())
	}

	ref, err := r.repo.CreateTag(name, targetHash, opts)
	if err != nil {
		return entities.Tag{}, nyxerrors.GitWrap(err, op, "unable to create tag "+name)
	}

	// the target's cached tag list is stale now
	r.tagCache.Remove(targetHash.String())
	log.Debug("created tag", "name", name, "target", targetHash.String(), "annotated", message != "")
	return r.tagFrom(ref), nil
}

// Push pushes the current branch and all tags to the named remote.
func (r *GoGitRepository) Push(ctx context.Context, remote string, credentials Credentials) (string, error) {
	const op = "git.Push"

	if remote == "" {
		remote = DefaultRemoteName
	}
	head, err := r.repo.Head()
	if err != nil {
		return "", nyxerrors.GitWrap(err, op, "unable to resolve HEAD")
	}

	branchRefSpec := gogitconfig.RefSpec(head.Name() + ":" + head.Name())
	tagsRefSpec := gogitconfig.RefSpec("refs/tags/*:refs/tags/*")

	log.Debug("pushing", "remote", remote, "branch", head.Name().Short())
	err = r.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []gogitconfig.RefSpec{branchRefSpec, tagsRefSpec},
		Auth:       basicAuth(credentials),
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return "", nyxerrors.GitWrap(nyxerrors.RedactError(err), op, "unable to push to "+remote)
	}
	return remote, nil
}

// WalkHistory visits commits from start to end in first-parent order.
func (r *GoGitRepository) WalkHistory(ctx context.Context, start, end string, visit func(entities.Commit) bool) error {
	const op = "git.WalkHistory"

	if visit == nil {
		return nil
	}

	var commit *object.Commit
	if start == "" {
		head, err := r.GetLatestCommit(ctx)
		if err != nil {
			return err
		}
		start = head.String()
	}
	commit, err := r.repo.CommitObject(plumbing.NewHash(start))
	if err != nil {
		return nyxerrors.GitWrap(err, op, "the start commit "+start+" cannot be resolved")
	}

	if end != "" {
		if _, err := r.repo.CommitObject(plumbing.NewHash(end)); err != nil {
			return nyxerrors.GitWrap(err, op, "the end commit "+end+" cannot be resolved")
		}
	}

	for commit != nil {
		if err := ctx.Err(); err != nil {
			return nyxerrors.Wrap(err, nyxerrors.KindCanceled, op, "history walk canceled")
		}

		visited, err := r.commitFrom(commit)
		if err != nil {
			return err
		}
		if !visit(visited) {
			return nil
		}
		if end != "" && strings.HasPrefix(commit.Hash.String(), end) {
			return nil
		}
		if len(commit.ParentHashes) == 0 {
			return nil
		}
		// follow the first parent upon merge commits
		commit, err = r.repo.CommitObject(commit.ParentHashes[0])
		if err != nil {
			return nyxerrors.GitWrap(err, op, "error walking the commit history")
		}
	}
	return nil
}

// GetCommitTags returns the tags pointing at the given commit.
func (r *GoGitRepository) GetCommitTags(ctx context.Context, commit string) ([]entities.Tag, error) {
	const op = "git.GetCommitTags"

	if cached, ok := r.tagCache.Get(commit); ok {
		return cached, nil
	}

	var res []entities.Tag
	iter, err := r.repo.Tags()
	if err != nil {
		return nil, nyxerrors.GitWrap(err, op, "unable to list repository tags")
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		// annotated tags point at a tag object whose target is the commit;
		// lightweight tags point at the commit directly
		tagObject, err := r.repo.TagObject(ref.Hash())
		switch err {
		case nil:
			if strings.HasPrefix(tagObject.Target.String(), commit) {
				res = append(res, entities.NewAnnotatedTag(ref.Name().Short(), entities.SHA(tagObject.Target.String()), tagObject.Message))
			}
		case plumbing.ErrObjectNotFound:
			if strings.HasPrefix(ref.Hash().String(), commit) {
				res = append(res, entities.NewTag(ref.Name().Short(), entities.SHA(ref.Hash().String())))
			}
		default:
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nyxerrors.GitWrap(err, op, "error while listing repository tags")
	}

	r.tagCache.Add(commit, res)
	return res, nil
}

// GetCurrentBranch returns the current branch name; the detached HEAD state
// is an error.
func (r *GoGitRepository) GetCurrentBranch(ctx context.Context) (string, error) {
	const op = "git.GetCurrentBranch"

	head, err := r.repo.Head()
	if err != nil {
		return "", nyxerrors.GitWrap(err, op, "unable to resolve HEAD")
	}
	if !head.Name().IsBranch() {
		return "", nyxerrors.Git(op, "detached HEAD")
	}
	return head.Name().Short(), nil
}

// IsClean reports whether the working tree has no changes.
func (r *GoGitRepository) IsClean(ctx context.Context) (bool, error) {
	const op = "git.IsClean"

	worktree, err := r.repo.Worktree()
	if err != nil {
		return false, nyxerrors.GitWrap(err, op, "unable to get the repository worktree")
	}
	status, err := worktree.Status()
	if err != nil {
		return false, nyxerrors.GitWrap(err, op, "unable to get the worktree status")
	}
	return status.IsClean(), nil
}

// GetLatestCommit returns the HEAD commit identifier.
func (r *GoGitRepository) GetLatestCommit(ctx context.Context) (entities.SHA, error) {
	const op = "git.GetLatestCommit"

	head, err := r.repo.Head()
	if err != nil {
		return "", nyxerrors.GitWrap(err, op, "unable to resolve HEAD; the repository may have no commits yet")
	}
	return entities.SHA(head.Hash().String()), nil
}

// GetRootCommit returns the first-parent root commit identifier.
func (r *GoGitRepository) GetRootCommit(ctx context.Context) (entities.SHA, error) {
	const op = "git.GetRootCommit"

	head, err := r.repo.Head()
	if err != nil {
		return "", nyxerrors.GitWrap(err, op, "unable to resolve HEAD")
	}
	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return "", nyxerrors.GitWrap(err, op, "unable to resolve the HEAD commit")
	}
	for len(commit.ParentHashes) > 0 {
		if err := ctx.Err(); err != nil {
			return "", nyxerrors.Wrap(err, nyxerrors.KindCanceled, op, "root lookup canceled")
		}
		commit, err = r.repo.CommitObject(commit.ParentHashes[0])
		if err != nil {
			return "", nyxerrors.GitWrap(err, op, "error walking the commit history")
		}
	}
	return entities.SHA(commit.Hash.String()), nil
}

// GetRemoteNames returns the configured remote names.
func (r *GoGitRepository) GetRemoteNames(ctx context.Context) ([]string, error) {
	const op = "git.GetRemoteNames"

	remotes, err := r.repo.Remotes()
	if err != nil {
		return nil, nyxerrors.GitWrap(err, op, "unable to list remotes")
	}
	names := make([]string, len(remotes))
	for i, remote := range remotes {
		names[i] = remote.Config().Name
	}
	return names, nil
}

func (r *GoGitRepository) commitFrom(c *object.Commit) (entities.Commit, error) {
	tags, err := r.GetCommitTags(context.Background(), c.Hash.String())
	if err != nil {
		return entities.Commit{}, err
	}

	parents := make([]entities.SHA, len(c.ParentHashes))
	for i, parent := range c.ParentHashes {
		parents[i] = entities.SHA(parent.String())
	}

	return entities.NewCommit(
		entities.SHA(c.Hash.String()),
		c.Message,
		entities.Identity{Name: c.Author.Name, Email: c.Author.Email},
		entities.Identity{Name: c.Committer.Name, Email: c.Committer.Email},
		c.Committer.When,
		parents,
		tags,
	), nil
}

func (r *GoGitRepository) tagFrom(ref *plumbing.Reference) entities.Tag {
	tagObject, err := r.repo.TagObject(ref.Hash())
	if err == nil {
		return entities.NewAnnotatedTag(ref.Name().Short(), entities.SHA(tagObject.Target.String()), tagObject.Message)
	}
	return entities.NewTag(ref.Name().Short(), entities.SHA(ref.Hash().String()))
}
