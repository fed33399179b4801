package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/relicta-tech/nyx/internal/entities"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/git"
	"github.com/relicta-tech/nyx/internal/state"
)

// Mark performs the git side effects anchoring the release: the optional
// release commit, the tag, and the pushes to the configured remotes.
func (p *Pipeline) Mark(ctx context.Context) error {
	if err := p.machine.advance(eventMark, stateMarked); err != nil {
		return err
	}
	if err := p.ensureSelection(ctx); err != nil {
		return err
	}

	if !p.state.NewVersion {
		log.Info("no new version, nothing to mark")
		p.state.RecordPhase(state.PhaseMark, p.state.Version, true)
		return p.saveState()
	}
	if p.state.PhaseSucceeded(state.PhaseMark, p.state.Version) {
		log.Info("skipping Mark, already completed", "version", p.state.Version)
		return nil
	}

	tctx := p.state.TemplateContext()
	target := entities.SHA(p.finalCommit())

	if p.engine.ToBoolean(p.selection.Type.GitCommit, tctx) {
		sha, committed, err := p.commitArtifacts(ctx, tctx)
		if err != nil {
			return err
		}
		if committed {
			target = sha
		}
	}

	if p.engine.ToBoolean(p.selection.Type.GitTag, tctx) {
		if err := p.tagRelease(ctx, tctx, target); err != nil {
			return err
		}
	}

	if p.engine.ToBoolean(p.selection.Type.GitPush, tctx) {
		if err := p.pushRemotes(ctx, tctx); err != nil {
			return err
		}
	}

	p.state.RecordPhase(state.PhaseMark, p.state.Version, true)
	return p.saveState()
}

func (p *Pipeline) finalCommit() string {
	if p.state.ReleaseScope != nil {
		return p.state.ReleaseScope.FinalCommit
	}
	return ""
}

// commitArtifacts stages the changelog artifact, when one exists on disk,
// and commits it with the resolved message.
func (p *Pipeline) commitArtifacts(ctx context.Context, tctx map[string]any) (entities.SHA, bool, error) {
	path := p.cfg.Changelog.Path
	if path == "" {
		return "", false, nil
	}
	fullPath := path
	if p.cfg.Directory != "" && !filepath.IsAbs(path) {
		fullPath = filepath.Join(p.cfg.Directory, path)
	}
	if _, err := os.Stat(fullPath); err != nil {
		log.Debug("no changelog artifact to commit", "path", fullPath)
		return "", false, nil
	}

	message := p.selection.Type.GitCommitMessage
	if message == "" {
		message = "Release version {{version}}"
	}
	resolved, err := p.engine.Render(message, tctx)
	if err != nil {
		return "", false, err
	}

	if p.dryRun() {
		log.Info("dry run: would commit release artifacts", "paths", path, "message", resolved)
		return "", false, nil
	}

	if err := p.repo.Add(ctx, []string{path}); err != nil {
		return "", false, err
	}
	commit, err := p.repo.Commit(ctx, resolved)
	if err != nil {
		return "", false, err
	}
	log.Info("committed release artifacts", "sha", commit.ShortSHA())
	return commit.SHA(), true, nil
}

// tagRelease tags the release anchor commit. A non-empty resolved message
// produces an annotated tag.
func (p *Pipeline) tagRelease(ctx context.Context, tctx map[string]any, target entities.SHA) error {
	name := p.cfg.ReleasePrefix + p.state.Version

	message := ""
	if p.selection.Type.GitTagMessage != "" {
		var err error
		message, err = p.engine.Render(p.selection.Type.GitTagMessage, tctx)
		if err != nil {
			return err
		}
	}

	if p.dryRun() {
		log.Info("dry run: would create tag", "tag", name, "target", target.Short(), "annotated", message != "")
		return nil
	}

	if _, err := p.repo.Tag(ctx, name, message, target); err != nil {
		return err
	}
	log.Info("created release tag", "tag", name, "target", target.Short())
	return nil
}

// pushRemotes pushes the branch and tags to every configured remote, in
// parallel. Errors aggregate, the state is only touched after all remotes
// complete, and outcomes are logged in name order.
func (p *Pipeline) pushRemotes(ctx context.Context, tctx map[string]any) error {
	remotes := p.cfg.ReleaseTypes.RemoteRepositories
	if len(remotes) == 0 {
		remotes = []string{git.DefaultRemoteName}
	}

	if p.dryRun() {
		for _, remote := range remotes {
			log.Info("dry run: would push", "remote", remote)
		}
		return nil
	}

	var mu sync.Mutex
	outcomes := make(map[string]error, len(remotes))

	group, groupCtx := errgroup.WithContext(ctx)
	for _, remote := range remotes {
		group.Go(func() error {
			credentials, err := p.remoteCredentials(remote, tctx)
			if err == nil {
				_, err = p.repo.Push(groupCtx, remote, credentials)
			}
			mu.Lock()
			outcomes[remote] = err
			mu.Unlock()
			return err
		})
	}
	pushErr := group.Wait()

	names := make([]string, 0, len(outcomes))
	for name := range outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := outcomes[name]; err != nil {
			log.Error("push failed", "remote", name, "error", nyxerrors.RedactError(err))
		} else {
			log.Info("pushed", "remote", name)
		}
	}

	return pushErr
}

func (p *Pipeline) remoteCredentials(remote string, tctx map[string]any) (git.Credentials, error) {
	remoteCfg, ok := p.cfg.Git.Remotes[remote]
	if !ok {
		return git.Credentials{}, nil
	}

	user, err := p.engine.Render(remoteCfg.User, tctx)
	if err != nil {
		return git.Credentials{}, err
	}
	password, err := p.engine.Render(remoteCfg.Password, tctx)
	if err != nil {
		return git.Credentials{}, err
	}
	return git.Credentials{User: user, Password: password}, nil
}
