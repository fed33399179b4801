package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/changelog"
	"github.com/relicta-tech/nyx/internal/conventions"
	"github.com/relicta-tech/nyx/internal/entities"
	"github.com/relicta-tech/nyx/internal/release"
	"github.com/relicta-tech/nyx/internal/state"
	"github.com/relicta-tech/nyx/internal/version"
)

// Make builds the artifacts that require no network writes, primarily the
// changelog file.
func (p *Pipeline) Make(ctx context.Context) error {
	if err := p.machine.advance(eventMake, stateMade); err != nil {
		return err
	}
	if err := p.ensureSelection(ctx); err != nil {
		return err
	}

	if p.cfg.Changelog.Path == "" {
		log.Debug("no changelog path configured, nothing to make")
		p.state.RecordPhase(state.PhaseMake, p.state.Version, true)
		return p.saveState()
	}
	if !p.state.NewVersion {
		log.Info("no new version, nothing to make")
		p.state.RecordPhase(state.PhaseMake, p.state.Version, true)
		return p.saveState()
	}
	if p.state.PhaseSucceeded(state.PhaseMake, p.state.Version) {
		log.Info("skipping Make, already completed", "version", p.state.Version)
		return nil
	}

	doc, err := p.builder.Build(&p.cfg.Changelog, p.state.Version, p.significantCommits())
	if err != nil {
		return err
	}
	rendered, err := p.builder.Render(&p.cfg.Changelog, doc)
	if err != nil {
		return err
	}

	path := p.cfg.Changelog.Path
	if p.cfg.Directory != "" && !filepath.IsAbs(path) {
		path = filepath.Join(p.cfg.Directory, path)
	}

	if p.dryRun() {
		log.Info("dry run: would write changelog", "path", path)
		p.state.Changelog = &state.ChangelogState{Path: p.cfg.Changelog.Path}
	} else {
		written, err := changelog.Write(path, rendered)
		if err != nil {
			return err
		}
		p.state.Changelog = &state.ChangelogState{Path: p.cfg.Changelog.Path, Written: written}
		log.Info("changelog built", "path", path, "written", written)
	}

	p.state.RecordPhase(state.PhaseMake, p.state.Version, true)
	return p.saveState()
}

// significantCommits rebuilds the builder input from the serialized scope,
// so Make also works when Infer was skipped on resume.
func (p *Pipeline) significantCommits() []release.SignificantCommit {
	if p.state.ReleaseScope == nil {
		return nil
	}

	commits := make([]release.SignificantCommit, 0, len(p.state.ReleaseScope.SignificantCommits))
	for _, cs := range p.state.ReleaseScope.SignificantCommits {
		commit := entities.NewCommit(
			entities.SHA(cs.SHA),
			cs.Message,
			entities.Identity{Name: cs.AuthorName, Email: cs.AuthorEmail},
			entities.Identity{Name: cs.AuthorName, Email: cs.AuthorEmail},
			time.UnixMilli(cs.Date),
			nil,
			nil,
		)

		match := p.matcher.Describe(cs.Message)
		if match == nil {
			match = &conventions.Match{Type: cs.Type, Bump: version.Component(cs.Bump)}
		}
		commits = append(commits, release.SignificantCommit{Commit: commit, Match: *match})
	}
	return commits
}
