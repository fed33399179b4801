package pipeline

import (
	"context"
	"os"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/changelog"
	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/conventions"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/git"
	"github.com/relicta-tech/nyx/internal/release"
	"github.com/relicta-tech/nyx/internal/services"
	"github.com/relicta-tech/nyx/internal/state"
	"github.com/relicta-tech/nyx/internal/template"
	"github.com/relicta-tech/nyx/internal/version"
)

// ServiceFactory builds a hosting service from its resolved configuration.
// Injectable for tests.
type ServiceFactory func(name string, cfg config.ServiceConfig, options services.Options) (services.Service, error)

// Pipeline drives the four release phases over a repository. It exclusively
// owns the State for the duration of a run.
type Pipeline struct {
	cfg     *config.Config
	repo    git.Repository
	engine  *template.Engine
	matcher *conventions.Matcher
	builder *changelog.Builder
	machine *phaseMachine
	state   *state.State

	selection *release.Selection
	services  ServiceFactory
	env       func(string) string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithServiceFactory overrides how hosting services are instantiated.
func WithServiceFactory(factory ServiceFactory) Option {
	return func(p *Pipeline) { p.services = factory }
}

// WithEnvironment overrides the environment lookup used by the release-type
// selector.
func WithEnvironment(env func(string) string) Option {
	return func(p *Pipeline) { p.env = env }
}

// New builds a pipeline over the given effective configuration and
// repository, loading and checking the previous state when resume is on.
func New(cfg *config.Config, repo git.Repository, opts ...Option) (*Pipeline, error) {
	engine := template.NewEngine()

	matcher, err := conventions.NewMatcher(&cfg.CommitMessageConventions)
	if err != nil {
		return nil, err
	}
	machine, err := newPhaseMachine()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:      cfg,
		repo:     repo,
		engine:   engine,
		matcher:  matcher,
		builder:  changelog.NewBuilder(engine),
		machine:  machine,
		services: services.New,
		env:      os.Getenv,
	}
	for _, opt := range opts {
		opt(p)
	}

	if err := p.initializeState(); err != nil {
		return nil, err
	}
	return p, nil
}

// State returns the engine state.
func (p *Pipeline) State() *state.State {
	return p.state
}

// initializeState loads the previous state when resuming, invalidating the
// computed fields when it is stale.
func (p *Pipeline) initializeState() error {
	resume := p.cfg.Resume != nil && *p.cfg.Resume
	if !resume || p.cfg.StateFile == "" {
		p.state = state.New()
		return nil
	}

	if _, err := os.Stat(p.cfg.StateFile); err != nil {
		log.Debug("no previous state to resume from", "stateFile", p.cfg.StateFile)
		p.state = state.New()
		return nil
	}

	loaded, err := state.Load(p.cfg.StateFile)
	if err != nil {
		return err
	}
	p.state = loaded

	stale, reason := p.isStale()
	if stale {
		log.Info("previous state is stale, computed fields will be re-inferred", "reason", reason)
		p.state.InvalidateComputed()
	} else {
		log.Debug("resuming from previous state", "version", p.state.Version)
	}
	return nil
}

// isStale checks the resume invalidation conditions: HEAD moved, the
// configuration changed, or the working directory differs.
func (p *Pipeline) isStale() (bool, string) {
	if p.state.ConfigurationHash != "" && p.state.ConfigurationHash != p.cfg.Hash() {
		return true, "configuration changed"
	}
	if p.state.Directory != "" && p.cfg.Directory != "" && p.state.Directory != p.cfg.Directory {
		return true, "directory changed"
	}
	if p.state.ReleaseScope != nil && p.state.ReleaseScope.FinalCommit != "" {
		head, err := p.repo.GetLatestCommit(context.Background())
		if err == nil && head.String() != p.state.ReleaseScope.FinalCommit {
			return true, "HEAD changed"
		}
	}
	return false, ""
}

func (p *Pipeline) dryRun() bool {
	return p.cfg.DryRun != nil && *p.cfg.DryRun
}

// saveState checkpoints the state to the configured file, if any. The state
// file is the one write dry run does not suppress.
func (p *Pipeline) saveState() error {
	if p.cfg.StateFile == "" {
		return nil
	}
	return state.Save(p.state, p.cfg.StateFile)
}

// ensureSelection recomputes the active release type when it was not carried
// over from a previous phase in this invocation.
func (p *Pipeline) ensureSelection(ctx context.Context) error {
	if p.selection != nil {
		return nil
	}

	branch := p.state.Branch
	if branch == "" {
		var err error
		branch, err = p.repo.GetCurrentBranch(ctx)
		if err != nil {
			return err
		}
	}
	clean, err := p.repo.IsClean(ctx)
	if err != nil {
		return err
	}

	selector := release.NewSelector(p.engine).WithEnvironment(p.env)
	selection, err := selector.Select(&p.cfg.ReleaseTypes, p.state.TemplateContext(), branch, clean)
	if err != nil {
		return err
	}
	p.selection = selection
	return nil
}

// Infer resolves the release scope and the next version. Pure: it performs
// no writes beyond the state checkpoint.
func (p *Pipeline) Infer(ctx context.Context) error {
	if err := p.machine.advance(eventInfer, stateInferred); err != nil {
		return err
	}

	if p.state.Version != "" && p.state.PhaseSucceeded(state.PhaseInfer, p.state.Version) {
		log.Info("skipping Infer, previous state is current", "version", p.state.Version)
		return p.ensureSelection(ctx)
	}

	branch, err := p.repo.GetCurrentBranch(ctx)
	if err != nil {
		return err
	}
	clean, err := p.repo.IsClean(ctx)
	if err != nil {
		return err
	}

	p.state.Branch = branch
	p.state.Directory = p.cfg.Directory
	p.state.Scheme = p.cfg.Scheme
	p.state.Configuration = p.cfg
	p.state.ConfigurationHash = p.cfg.Hash()

	tctx := p.state.TemplateContext()

	selector := release.NewSelector(p.engine).WithEnvironment(p.env)
	selection, err := selector.Select(&p.cfg.ReleaseTypes, tctx, branch, clean)
	if err != nil {
		return err
	}
	p.selection = selection
	p.state.ReleaseType = selection.Name

	resolver := release.NewResolver(p.repo, p.matcher, p.engine)
	scope, err := resolver.Resolve(ctx, p.cfg, selection, tctx)
	if err != nil {
		return err
	}
	p.state.SetScope(scope)
	p.state.Bump = string(scope.Bump)

	inferrer := release.NewInferrer(p.engine)
	inference, err := inferrer.Infer(p.cfg, selection, scope, branch, tctx)
	if err != nil {
		return err
	}

	p.state.Bump = string(inference.Bump)
	p.state.Version = inference.Version.String()
	p.state.VersionRange = inference.VersionRange
	p.state.NewVersion = inference.NewVersion
	p.state.NewRelease = inference.NewRelease

	// the configured version override wins, but the scope above is still
	// computed and recorded
	if p.cfg.Version != "" {
		override, err := version.ParseLenient(p.cfg.Version, p.cfg.ReleasePrefix)
		if err != nil {
			return nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, "pipeline.Infer", "invalid version override %q", p.cfg.Version).
				WithFields("version")
		}
		p.state.Version = override.String()
		p.state.OverriddenVersion = true
		p.state.NewVersion = !override.Equal(scope.PreviousVersion)
		p.state.NewRelease = p.state.NewVersion && p.engine.ToBoolean(selection.Type.Publish, p.state.TemplateContext())
	}

	p.state.RecordPhase(state.PhaseInfer, p.state.Version, true)
	log.Info("inferred release",
		"branch", branch,
		"releaseType", selection.Name,
		"version", p.state.Version,
		"newVersion", p.state.NewVersion,
		"newRelease", p.state.NewRelease,
	)

	if err := p.writeSummary(); err != nil {
		return err
	}
	return p.saveState()
}

// Run executes all four phases in order.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Infer(ctx); err != nil {
		return err
	}
	if err := p.Mark(ctx); err != nil {
		return err
	}
	if err := p.Make(ctx); err != nil {
		return err
	}
	return p.Publish(ctx)
}
