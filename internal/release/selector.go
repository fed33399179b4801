// Package release implements release-type selection, scope resolution and
// version inference.
package release

import (
	"os"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/entities"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/template"
)

// Selection is the outcome of matching the release-type rule set.
type Selection struct {
	// Name is the active release type name.
	Name string
	// Type is the active release type definition.
	Type config.ReleaseTypeConfig
	// Fallback is true when no configured type matched and the built-in
	// default (all side effects disabled) is active.
	Fallback bool
}

// Selector matches the current branch, environment and workspace status
// against the ordered release-type rules.
type Selector struct {
	engine *template.Engine
	env    func(string) string
}

// NewSelector creates a selector. The environment lookup defaults to
// os.Getenv and is injectable for tests.
func NewSelector(engine *template.Engine) *Selector {
	return &Selector{engine: engine, env: os.Getenv}
}

// WithEnvironment overrides the environment lookup.
func (s *Selector) WithEnvironment(env func(string) string) *Selector {
	s.env = env
	return s
}

// Select evaluates the enabled types in order and returns the first whose
// predicates all hold. Predicate templates are resolved against the given
// context before evaluation.
func (s *Selector) Select(types *config.ReleaseTypesConfig, tctx map[string]any, branch string, workspaceClean bool) (*Selection, error) {
	const op = "release.Select"

	for _, name := range types.Enabled {
		item, ok := types.Items[name]
		if !ok {
			return nil, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "enabled release type %q is not defined", name).
				WithFields("releaseTypes.enabled")
		}

		matches, err := s.matches(name, &item, tctx, branch, workspaceClean)
		if err != nil {
			return nil, err
		}
		if matches {
			log.Debug("release type selected", "type", name, "branch", branch)
			return &Selection{Name: name, Type: item}, nil
		}
	}

	log.Debug("no release type matched, falling back to the default type", "branch", branch)
	return &Selection{
		Name:     config.DefaultReleaseTypeName,
		Type:     config.DefaultReleaseType(),
		Fallback: true,
	}, nil
}

func (s *Selector) matches(name string, item *config.ReleaseTypeConfig, tctx map[string]any, branch string, workspaceClean bool) (bool, error) {
	const op = "release.Select"

	if item.MatchBranches != "" {
		pattern, err := s.engine.Render(item.MatchBranches, tctx)
		if err != nil {
			return false, err
		}
		if pattern != "" {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return false, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "release type %q has an invalid matchBranches expression", name).
					WithFields("releaseTypes.items." + name + ".matchBranches")
			}
			if !re.MatchString(branch) {
				return false, nil
			}
		}
	}

	for variable, expr := range item.MatchEnvironmentVariables {
		pattern, err := s.engine.Render(expr, tctx)
		if err != nil {
			return false, err
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "release type %q has an invalid matchEnvironmentVariables expression for %q", name, variable).
				WithFields("releaseTypes.items." + name + ".matchEnvironmentVariables")
		}
		if !re.MatchString(s.env(variable)) {
			return false, nil
		}
	}

	if item.MatchWorkspaceStatus != "" {
		resolved, err := s.engine.Render(item.MatchWorkspaceStatus, tctx)
		if err != nil {
			return false, err
		}
		status := entities.WorkspaceStatus(resolved)
		if !status.IsValid() {
			return false, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "release type %q has an invalid matchWorkspaceStatus %q", name, resolved).
				WithFields("releaseTypes.items." + name + ".matchWorkspaceStatus")
		}
		if !status.Matches(workspaceClean) {
			return false, nil
		}
	}

	return true, nil
}
