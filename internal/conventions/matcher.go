// Package conventions classifies commit messages against configured commit
// message conventions and derives the bump component they contribute.
package conventions

import (
	"regexp"

	"github.com/relicta-tech/nyx/internal/config"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/version"
)

// Convention is one compiled commit message convention.
type Convention struct {
	name       string
	expression *regexp.Regexp
	bumps      []bumpExpression
}

type bumpExpression struct {
	component  version.Component
	expression *regexp.Regexp
}

// Name returns the convention name.
func (c *Convention) Name() string {
	return c.name
}

// Match holds the outcome of classifying one commit message.
type Match struct {
	// Convention is the name of the convention that matched.
	Convention string
	// Type is the conventional commit type (the "type" group).
	Type string
	// Scope is the optional "scope" group.
	Scope string
	// Title is the optional "title" group.
	Title string
	// Breaking is true when the "breaking" group matched.
	Breaking bool
	// Bump is the component this commit contributes.
	Bump version.Component
}

// IsSignificant reports whether the commit contributes at least a
// patch-level bump.
func (m *Match) IsSignificant() bool {
	return m != nil && m.Bump != version.ComponentNone
}

// Matcher evaluates an ordered list of enabled conventions.
type Matcher struct {
	conventions []*Convention
}

// NewMatcher compiles the enabled conventions from configuration, in order.
func NewMatcher(cfg *config.ConventionsConfig) (*Matcher, error) {
	const op = "conventions.NewMatcher"

	m := &Matcher{}
	for _, name := range cfg.Enabled {
		item, ok := cfg.Items[name]
		if !ok {
			return nil, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "enabled convention %q is not defined", name).
				WithFields("commitMessageConventions.enabled")
		}

		expression, err := regexp.Compile(item.Expression)
		if err != nil {
			return nil, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "convention %q has an invalid expression", name).
				WithFields("commitMessageConventions.items." + name + ".expression")
		}

		convention := &Convention{name: name, expression: expression}
		// evaluate most significant components first so the commit's rank
		// is the first hit
		for _, component := range []version.Component{version.ComponentMajor, version.ComponentMinor, version.ComponentPatch} {
			expr, ok := item.BumpExpressions[string(component)]
			if !ok {
				continue
			}
			re, err := regexp.Compile(expr)
			if err != nil {
				return nil, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "convention %q has an invalid bump expression for %q", name, string(component)).
					WithFields("commitMessageConventions.items." + name + ".bumpExpressions." + string(component))
			}
			convention.bumps = append(convention.bumps, bumpExpression{component: component, expression: re})
		}
		m.conventions = append(m.conventions, convention)
	}
	return m, nil
}

// Match classifies a commit message: the first enabled convention whose
// expression matches and whose bump expressions produce a component wins.
// Returns nil when no convention considers the message significant.
func (m *Matcher) Match(message string) *Match {
	for _, convention := range m.conventions {
		match := convention.match(message)
		if match != nil {
			return match
		}
	}
	return nil
}

func (c *Convention) match(message string) *Match {
	groups := c.expression.FindStringSubmatch(message)
	if groups == nil {
		return nil
	}

	bump := version.ComponentNone
	for _, candidate := range c.bumps {
		if candidate.expression.MatchString(message) {
			bump = candidate.component
			break
		}
	}
	if bump == version.ComponentNone {
		return nil
	}

	match := &Match{Convention: c.name, Bump: bump}
	for i, name := range c.expression.SubexpNames() {
		if i == 0 || i >= len(groups) {
			continue
		}
		switch name {
		case "type":
			match.Type = groups[i]
		case "scope":
			match.Scope = groups[i]
		case "title":
			match.Title = groups[i]
		case "breaking":
			match.Breaking = groups[i] != ""
		}
	}
	return match
}

// Describe classifies a commit message without requiring a bump component:
// the first convention whose expression matches decomposes the message.
// Used by the changelog builder, which also lists non-bumping commits when a
// section claims their type.
func (m *Matcher) Describe(message string) *Match {
	for _, convention := range m.conventions {
		groups := convention.expression.FindStringSubmatch(message)
		if groups == nil {
			continue
		}
		match := &Match{Convention: convention.name}
		for i, name := range convention.expression.SubexpNames() {
			if i == 0 || i >= len(groups) {
				continue
			}
			switch name {
			case "type":
				match.Type = groups[i]
			case "scope":
				match.Scope = groups[i]
			case "title":
				match.Title = groups[i]
			case "breaking":
				match.Breaking = groups[i] != ""
			}
		}
		for _, candidate := range convention.bumps {
			if candidate.expression.MatchString(message) {
				match.Bump = candidate.component
				break
			}
		}
		return match
	}
	return nil
}
