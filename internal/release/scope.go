package release

import (
	"context"
	"regexp"

	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/conventions"
	"github.com/relicta-tech/nyx/internal/entities"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/git"
	"github.com/relicta-tech/nyx/internal/template"
	"github.com/relicta-tech/nyx/internal/version"
)

// SignificantCommit pairs a commit with its convention match.
type SignificantCommit struct {
	Commit entities.Commit
	Match  conventions.Match
}

// Scope is the release scope computed by Infer: the anchor versions and the
// commits considered for the current release. Read-only once resolved.
type Scope struct {
	// PreviousVersion is the highest version whose tag matches the active
	// type's filter, reachable from HEAD; the configured initial version
	// when no tag was found.
	PreviousVersion version.Version
	// PreviousVersionTag is the tag name that produced PreviousVersion,
	// empty when the initial version is in effect.
	PreviousVersionTag string
	// PreviousVersionCommit is the commit the previous version tag points
	// at, empty when the initial version is in effect.
	PreviousVersionCommit entities.SHA
	// PrimeVersion is the highest non-collapsed version reachable from
	// HEAD, the stable base off which collapsed tracks advance.
	PrimeVersion version.Version
	// PrimeVersionCommit is the commit the prime version tag points at.
	PrimeVersionCommit entities.SHA
	// InitialCommit is the oldest commit after PreviousVersionCommit.
	InitialCommit entities.SHA
	// FinalCommit is the HEAD commit at the start of Infer.
	FinalCommit entities.SHA
	// SignificantCommits are the commits contributing a bump, oldest first.
	SignificantCommits []SignificantCommit
	// Bump is the most significant component over the significant commits.
	Bump version.Component
}

// HasPreviousVersionCommit reports whether a previous version tag was found
// in history.
func (s *Scope) HasPreviousVersionCommit() bool {
	return !s.PreviousVersionCommit.IsEmpty()
}

// Resolver walks the commit history and computes the release scope.
type Resolver struct {
	repo    git.Repository
	matcher *conventions.Matcher
	engine  *template.Engine
}

// NewResolver creates a scope resolver.
func NewResolver(repo git.Repository, matcher *conventions.Matcher, engine *template.Engine) *Resolver {
	return &Resolver{repo: repo, matcher: matcher, engine: engine}
}

// Resolve computes the scope for the active release type.
func (r *Resolver) Resolve(ctx context.Context, cfg *config.Config, selection *Selection, tctx map[string]any) (*Scope, error) {
	const op = "release.ResolveScope"

	head, err := r.repo.GetLatestCommit(ctx)
	if err != nil {
		return nil, err
	}

	filter, err := r.compileTagFilter(&selection.Type, tctx)
	if err != nil {
		return nil, err
	}

	collapsedQualifiers, err := r.collapsedQualifiers(cfg, tctx)
	if err != nil {
		return nil, err
	}

	lenient := cfg.ReleaseLenient != nil && *cfg.ReleaseLenient
	collapsing := selection.Type.CollapseVersions != nil && *selection.Type.CollapseVersions

	scope := &Scope{FinalCommit: head}

	var window []entities.Commit
	var previousFound, primeFound bool

	err = r.repo.WalkHistory(ctx, head.String(), "", func(commit entities.Commit) bool {
		if !previousFound {
			previous, tag, ok := r.highestMatchingVersion(commit, filter, lenient, cfg.ReleasePrefix, collapsing, collapsedQualifiers)
			if ok {
				scope.PreviousVersion = previous
				scope.PreviousVersionTag = tag
				scope.PreviousVersionCommit = commit.SHA()
				previousFound = true
			} else {
				window = append(window, commit)
			}
		}
		if !primeFound {
			// the prime line ignores collapsed versions entirely
			prime, _, ok := r.highestMatchingVersion(commit, filter, lenient, cfg.ReleasePrefix, false, collapsedQualifiers)
			if ok {
				scope.PrimeVersion = prime
				scope.PrimeVersionCommit = commit.SHA()
				primeFound = true
			}
		}
		return !(previousFound && primeFound)
	})
	if err != nil {
		return nil, err
	}

	if !previousFound {
		initial, err := r.initialVersion(cfg)
		if err != nil {
			return nil, err
		}
		scope.PreviousVersion = initial
	}
	if !primeFound {
		initial, err := r.initialVersion(cfg)
		if err != nil {
			return nil, err
		}
		scope.PrimeVersion = initial
	}

	// the walk visited newest first; the scope wants oldest first
	for i, j := 0, len(window)-1; i < j; i, j = i+1, j-1 {
		window[i], window[j] = window[j], window[i]
	}
	if len(window) > 0 {
		scope.InitialCommit = window[0].SHA()
	}

	for _, commit := range window {
		match := r.matcher.Match(commit.Message())
		if match.IsSignificant() {
			scope.SignificantCommits = append(scope.SignificantCommits, SignificantCommit{Commit: commit, Match: *match})
			scope.Bump = version.MostSignificant(scope.Bump, match.Bump)
		}
	}

	log.Debug("release scope resolved",
		"previousVersion", scope.PreviousVersion.String(),
		"primeVersion", scope.PrimeVersion.String(),
		"significantCommits", len(scope.SignificantCommits),
		"bump", string(scope.Bump),
	)
	return scope, nil
}

func (r *Resolver) initialVersion(cfg *config.Config) (version.Version, error) {
	if cfg.InitialVersion == "" {
		return version.DefaultInitial(version.SchemeSemVer), nil
	}
	v, err := version.ParseLenient(cfg.InitialVersion, cfg.ReleasePrefix)
	if err != nil {
		return version.Version{}, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, "release.ResolveScope", "invalid initialVersion %q", cfg.InitialVersion).
			WithFields("initialVersion")
	}
	return v, nil
}

func (r *Resolver) compileTagFilter(rt *config.ReleaseTypeConfig, tctx map[string]any) (*regexp.Regexp, error) {
	const op = "release.ResolveScope"

	if rt.FilterTags == "" {
		return nil, nil
	}
	pattern, err := r.engine.Render(rt.FilterTags, tctx)
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, nyxerrors.Wrapf(err, nyxerrors.KindConfiguration, op, "invalid filterTags expression %q", pattern).
			WithFields("releaseTypes.items.*.filterTags")
	}
	return re, nil
}

// collapsedQualifiers resolves the collapsed version qualifier of every
// enabled collapsing type, normalized; versions whose first pre-release
// identifier is in this set are collapsed.
func (r *Resolver) collapsedQualifiers(cfg *config.Config, tctx map[string]any) (map[string]struct{}, error) {
	qualifiers := make(map[string]struct{})
	for _, name := range cfg.ReleaseTypes.Enabled {
		item, ok := cfg.ReleaseTypes.Items[name]
		if !ok || item.CollapseVersions == nil || !*item.CollapseVersions {
			continue
		}
		if item.CollapsedVersionQualifier == "" {
			continue
		}
		resolved, err := r.engine.Render(item.CollapsedVersionQualifier, tctx)
		if err != nil {
			return nil, err
		}
		if resolved != "" {
			qualifiers[resolved] = struct{}{}
		}
	}
	return qualifiers, nil
}

// highestMatchingVersion inspects the tags at a commit and returns the
// highest version passing the tag filter. When allowCollapsed is false,
// collapsed versions are skipped so the prime line only sees non-collapsed
// tags. When it is true the type collapses, and a commit carrying both
// collapsed and non-collapsed tags yields the collapsed one; non-collapsed
// tags are only the fallback.
func (r *Resolver) highestMatchingVersion(commit entities.Commit, filter *regexp.Regexp, lenient bool, prefix string, allowCollapsed bool, collapsedQualifiers map[string]struct{}) (version.Version, string, bool) {
	var bestCollapsed, bestPlain version.Version
	var bestCollapsedTag, bestPlainTag string
	var foundCollapsed, foundPlain bool

	for _, tag := range commit.Tags() {
		if filter != nil && !filter.MatchString(tag.Name()) {
			continue
		}

		var v version.Version
		var err error
		if lenient {
			v, err = version.ParseLenient(tag.Name(), prefix)
		} else {
			v, err = version.ParseWithPrefix(tag.Name(), prefix)
		}
		if err != nil {
			continue
		}

		if _, collapsed := collapsedQualifiers[v.PrereleaseQualifier()]; collapsed {
			if !allowCollapsed {
				continue
			}
			if !foundCollapsed || v.GreaterThan(bestCollapsed) {
				bestCollapsed = v
				bestCollapsedTag = tag.Name()
				foundCollapsed = true
			}
		} else if !foundPlain || v.GreaterThan(bestPlain) {
			bestPlain = v
			bestPlainTag = tag.Name()
			foundPlain = true
		}
	}

	if foundCollapsed {
		return bestCollapsed, bestCollapsedTag, true
	}
	return bestPlain, bestPlainTag, foundPlain
}
