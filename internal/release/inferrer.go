package release

import (
	"github.com/charmbracelet/log"

	"github.com/relicta-tech/nyx/internal/config"
	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/template"
	"github.com/relicta-tech/nyx/internal/version"
)

// Inference is the outcome of version inference.
type Inference struct {
	// Version is the next version.
	Version version.Version
	// Bump is the component that was applied, possibly the configured
	// override.
	Bump version.Component
	// NewVersion is false when the candidate equals the previous version.
	NewVersion bool
	// NewRelease is true when NewVersion holds and the active type
	// publishes.
	NewRelease bool
	// VersionRange is the range expression the candidate was checked
	// against, empty when unconstrained.
	VersionRange string
}

// Inferrer combines the scope, the convention matcher outcome and the active
// release type into the next version.
type Inferrer struct {
	engine *template.Engine
}

// NewInferrer creates a version inferrer.
func NewInferrer(engine *template.Engine) *Inferrer {
	return &Inferrer{engine: engine}
}

// Infer computes the next version for the active release type.
func (i *Inferrer) Infer(cfg *config.Config, selection *Selection, scope *Scope, branch string, tctx map[string]any) (*Inference, error) {
	const op = "release.Infer"

	collapsing := selection.Type.CollapseVersions != nil && *selection.Type.CollapseVersions

	// the explicit configuration override wins over the aggregated scope bump
	bump := scope.Bump
	if cfg.Bump != "" {
		bump = version.Component(cfg.Bump)
	}

	var candidate version.Version
	var newVersion bool
	switch {
	case bump == version.ComponentNone:
		candidate = scope.PreviousVersion
	case !scope.HasPreviousVersionCommit():
		// nothing tagged yet: the initial version is released as-is
		candidate = scope.PreviousVersion
		if collapsing {
			var err error
			candidate, err = i.collapse(candidate, selection, scope, tctx)
			if err != nil {
				return nil, err
			}
		}
		newVersion = true
	case collapsing:
		base, err := scope.PrimeVersion.Bump(bump)
		if err != nil {
			return nil, err
		}
		candidate, err = i.collapse(base, selection, scope, tctx)
		if err != nil {
			return nil, err
		}
		newVersion = !candidate.Equal(scope.PreviousVersion)
	default:
		var err error
		candidate, err = scope.PreviousVersion.Bump(bump)
		if err != nil {
			return nil, err
		}
		newVersion = !candidate.Equal(scope.PreviousVersion)
	}

	if newVersion {
		var err error
		candidate, err = i.applyIdentifiers(candidate, selection, tctx)
		if err != nil {
			return nil, err
		}
	}

	rangeExpr, err := i.versionRange(selection, branch, tctx)
	if err != nil {
		return nil, err
	}
	if rangeExpr != "" && newVersion {
		if err := version.CheckRange(candidate, rangeExpr); err != nil {
			if nyxerrors.IsKind(err, nyxerrors.KindVersionRange) {
				return nil, nyxerrors.Wrapf(err, nyxerrors.KindVersionRange, op, "inferred version %s violates the version range for release type %q", candidate.String(), selection.Name).
					WithFields("releaseTypes.items." + selection.Name + ".versionRange")
			}
			return nil, err
		}
	}

	inference := &Inference{
		Version:      candidate,
		Bump:         bump,
		NewVersion:   newVersion,
		VersionRange: rangeExpr,
	}
	if newVersion {
		inference.NewRelease = i.engine.ToBoolean(selection.Type.Publish, tctx)
	}

	log.Debug("version inferred",
		"version", candidate.String(),
		"bump", string(bump),
		"newVersion", inference.NewVersion,
		"newRelease", inference.NewRelease,
	)
	return inference, nil
}

// collapse derives the pre-release qualifier from the active type and
// continues the ordinal from the highest existing tag with the same base and
// qualifier; that tag, when present, is the scope's previous version.
func (i *Inferrer) collapse(base version.Version, selection *Selection, scope *Scope, tctx map[string]any) (version.Version, error) {
	const op = "release.Infer"

	if selection.Type.CollapsedVersionQualifier == "" {
		return version.Version{}, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "release type %q collapses versions but has no collapsedVersionQualifier", selection.Name).
			WithFields("releaseTypes.items." + selection.Name + ".collapsedVersionQualifier")
	}
	qualifier, err := i.engine.Render(selection.Type.CollapsedVersionQualifier, tctx)
	if err != nil {
		return version.Version{}, err
	}
	if qualifier == "" {
		return version.Version{}, nyxerrors.Newf(nyxerrors.KindConfiguration, op, "the collapsedVersionQualifier of release type %q resolves to an empty string", selection.Name).
			WithFields("releaseTypes.items." + selection.Name + ".collapsedVersionQualifier")
	}

	ordinal := uint64(1)
	previous := scope.PreviousVersion
	if previous.CoreString() == base.CoreString() && previous.PrereleaseQualifier() == qualifier {
		if n, ok := previous.PrereleaseOrdinal(qualifier); ok {
			ordinal = n + 1
		}
	}
	return base.WithPrereleaseOrdinal(qualifier, ordinal), nil
}

func (i *Inferrer) applyIdentifiers(candidate version.Version, selection *Selection, tctx map[string]any) (version.Version, error) {
	for _, id := range selection.Type.Identifiers {
		position := version.Position(id.Position)
		if id.Position == "" {
			position = version.PositionBuild
		}
		value, err := i.engine.Render(id.Value, tctx)
		if err != nil {
			return version.Version{}, err
		}
		candidate, err = candidate.WithIdentifier(position, id.Qualifier, value)
		if err != nil {
			return version.Version{}, err
		}
	}
	return candidate, nil
}

func (i *Inferrer) versionRange(selection *Selection, branch string, tctx map[string]any) (string, error) {
	if selection.Type.VersionRangeFromBranchName != nil && *selection.Type.VersionRangeFromBranchName {
		return version.RangeFromBranchName(branch)
	}
	if selection.Type.VersionRange == "" {
		return "", nil
	}
	return i.engine.Render(selection.Type.VersionRange, tctx)
}
