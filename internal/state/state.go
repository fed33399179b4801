// Package state holds the engine state shared across pipeline phases and
// persisted between invocations.
package state

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/relicta-tech/nyx/internal/config"
	"github.com/relicta-tech/nyx/internal/release"
)

// Phase names recorded in the state.
const (
	PhaseInfer   = "infer"
	PhaseMark    = "mark"
	PhaseMake    = "make"
	PhasePublish = "publish"
)

// PhaseResult records a completed phase, keyed by the version it ran for so
// resume can tell whether it is still valid.
type PhaseResult struct {
	// Version is the version the phase completed for.
	Version string `json:"version" yaml:"version"`
	// Success is true when the phase completed without error.
	Success bool `json:"success" yaml:"success"`
	// Timestamp is the completion time in milliseconds since the epoch.
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`
}

// CommitState is the serializable form of a significant commit.
type CommitState struct {
	SHA         string `json:"sha" yaml:"sha"`
	Message     string `json:"message" yaml:"message"`
	AuthorName  string `json:"authorName" yaml:"authorName"`
	AuthorEmail string `json:"authorEmail" yaml:"authorEmail"`
	Date        int64  `json:"date" yaml:"date"`
	Type        string `json:"type,omitempty" yaml:"type,omitempty"`
	Bump        string `json:"bump,omitempty" yaml:"bump,omitempty"`
}

// ScopeState is the serializable release scope.
type ScopeState struct {
	PreviousVersion       string        `json:"previousVersion,omitempty" yaml:"previousVersion,omitempty"`
	PreviousVersionTag    string        `json:"previousVersionTag,omitempty" yaml:"previousVersionTag,omitempty"`
	PreviousVersionCommit string        `json:"previousVersionCommit,omitempty" yaml:"previousVersionCommit,omitempty"`
	PrimeVersion          string        `json:"primeVersion,omitempty" yaml:"primeVersion,omitempty"`
	PrimeVersionCommit    string        `json:"primeVersionCommit,omitempty" yaml:"primeVersionCommit,omitempty"`
	InitialCommit         string        `json:"initialCommit,omitempty" yaml:"initialCommit,omitempty"`
	FinalCommit           string        `json:"finalCommit,omitempty" yaml:"finalCommit,omitempty"`
	SignificantCommits    []CommitState `json:"significantCommits,omitempty" yaml:"significantCommits,omitempty"`
}

// ChangelogState records the changelog artifact produced by Make.
type ChangelogState struct {
	Path    string `json:"path" yaml:"path"`
	Written bool   `json:"written" yaml:"written"`
}

// State is the root engine state. The orchestrator owns it exclusively
// during a run; every other component reads it.
type State struct {
	Branch            string                 `json:"branch,omitempty" yaml:"branch,omitempty"`
	Bump              string                 `json:"bump,omitempty" yaml:"bump,omitempty"`
	Changelog         *ChangelogState        `json:"changelog,omitempty" yaml:"changelog,omitempty"`
	Configuration     *config.Config         `json:"configuration,omitempty" yaml:"configuration,omitempty"`
	ConfigurationHash string                 `json:"configurationHash,omitempty" yaml:"configurationHash,omitempty"`
	Directory         string                 `json:"directory,omitempty" yaml:"directory,omitempty"`
	NewRelease        bool                   `json:"newRelease" yaml:"newRelease"`
	NewVersion        bool                   `json:"newVersion" yaml:"newVersion"`
	OverriddenVersion bool                   `json:"overriddenVersion,omitempty" yaml:"overriddenVersion,omitempty"`
	Phases            map[string]PhaseResult `json:"phases,omitempty" yaml:"phases,omitempty"`
	ReleaseScope      *ScopeState            `json:"releaseScope,omitempty" yaml:"releaseScope,omitempty"`
	ReleaseType       string                 `json:"releaseType,omitempty" yaml:"releaseType,omitempty"`
	RunID             string                 `json:"runId,omitempty" yaml:"runId,omitempty"`
	Scheme            string                 `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Timestamp         int64                  `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Version           string                 `json:"version,omitempty" yaml:"version,omitempty"`
	VersionRange      string                 `json:"versionRange,omitempty" yaml:"versionRange,omitempty"`

	// Extra preserves unknown fields across round-trips.
	Extra map[string]any `json:"-" yaml:"-"`
}

// New initializes an empty state stamped with a fresh run identifier.
func New() *State {
	return &State{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().UnixMilli(),
		Phases:    make(map[string]PhaseResult),
	}
}

// RecordPhase marks a phase as completed for the given version.
func (s *State) RecordPhase(phase, version string, success bool) {
	if s.Phases == nil {
		s.Phases = make(map[string]PhaseResult)
	}
	s.Phases[phase] = PhaseResult{
		Version:   version,
		Success:   success,
		Timestamp: time.Now().UnixMilli(),
	}
}

// PhaseSucceeded reports whether the phase previously completed successfully
// for the given version.
func (s *State) PhaseSucceeded(phase, version string) bool {
	result, ok := s.Phases[phase]
	return ok && result.Success && result.Version == version
}

// InvalidateComputed drops the fields recomputed by Infer, keeping the run
// identity and any recorded phases.
func (s *State) InvalidateComputed() {
	s.Branch = ""
	s.Bump = ""
	s.Changelog = nil
	s.NewRelease = false
	s.NewVersion = false
	s.OverriddenVersion = false
	s.ReleaseScope = nil
	s.ReleaseType = ""
	s.Version = ""
	s.VersionRange = ""
}

// SetScope stores the resolved scope.
func (s *State) SetScope(scope *release.Scope) {
	ss := &ScopeState{
		PreviousVersion:       scope.PreviousVersion.String(),
		PreviousVersionTag:    scope.PreviousVersionTag,
		PreviousVersionCommit: scope.PreviousVersionCommit.String(),
		PrimeVersion:          scope.PrimeVersion.String(),
		PrimeVersionCommit:    scope.PrimeVersionCommit.String(),
		InitialCommit:         scope.InitialCommit.String(),
		FinalCommit:           scope.FinalCommit.String(),
	}
	for _, sc := range scope.SignificantCommits {
		ss.SignificantCommits = append(ss.SignificantCommits, CommitState{
			SHA:         sc.Commit.SHA().String(),
			Message:     sc.Commit.Message(),
			AuthorName:  sc.Commit.Author().Name,
			AuthorEmail: sc.Commit.Author().Email,
			Date:        sc.Commit.Date().UnixMilli(),
			Type:        sc.Match.Type,
			Bump:        string(sc.Match.Bump),
		})
	}
	s.ReleaseScope = ss
}

// TemplateContext builds the dotted-path context templates resolve against.
func (s *State) TemplateContext() map[string]any {
	ctx := map[string]any{
		"branch":            s.Branch,
		"bump":              s.Bump,
		"directory":         s.Directory,
		"newRelease":        s.NewRelease,
		"newVersion":        s.NewVersion,
		"releaseType":       s.ReleaseType,
		"scheme":            s.Scheme,
		"timestamp":         s.Timestamp,
		"version":           s.Version,
		"versionRange":      s.VersionRange,
		"overriddenVersion": s.OverriddenVersion,
	}

	if s.Configuration != nil {
		ctx["configuration"] = toGenericMap(s.Configuration)
	}
	if s.ReleaseScope != nil {
		ctx["releaseScope"] = toGenericMap(s.ReleaseScope)
	}
	if s.Changelog != nil {
		ctx["changelog"] = toGenericMap(s.Changelog)
	}
	return ctx
}

// toGenericMap converts a typed record into the nested maps the template
// engine traverses with dotted paths.
func toGenericMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
