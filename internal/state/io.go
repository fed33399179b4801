package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
	"github.com/relicta-tech/nyx/internal/fileutil"
)

// knownFields are the recognized top-level state keys; everything else is
// preserved under Extra for forward compatibility.
var knownFields = map[string]struct{}{
	"branch": {}, "bump": {}, "changelog": {}, "configuration": {},
	"configurationHash": {}, "directory": {}, "newRelease": {},
	"newVersion": {}, "overriddenVersion": {}, "phases": {},
	"releaseScope": {}, "releaseType": {}, "runId": {}, "scheme": {},
	"timestamp": {}, "version": {}, "versionRange": {},
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	default:
		return false
	}
}

// Save serializes the state to the given file, YAML or JSON by extension,
// writing atomically. Unknown fields captured at load time are written back.
func Save(s *State, path string) error {
	const op = "state.Save"

	// round-trip through a generic map so preserved unknown fields merge in
	known, err := json.Marshal(s)
	if err != nil {
		return nyxerrors.IOWrap(err, op, "unable to serialize the state")
	}
	var doc map[string]any
	if err := json.Unmarshal(known, &doc); err != nil {
		return nyxerrors.IOWrap(err, op, "unable to serialize the state")
	}
	for key, value := range s.Extra {
		if _, exists := doc[key]; !exists {
			doc[key] = value
		}
	}

	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(doc)
	} else {
		data, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return nyxerrors.IOWrap(err, op, "unable to serialize the state")
	}

	if err := fileutil.AtomicWriteFile(path, data, 0o644); err != nil {
		return nyxerrors.IOWrap(err, op, "unable to write the state file "+path)
	}
	log.Debug("state saved", "path", path)
	return nil
}

// Load reads the state from the given file, YAML or JSON by extension.
// Unknown top-level fields are preserved for the next Save.
func Load(path string) (*State, error) {
	const op = "state.Load"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nyxerrors.IOWrap(err, op, "unable to read the state file "+path)
	}

	s := &State{}
	var raw map[string]any

	if isYAML(path) {
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, nyxerrors.StateWrap(err, op, "malformed state file "+path)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, nyxerrors.StateWrap(err, op, "malformed state file "+path)
		}
	} else {
		if err := json.Unmarshal(data, s); err != nil {
			return nil, nyxerrors.StateWrap(err, op, "malformed state file "+path)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, nyxerrors.StateWrap(err, op, "malformed state file "+path)
		}
	}

	for key, value := range raw {
		if _, ok := knownFields[key]; ok {
			continue
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[key] = value
	}

	if s.Phases == nil {
		s.Phases = make(map[string]PhaseResult)
	}
	return s, nil
}
