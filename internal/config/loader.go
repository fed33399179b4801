package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	nyxerrors "github.com/relicta-tech/nyx/internal/errors"
)

// knownKeys are the recognized top-level configuration keys. Anything else
// warns and is preserved under Extra.
var knownKeys = map[string]struct{}{
	"bump": {}, "changelog": {}, "commitMessageConventions": {},
	"configurationFile": {}, "directory": {}, "dryRun": {}, "git": {},
	"initialVersion": {}, "preset": {}, "releaseAssets": {},
	"releaseLenient": {}, "releasePrefix": {}, "releaseTypes": {},
	"resume": {}, "scheme": {}, "services": {}, "sharedConfigurationFile": {},
	"stateFile": {}, "summaryFile": {}, "verbosity": {}, "version": {},
}

// LoadFile reads one configuration layer from disk, selecting the format by
// extension: .yml/.yaml, .json or .toml.
func LoadFile(path string) (*Config, error) {
	const op = "config.LoadFile"

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nyxerrors.IOWrap(err, op, "unable to read configuration file "+path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return parseYAML(data, path)
	case ".json":
		return parseJSON(data, path)
	case ".toml":
		return parseTOML(data, path)
	default:
		return nil, nyxerrors.Configuration(op, "unsupported configuration file extension for "+path).
			WithFields("configurationFile")
	}
}

func parseYAML(data []byte, path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, nyxerrors.ConfigurationWrap(err, "config.LoadFile", "malformed YAML in "+path)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err == nil {
		cfg.Extra = collectUnknown(raw, path)
	}
	return cfg, nil
}

func parseJSON(data []byte, path string) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, nyxerrors.ConfigurationWrap(err, "config.LoadFile", "malformed JSON in "+path)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err == nil {
		cfg.Extra = collectUnknown(raw, path)
	}
	return cfg, nil
}

// parseTOML converts the document to JSON and reuses the JSON path. TOML
// tables do not preserve declaration order, so ordered mappings fall back to
// the decoder's ordering.
func parseTOML(data []byte, path string) (*Config, error) {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, nyxerrors.ConfigurationWrap(err, "config.LoadFile", "malformed TOML in "+path)
	}
	jsonData, err := json.Marshal(raw)
	if err != nil {
		return nil, nyxerrors.ConfigurationWrap(err, "config.LoadFile", "unable to normalize TOML in "+path)
	}
	return parseJSON(jsonData, path)
}

func collectUnknown(raw map[string]any, path string) map[string]any {
	var extra map[string]any
	for key, value := range raw {
		if _, ok := knownKeys[key]; ok {
			continue
		}
		log.Warn("ignoring unknown configuration option", "option", key, "file", path)
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[key] = value
	}
	return extra
}

// EnvPrefix is the prefix for configuration environment variables.
const EnvPrefix = "NYX"

// NewEnvironment returns a viper instance bound to the NYX_* environment,
// used as part of the highest-priority layer.
func NewEnvironment() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// FromEnvironment builds a configuration layer from NYX_* environment
// variables for the scalar options that make sense there.
func FromEnvironment(v *viper.Viper) *Config {
	cfg := &Config{
		Bump:                    v.GetString("bump"),
		ConfigurationFile:       v.GetString("configuration_file"),
		Directory:               v.GetString("directory"),
		InitialVersion:          v.GetString("initial_version"),
		Preset:                  v.GetString("preset"),
		ReleasePrefix:           v.GetString("release_prefix"),
		Scheme:                  v.GetString("scheme"),
		SharedConfigurationFile: v.GetString("shared_configuration_file"),
		StateFile:               v.GetString("state_file"),
		SummaryFile:             v.GetString("summary_file"),
		Verbosity:               v.GetString("verbosity"),
		Version:                 v.GetString("version"),
	}
	for _, opt := range []struct {
		key string
		dst **bool
	}{
		{"dry_run", &cfg.DryRun},
		{"release_lenient", &cfg.ReleaseLenient},
		{"resume", &cfg.Resume},
	} {
		if v.IsSet(opt.key) {
			b := v.GetBool(opt.key)
			*opt.dst = &b
		}
	}
	return cfg
}
