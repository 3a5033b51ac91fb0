package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"setup-host/internal/logger"
)

// LoadError reports a missing, unreadable or malformed configuration file.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Load reads the config file at path. The format follows the extension:
// .toml, or .yaml/.yml. Unknown keys, missing keys and malformed uv_tool
// entries are all errors.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	var (
		cfg  *Config
		keys []string
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		cfg, keys, err = parseTOML(raw)
	case ".yaml", ".yml":
		cfg, keys, err = parseYAML(raw)
	default:
		err = fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	for _, key := range requiredKeys {
		if !slices.Contains(keys, key) {
			return nil, &LoadError{Path: path, Err: fmt.Errorf("missing required key %q", key)}
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	logger.Debug("[DEBUG] Loaded config %s: %d apt, %d snap, %d mise, %d uv tools, %d setup commands\n",
		path, len(cfg.Apt), len(cfg.Snap)+len(cfg.SnapClassic), len(cfg.MiseCore)+len(cfg.Mise), len(cfg.UvTool), len(cfg.Setup))
	return cfg, nil
}

func parseTOML(raw []byte) (*Config, []string, error) {
	var cfg Config
	md, err := toml.Decode(string(raw), &cfg)
	if err != nil {
		return nil, nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}

	var keys []string
	for _, key := range md.Keys() {
		if len(key) == 1 {
			keys = append(keys, key[0])
		}
	}
	return &cfg, keys, nil
}

func parseYAML(raw []byte) (*Config, []string, error) {
	var top map[string]yaml.Node
	if err := yaml.Unmarshal(raw, &top); err != nil {
		return nil, nil, err
	}

	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, nil, err
	}

	keys := make([]string, 0, len(top))
	for key := range top {
		keys = append(keys, key)
	}
	return &cfg, keys, nil
}

var errEmptyOperand = errors.New("uv_tool entry has an empty operand")

func (c *Config) validate() error {
	for i, tool := range c.UvTool {
		if strings.TrimSpace(tool.Operand) == "" {
			return fmt.Errorf("uv_tool[%d]: %w", i, errEmptyOperand)
		}
	}
	return nil
}
