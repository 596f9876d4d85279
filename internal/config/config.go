// Package config provides the API URL, install ID, and key bindings the
// CLI wires into internal/ptysup and internal/player. Loading reads
// YAML, falls back to built-in defaults when the file is absent, and persists
// generated defaults back on first run.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EnvList handles YAML fields that accept either a scalar or a list.
type EnvList []string

func (e *EnvList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		if value.Value == "" {
			*e = nil
			return nil
		}
		*e = EnvList{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*e = EnvList(list)
	return nil
}

// KeyBinding accepts either a single control-sequence string or a list
// of aliases. Only the first entry is used (see Byte); later entries are
// kept when parsed but do not trigger any command.
type KeyBinding []string

func (k *KeyBinding) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*k = KeyBinding{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*k = KeyBinding(list)
	return nil
}

// Byte resolves the binding's primary entry to a control byte via
// ParseKey. Returns ok=false when the binding is empty.
func (k KeyBinding) Byte() (b byte, ok bool, err error) {
	if len(k) == 0 {
		return 0, false, nil
	}
	b, err = ParseKey(k[0])
	if err != nil {
		return 0, false, err
	}
	return b, true, nil
}

// ParseKey resolves a key-binding string to a single control byte.
// "C-x" denotes Ctrl-x (x & 0x1f); a single literal character is used
// as-is. Anything else is a ConfigError.
func ParseKey(s string) (byte, error) {
	if strings.HasPrefix(s, "C-") && len(s) == 3 {
		c := s[2]
		if c >= '@' && c <= '_' {
			return c - '@', nil
		}
		if c >= 'a' && c <= 'z' {
			return c - 'a' + 1, nil
		}
	}
	if len(s) == 1 {
		return s[0], nil
	}
	return 0, fmt.Errorf("%w: unrecognized key binding %q", ErrConfig, s)
}

// RecordKeys are the key bindings governing the capture-control state
// machine.
type RecordKeys struct {
	Prefix    KeyBinding `yaml:"prefix,omitempty"`
	Pause     KeyBinding `yaml:"pause,omitempty"`
	AddMarker KeyBinding `yaml:"add_marker,omitempty"`
}

// PlayKeys are the key bindings governing playback control.
type PlayKeys struct {
	Pause      KeyBinding `yaml:"pause,omitempty"`
	Step       KeyBinding `yaml:"step,omitempty"`
	NextMarker KeyBinding `yaml:"next_marker,omitempty"`
}

// Config is castty's on-disk configuration file.
type Config struct {
	APIURL     string     `yaml:"api_url,omitempty"`
	InstallID  string     `yaml:"install_id,omitempty"`
	CaptureEnv EnvList    `yaml:"capture_env,omitempty"`
	Record     RecordKeys `yaml:"record,omitempty"`
	Play       PlayKeys   `yaml:"play,omitempty"`

	path string // set by Load, used by Save
}

// defaultConfig's record keys match asciinema's historical defaults: prefix
// unset, pause/marker bound directly to C-\ and C-a respectively.
func defaultConfig() *Config {
	return &Config{
		CaptureEnv: EnvList{"SHELL", "TERM"},
		Record: RecordKeys{
			Pause:     KeyBinding{"C-\\"},
			AddMarker: KeyBinding{"C-a"},
		},
		Play: PlayKeys{
			Pause:      KeyBinding{" "},
			Step:       KeyBinding{"."},
			NextMarker: KeyBinding{"]"},
		},
	}
}

// Load reads the config file, falling back to defaults when it's absent,
// and provisions an install ID (persisted back) when missing.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	cfg := defaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		loaded := defaultConfig()
		if err := yaml.Unmarshal(data, loaded); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		loaded.path = path
		cfg = loaded
	}

	if cfg.InstallID == "" {
		cfg.InstallID = uuid.NewString()
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("config: persist install id: %w", err)
		}
	}
	return cfg, nil
}

// Save writes the config back to its path, creating the directory if
// needed.
func (c *Config) Save() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := ensureDir(dir); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}
