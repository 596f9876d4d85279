package config

import (
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestKeyBindingUnmarshalScalarAndList(t *testing.T) {
	var rk RecordKeys
	input := `
prefix: C-\
add_marker: [C-a, C-m]
`
	if err := yaml.Unmarshal([]byte(input), &rk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rk.Prefix) != 1 || rk.Prefix[0] != `C-\` {
		t.Errorf("prefix = %+v", rk.Prefix)
	}
	if len(rk.AddMarker) != 2 {
		t.Errorf("add_marker = %+v", rk.AddMarker)
	}
}

func TestParseKeyControlAndLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want byte
	}{
		{"C-a", 0x01},
		{`C-\`, 0x1c},
		{"x", 'x'},
	}
	for _, tt := range tests {
		got, err := ParseKey(tt.in)
		if err != nil {
			t.Errorf("ParseKey(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKey(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestParseKeyRejectsUnrecognized(t *testing.T) {
	if _, err := ParseKey("not-a-key"); err == nil {
		t.Error("expected an error for an unrecognized binding")
	}
}

func TestLoadProvisionsInstallID(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.InstallID == "" {
		t.Fatal("expected a generated install id")
	}

	path := filepath.Join(dir, "castty", "config.yaml")
	cfg2, err := Load()
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if cfg2.InstallID != cfg.InstallID {
		t.Errorf("install id not persisted: got %q, want %q (config at %s)", cfg2.InstallID, cfg.InstallID, path)
	}
}
