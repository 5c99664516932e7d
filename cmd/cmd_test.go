package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smazurov/peqlink/internal/registry"
)

func TestRegistryCmdPrintsMergedCatalogue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.toml")
	overrides := `
[[vendors]]
name = "WiiM"

[vendors.default_model_config]
max_filters = 5
`
	if err := os.WriteFile(path, []byte(overrides), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := CreateRegistryCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--overrides", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	printed, err := registry.ParseOverrides(out.Bytes())
	if err != nil {
		t.Fatalf("output does not parse as an override file: %v", err)
	}
	if len(printed.Vendors) != len(registry.Builtin().Vendors) {
		t.Errorf("printed %d vendors, want %d", len(printed.Vendors), len(registry.Builtin().Vendors))
	}

	reg := registry.New()
	reg.Apply(printed)
	res, ok := reg.ResolveNamed("WiiM", "")
	if !ok || res.Capability.MaxFilters != 5 {
		t.Errorf("WiiM after round trip = %+v", res.Capability)
	}
}

func TestPushCmdRequiresInputAndSlot(t *testing.T) {
	cmd := CreatePushCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--transport", "network", "--ip", "192.168.1.60"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "required flag") {
		t.Errorf("Execute() error = %v, want missing required flags", err)
	}
}
