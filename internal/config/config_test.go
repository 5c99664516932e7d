package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

// testOptions mirrors the shape of the options struct in main.
type testOptions struct {
	Config string

	Port              string   `toml:"server.port" env:"SERVER_PORT"`
	RegistryOverrides string   `toml:"registry.overrides" env:"REGISTRY_OVERRIDES"`
	RegistryWatch     bool     `toml:"registry.watch" env:"REGISTRY_WATCH"`
	NetworkTimeoutMs  int      `toml:"network.timeout_ms" env:"NETWORK_TIMEOUT_MS"`
	MaxGain           float64  `toml:"device.max_gain" env:"DEVICE_MAX_GAIN"`
	Transports        []string `toml:"device.transports" env:"DEVICE_TRANSPORTS"`
	LoggingHID        string   `toml:"logging.hid" env:"LOGGING_HID"`
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleTOML = `
[server]
port = ":9000"

[registry]
overrides = "/etc/peqlink/devices.toml"
watch = true

[network]
timeout_ms = 2500

[device]
max_gain = 12.0
transports = ["hid", "serial"]

[logging]
hid = "debug"
`

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, sampleTOML)

	tests := []struct {
		name string
		env  map[string]string
		want testOptions
	}{
		{
			name: "file only",
			want: testOptions{
				Port:              ":9000",
				RegistryOverrides: "/etc/peqlink/devices.toml",
				RegistryWatch:     true,
				NetworkTimeoutMs:  2500,
				MaxGain:           12,
				Transports:        []string{"hid", "serial"},
				LoggingHID:        "debug",
			},
		},
		{
			name: "env over file",
			env: map[string]string{
				"PEQLINK_SERVER_PORT":        ":9100",
				"PEQLINK_REGISTRY_WATCH":     "false",
				"PEQLINK_NETWORK_TIMEOUT_MS": "800",
				"PEQLINK_DEVICE_MAX_GAIN":    "6.5",
				"PEQLINK_DEVICE_TRANSPORTS":  " network , hid ",
			},
			want: testOptions{
				Port:              ":9100",
				RegistryOverrides: "/etc/peqlink/devices.toml",
				RegistryWatch:     false,
				NetworkTimeoutMs:  800,
				MaxGain:           6.5,
				Transports:        []string{"network", "hid"},
				LoggingHID:        "debug",
			},
		},
		{
			name: "unparsable env keeps file value",
			env:  map[string]string{"PEQLINK_NETWORK_TIMEOUT_MS": "soon"},
			want: testOptions{
				Port:              ":9000",
				RegistryOverrides: "/etc/peqlink/devices.toml",
				RegistryWatch:     true,
				NetworkTimeoutMs:  2500,
				MaxGain:           12,
				Transports:        []string{"hid", "serial"},
				LoggingHID:        "debug",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			opts := &testOptions{Config: path}
			if err := LoadConfig(opts, nil); err != nil {
				t.Fatalf("LoadConfig() error = %v", err)
			}
			tt.want.Config = path
			if !reflect.DeepEqual(*opts, tt.want) {
				t.Errorf("LoadConfig() = %+v\nwant %+v", *opts, tt.want)
			}
		})
	}
}

func TestLoadConfigCLIWins(t *testing.T) {
	t.Setenv("PEQLINK_SERVER_PORT", ":9100")
	t.Setenv("PEQLINK_NETWORK_TIMEOUT_MS", "800")

	opts := &testOptions{Config: writeConfig(t, sampleTOML)}
	cmd := &cobra.Command{Use: "peqlink"}
	cmd.Flags().StringVar(&opts.Port, "port", ":8090", "")
	cmd.Flags().StringVar(&opts.LoggingHID, "logging-hid", "info", "")
	if err := cmd.Flags().Set("port", ":7000"); err != nil {
		t.Fatal(err)
	}
	if err := cmd.Flags().Set("logging-hid", "warn"); err != nil {
		t.Fatal(err)
	}

	if err := LoadConfig(opts, cmd); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.Port != ":7000" {
		t.Errorf("Port = %q, want the CLI value", opts.Port)
	}
	if opts.LoggingHID != "warn" {
		t.Errorf("LoggingHID = %q, want the CLI value", opts.LoggingHID)
	}
	if opts.NetworkTimeoutMs != 800 {
		t.Errorf("NetworkTimeoutMs = %d, want the env value", opts.NetworkTimeoutMs)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	opts := &testOptions{
		Config: filepath.Join(t.TempDir(), "absent.toml"),
		Port:   ":8090",
	}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if opts.Port != ":8090" {
		t.Errorf("Port = %q, default should survive", opts.Port)
	}
}

func TestLoadConfigInvalidTOML(t *testing.T) {
	opts := &testOptions{Config: writeConfig(t, "[server\nport = ")}
	if err := LoadConfig(opts, nil); err == nil {
		t.Error("LoadConfig() should fail on malformed TOML")
	}
}

func TestLoadConfigWrongTypeKeepsDefault(t *testing.T) {
	opts := &testOptions{
		Config:           writeConfig(t, "[network]\ntimeout_ms = \"fast\"\n[device]\nmax_gain = 3\n"),
		NetworkTimeoutMs: 5000,
	}
	if err := LoadConfig(opts, nil); err != nil {
		t.Fatal(err)
	}
	if opts.NetworkTimeoutMs != 5000 {
		t.Errorf("NetworkTimeoutMs = %d, want default", opts.NetworkTimeoutMs)
	}
	if opts.MaxGain != 3 {
		t.Errorf("MaxGain = %v, integer TOML should fill a float", opts.MaxGain)
	}
}

func TestLookup(t *testing.T) {
	data := map[string]any{
		"registry": map[string]any{"watch": true, "nested": map[string]any{"x": int64(1)}},
		"port":     ":8090",
	}
	tests := []struct {
		path string
		want any
	}{
		{"port", ":8090"},
		{"registry.watch", true},
		{"registry.nested.x", int64(1)},
		{"registry.missing", nil},
		{"port.sub", nil},
		{"absent.key", nil},
	}
	for _, tt := range tests {
		if got := lookup(data, tt.path); got != tt.want {
			t.Errorf("lookup(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFieldNameToFlag(t *testing.T) {
	tests := map[string]string{
		"Port":                "port",
		"RegistryOverrides":   "registry-overrides",
		"DevicePullTimeoutMs": "device-pull-timeout-ms",
		"LoggingHID":          "logging-hid",
		"CORSOrigin":          "cors-origin",
		"NetworkRetries":      "network-retries",
	}
	for in, want := range tests {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}
