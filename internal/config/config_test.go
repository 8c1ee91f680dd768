package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/TheusHen/dhmitm/dhmitm/crypto"
)

func TestDefaults(t *testing.T) {
	testChdir(t, t.TempDir())
	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Config{
		Params:    ParamsConfig{Prime: 23, Generator: 5},
		Keys:      KeysConfig{Min: 2, Max: 20},
		Responder: ResponderConfig{Listen: "ws://127.0.0.1:8080"},
		Relay: RelayConfig{
			Listen:       "ws://127.0.0.1:8081",
			Upstream:     "ws://127.0.0.1:8080",
			CrackWorkers: 4,
		},
		Initiator: InitiatorConfig{Primary: "ws://127.0.0.1:8081", Fallback: "ws://127.0.0.1:8080"},
		Log:       LogConfig{Level: "info"},
	}
	if diff := cmp.Diff(want, *cfg); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.CryptoParams() != crypto.DefaultParams {
		t.Fatalf("CryptoParams = %v", cfg.CryptoParams())
	}
}

func TestEnvOverrides(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("DHMITM_PARAMS_PRIME", "29")
	t.Setenv("DHMITM_PARAMS_GENERATOR", "2")
	t.Setenv("DHMITM_SESSION_KEY_TIMEOUT", "3s")
	t.Setenv("DHMITM_LOG_LEVEL", "debug")

	cfg, err := Load(New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Params.Prime != 29 || cfg.Params.Generator != 2 {
		t.Fatalf("params = %+v", cfg.Params)
	}
	if cfg.Session.KeyTimeout != 3*time.Second {
		t.Fatalf("key timeout = %v", cfg.Session.KeyTimeout)
	}
	if lvl, _ := cfg.LogLevel(); lvl != logrus.DebugLevel {
		t.Fatalf("level = %v", lvl)
	}
}

func TestConfigFileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhmitm.yaml")
	body := []byte("relay:\n  listen: quic://127.0.0.1:9443\n  crack_workers: 8\nkeys:\n  max: 10\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}

	v := New()
	fs := pflag.NewFlagSet("relay", pflag.ContinueOnError)
	fs.Int("workers", 1, "")
	fs.String("capture", "", "")
	if err := BindFlags(v, fs, map[string]string{"relay.crack_workers": "workers", "relay.capture": "capture"}); err != nil {
		t.Fatalf("BindFlags: %v", err)
	}
	if err := fs.Parse([]string{"--capture", "out.cap"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(v, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Relay.Listen != "quic://127.0.0.1:9443" || cfg.Keys.Max != 10 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	// An unset flag must not shadow the file.
	if cfg.Relay.CrackWorkers != 8 {
		t.Fatalf("crack workers = %d, want 8", cfg.Relay.CrackWorkers)
	}
	if cfg.Relay.Capture != "out.cap" {
		t.Fatalf("capture = %q", cfg.Relay.Capture)
	}

	if err := BindFlags(v, fs, map[string]string{"relay.listen": "missing"}); err == nil {
		t.Fatal("BindFlags accepted an unknown flag")
	}
}

func TestValidate(t *testing.T) {
	testChdir(t, t.TempDir())
	cases := map[string]map[string]string{
		"key range beyond prime": {"DHMITM_KEYS_MAX": "23"},
		"generator too large":    {"DHMITM_PARAMS_GENERATOR": "30"},
		"no workers":             {"DHMITM_RELAY_CRACK_WORKERS": "0"},
		"bad log level":          {"DHMITM_LOG_LEVEL": "loud"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, val := range env {
				t.Setenv(k, val)
			}
			if _, err := Load(New(), ""); err == nil {
				t.Fatal("Load accepted invalid config")
			}
		})
	}

	if _, err := Load(New(), filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load ignored a missing explicit config file")
	}
	cfg := Config{Params: ParamsConfig{Prime: 2, Generator: 1}}
	if err := cfg.Validate(); !errors.Is(err, crypto.ErrInvalidParams) {
		t.Fatalf("Validate = %v, want ErrInvalidParams", err)
	}
}
