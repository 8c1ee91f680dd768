package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/TheusHen/dhmitm/internal/config"
)

func TestParamsCommand(t *testing.T) {
	testChdir(t, t.TempDir())
	c, err := config.Load(config.New(), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg = c

	var out bytes.Buffer
	cmd := paramsCmd()
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("params: %v", err)
	}
	if !strings.Contains(out.String(), "p=23 g=5") {
		t.Fatalf("missing group line:\n%s", out.String())
	}
	// 5^6 mod 23 = 8
	if !strings.Contains(out.String(), "      6       8\n") {
		t.Fatalf("missing row for private key 6:\n%s", out.String())
	}
}
