package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/floww/internal/config"
	"github.com/danmuck/floww/internal/testutil/testlog"
)

func TestDefaultPath(t *testing.T) {
	testlog.Start(t)
	for kind, want := range map[string]string{"floww": "floww.toml", "sheet": "sheet.toml"} {
		got, err := defaultPath(kind)
		if err != nil || got != want {
			t.Fatalf("defaultPath(%q) = %q, %v; want %q", kind, got, err, want)
		}
	}
	if _, err := defaultPath("ghost"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}

func TestValidateTemplates(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	for _, kind := range []string{"floww", "sheet"} {
		path := filepath.Join(dir, kind+".toml")
		if err := config.WriteTemplate(path, kind, false); err != nil {
			t.Fatalf("write %s template: %v", kind, err)
		}
		if err := validate(kind, path); err != nil {
			t.Fatalf("validate %s: %v", kind, err)
		}
	}
}

func TestValidateRejectsBrokenFiles(t *testing.T) {
	testlog.Start(t)
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[encoder]\nmax_payload_bytes = 0\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := validate("floww", bad); err == nil {
		t.Fatalf("expected invalid config error")
	}
	if err := validate("sheet", bad); err == nil {
		t.Fatalf("expected invalid sheet error")
	}
	if err := validate("ghost", bad); err == nil {
		t.Fatalf("expected unknown kind error")
	}
}
