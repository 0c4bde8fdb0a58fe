package project

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, manifestFilename)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadValidManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[module]
name = "app"
entry = "src/main.mvms"

[build]
out = "build/app.mvb"
max_diagnostics = 50
`)

	m, ok, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !ok {
		t.Fatalf("Load did not find the manifest")
	}
	if m.Module.Name != "app" {
		t.Errorf("Module.Name = %q, want %q", m.Module.Name, "app")
	}
	if got, want := m.EntryPath(), filepath.Join(dir, "src", "main.mvms"); got != want {
		t.Errorf("EntryPath() = %q, want %q", got, want)
	}
	if got, want := m.OutPath(), filepath.Join(dir, "build", "app.mvb"); got != want {
		t.Errorf("OutPath() = %q, want %q", got, want)
	}
	if m.Build.MaxDiagnostics != 50 {
		t.Errorf("MaxDiagnostics = %d, want 50", m.Build.MaxDiagnostics)
	}
}

func TestLoadDefaultsOutAndMaxDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[module]
name = "widget"
entry = "main.mvms"
`)

	m, ok, err := Load(dir)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if m.Build.MaxDiagnostics != defaultMaxDiagnostics {
		t.Errorf("MaxDiagnostics = %d, want default %d", m.Build.MaxDiagnostics, defaultMaxDiagnostics)
	}
	if got, want := m.OutPath(), filepath.Join(dir, "build", "widget.mvb"); got != want {
		t.Errorf("OutPath() = %q, want %q", got, want)
	}
}

func TestLoadMissingManifestReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	_, ok, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false when no manifest exists")
	}
}

func TestLoadRejectsMissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"no module table", `[build]` + "\n" + `out = "x"`},
		{"no name", "[module]\nentry = \"main.mvms\"\n"},
		{"no entry", "[module]\nname = \"app\"\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			dir := t.TempDir()
			writeManifest(t, dir, c.body)
			if _, _, err := Load(dir); err == nil {
				t.Fatalf("expected an error for %s", c.name)
			}
		})
	}
}

func TestFindManifestWalksUpFromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[module]\nname = \"app\"\nentry = \"main.mvms\"\n")

	sub := filepath.Join(root, "src", "nested")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	path, ok, err := FindManifest(sub)
	if err != nil {
		t.Fatalf("FindManifest: %v", err)
	}
	if !ok {
		t.Fatalf("FindManifest did not walk up to find the manifest")
	}
	if got, want := path, filepath.Join(root, manifestFilename); got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}
