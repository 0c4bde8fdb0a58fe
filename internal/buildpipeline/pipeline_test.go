package buildpipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"microvium/internal/buildpipeline"
)

func writeProject(t *testing.T, dir string) {
	t.Helper()
	files := map[string]string{
		"microvium.toml": `
[module]
name = "app"
entry = "main.mvms"

[build]
out = "build/app.mvb"
`,
		"main.mvms": `
import { helper } from "./lib.mvms";
vmExport(0, () => 42);
`,
		"lib.mvms": `
export function helper() {
	return 1;
}
`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
	}
}

func TestRunProducesSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	result, err := buildpipeline.Run(context.Background(), buildpipeline.Options{ProjectDir: dir})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Diagnostics.HasErrors() {
		t.Fatalf("unexpected diagnostics: %d", result.Diagnostics.Len())
	}
	if len(result.Snapshot.Bytes) == 0 {
		t.Fatalf("expected a non-empty snapshot")
	}
	data, err := os.ReadFile(result.OutputPath)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", result.OutputPath, err)
	}
	if len(data) != len(result.Snapshot.Bytes) {
		t.Fatalf("written snapshot has %d bytes, want %d", len(data), len(result.Snapshot.Bytes))
	}
}

func TestRunRejectsLLVMBackend(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)

	if _, err := buildpipeline.Run(context.Background(), buildpipeline.Options{
		ProjectDir: dir,
		Backend:    buildpipeline.BackendLLVM,
	}); err == nil {
		t.Fatalf("expected an error selecting the unimplemented LLVM backend")
	}
}

func TestRunReportsDiagnosticsFromSiblingModule(t *testing.T) {
	dir := t.TempDir()
	writeProject(t, dir)
	// Break lib.mvms with a syntax error; main.mvms itself stays valid.
	if err := os.WriteFile(filepath.Join(dir, "lib.mvms"), []byte("export function helper( {\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := buildpipeline.Run(context.Background(), buildpipeline.Options{ProjectDir: dir})
	if err == nil {
		t.Fatalf("expected Run to fail on a broken sibling module")
	}
}

func TestRunMissingManifest(t *testing.T) {
	dir := t.TempDir()
	if _, err := buildpipeline.Run(context.Background(), buildpipeline.Options{ProjectDir: dir}); err == nil {
		t.Fatalf("expected an error when no microvium.toml exists")
	}
}
