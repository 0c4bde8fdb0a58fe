// Package project resolves a microvium.toml manifest to a module's
// entry point and build settings (SPEC_FULL.md §6's "Project manifest"),
// the same role the teacher's cmd/surge/project_manifest.go and
// internal/project/root.go play for surge.toml.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const manifestFilename = "microvium.toml"

// Manifest is the decoded [module]/[build] shape of microvium.toml.
type Manifest struct {
	Path   string
	Root   string
	Module ModuleConfig `toml:"module"`
	Build  BuildConfig  `toml:"build"`
}

type ModuleConfig struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

type BuildConfig struct {
	Out            string `toml:"out"`
	MaxDiagnostics int    `toml:"max_diagnostics"`
}

// defaultMaxDiagnostics matches diag.Bag's own zero-value behavior: a
// manifest that omits [build].max_diagnostics doesn't mean "unlimited",
// it means "use the tool's sensible default".
const defaultMaxDiagnostics = 100

// FindManifest walks up from startDir looking for microvium.toml,
// mirroring the teacher's FindSurgeToml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, manifestFilename)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load finds and parses the nearest microvium.toml above startDir,
// validating the required fields the build driver needs before it ever
// touches a source file.
func Load(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	m, err := loadManifest(path)
	if err != nil {
		return nil, true, err
	}
	return m, true, nil
}

func loadManifest(path string) (*Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("module") {
		return nil, fmt.Errorf("%s: missing [module]", path)
	}
	if !meta.IsDefined("module", "name") || strings.TrimSpace(m.Module.Name) == "" {
		return nil, fmt.Errorf("%s: missing [module].name", path)
	}
	if !meta.IsDefined("module", "entry") || strings.TrimSpace(m.Module.Entry) == "" {
		return nil, fmt.Errorf("%s: missing [module].entry", path)
	}
	if !meta.IsDefined("build", "max_diagnostics") || m.Build.MaxDiagnostics <= 0 {
		m.Build.MaxDiagnostics = defaultMaxDiagnostics
	}
	m.Path = path
	m.Root = filepath.Dir(path)
	return &m, nil
}

// EntryPath resolves [module].entry against the manifest's own
// directory, so a manifest can be invoked from anywhere.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Root, filepath.FromSlash(m.Module.Entry))
}

// OutPath resolves [build].out, defaulting to build/<module name>.mvb
// alongside the manifest when the field is absent.
func (m *Manifest) OutPath() string {
	if strings.TrimSpace(m.Build.Out) == "" {
		return filepath.Join(m.Root, "build", m.Module.Name+".mvb")
	}
	return filepath.Join(m.Root, filepath.FromSlash(m.Build.Out))
}
