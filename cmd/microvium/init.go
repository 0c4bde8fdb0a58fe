package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new microvium project",
	Long: `Initialize a new microvium project by creating a project manifest
(microvium.toml) and a hello-world entry module (main.mvms). If
[path|name] is omitted, initializes the current directory. If a
non-existing name is provided, a directory will be created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

// runInit creates a microvium.toml manifest and a main.mvms entry module
// at the resolved target directory, deriving the project name from the
// directory basename and refusing to run if a manifest already exists.
func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "microvium-project"
	}

	manifestPath := filepath.Join(target, "microvium.toml")
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}

	if err := os.WriteFile(manifestPath, []byte(buildDefaultManifest(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	mainPath := filepath.Join(target, "main.mvms")
	createdMain := false
	if _, err := os.Stat(mainPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(mainPath, []byte(defaultMainModule()), 0o600); err != nil {
			return fmt.Errorf("failed to write main.mvms: %w", err)
		}
		createdMain = true
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized microvium project in %s\n", rel)
	fmt.Fprintf(cmd.OutOrStdout(), "  - microvium.toml\n")
	if createdMain {
		fmt.Fprintf(cmd.OutOrStdout(), "  - main.mvms\n")
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "  - main.mvms (existing)\n")
	}
	return nil
}

// buildDefaultManifest returns a minimal microvium.toml naming main.mvms
// as the project's entry module, per internal/project.Manifest's shape.
func buildDefaultManifest(name string) string {
	return fmt.Sprintf(`# microvium project manifest
[module]
name = "%s"
entry = "main.mvms"

[build]
out = "build/%s.mvb"
max_diagnostics = 100
`, name, name)
}

// defaultMainModule is the placeholder program microvium init writes: a
// function declaration whose result is passed to print().
func defaultMainModule() string {
	return `// microvium hello world
function hello() {
    return "Hello, Microvium!";
}

print(hello());
`
}
