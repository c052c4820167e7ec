package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/mod/module"

	"github.com/go-weft/weft/cmd/weft/internal/templates"
)

var initCmd = &cobra.Command{
	Use:   "init <directory> [module-path]",
	Short: "Create a new weft project",
	Long: `Create a new weft project in a new directory.

This command creates:
  - a new directory at the given path
  - go.mod with the chosen module path
  - main.go with a starter application
  - weft.yaml with the dev loop defaults

The project name is derived from the directory basename. The module
path defaults to the project name; pass a publishable path (for
example github.com/user/myapp) as the second argument to override it.

Examples:
  weft init myapp
  weft init myapp github.com/user/myapp
  weft init ./projects/myapp`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	raw := args[0]
	if strings.HasPrefix(raw, "~") {
		return fmt.Errorf("tilde (~) is not expanded by weft; use an absolute path or $HOME instead")
	}

	dir := filepath.Clean(raw)
	if err := validateDirectory(dir); err != nil {
		return err
	}

	projectName := filepath.Base(dir)
	if err := validateProjectName(projectName); err != nil {
		return fmt.Errorf("invalid project name %q (derived from directory basename): %w", projectName, err)
	}

	modulePath := projectName
	if len(args) > 1 {
		modulePath = args[1]
		if err := module.CheckPath(modulePath); err != nil {
			return fmt.Errorf("invalid module path %q: %w", modulePath, err)
		}
	}

	if err := scaffoldProject(dir, modulePath); err != nil {
		return err
	}

	fmt.Println("  Running go mod tidy...")
	tidy := exec.Command("go", "mod", "tidy")
	tidy.Dir = dir
	tidy.Stdout = os.Stdout
	tidy.Stderr = os.Stderr
	if err := tidy.Run(); err != nil {
		fmt.Println("  Warning: go mod tidy failed; run it manually before building")
	}

	fmt.Println()
	fmt.Println("Project created successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  cd %s\n", dir)
	fmt.Println("  weft dev    # watch, rebuild, and reload on change")
	return nil
}

// scaffoldProject creates the project directory and writes the rendered
// template files. This is the portion of init with no side effects
// beyond the filesystem, so tests can call it without network access.
func scaffoldProject(dir, modulePath string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("directory %q already exists", dir)
	}

	fmt.Printf("Creating new weft project: %s\n", filepath.Base(dir))

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data := templates.Data{
		ModulePath: modulePath,
		AppName:    filepath.Base(dir),
	}

	initFiles := []struct {
		templatePath string
		destName     string
	}{
		{"init/go.mod.tmpl", "go.mod"},
		{"init/main.go.tmpl", "main.go"},
		{"init/weft.yaml.tmpl", "weft.yaml"},
	}

	for _, f := range initFiles {
		content, err := templates.Render(f.templatePath, data)
		if err != nil {
			safeRemoveAll(dir)
			return fmt.Errorf("failed to render %s: %w", f.templatePath, err)
		}
		if err := os.WriteFile(filepath.Join(dir, f.destName), []byte(content), 0o644); err != nil {
			safeRemoveAll(dir)
			return fmt.Errorf("failed to write %s: %w", f.destName, err)
		}
		fmt.Printf("  Created %s\n", f.destName)
	}

	return nil
}

// validateDirectory rejects directory paths that would be dangerous to
// create or clean up: filesystem roots, the current/parent directory,
// and root-level absolute paths (/etc, C:\Users).
func validateDirectory(dir string) error {
	// "/" is listed explicitly: on Windows isVolumeRoot won't match it.
	switch dir {
	case "", "/", ".", "..":
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if isVolumeRoot(dir) {
		return fmt.Errorf("directory %q is not a valid project location", dir)
	}
	if filepath.IsAbs(dir) && isVolumeRoot(filepath.Dir(dir)) {
		return fmt.Errorf("refusing to create project at root-level path %q", dir)
	}
	return nil
}

// isVolumeRoot reports whether dir is a filesystem root: "/" on Unix,
// drive roots like "C:\" and the bare "\" on Windows.
func isVolumeRoot(dir string) bool {
	return dir == filepath.VolumeName(dir)+string(filepath.Separator)
}

// safeRemoveAll removes a directory only if the path passes
// validateDirectory. It silently no-ops for dangerous paths since it
// runs on cleanup paths where the original error should not be masked.
func safeRemoveAll(dir string) {
	if validateDirectory(dir) != nil {
		return
	}
	os.RemoveAll(dir)
}

var validProjectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// validateProjectName checks that a project name (the directory
// basename) starts with a letter and contains only letters, digits,
// underscores, and hyphens.
func validateProjectName(name string) error {
	if name == "" {
		return fmt.Errorf("project name cannot be empty")
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("project name cannot start with a dot")
	}
	if strings.HasPrefix(name, "-") {
		return fmt.Errorf("project name cannot start with a hyphen")
	}
	if !validProjectName.MatchString(name) {
		return fmt.Errorf("project name must start with a letter and contain only letters, numbers, underscores, and hyphens")
	}
	return nil
}
