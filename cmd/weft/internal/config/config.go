// Package config resolves the optional weft.yaml project manifest.
//
// Discovery follows Go tooling conventions: the project root is the
// nearest parent directory holding go.mod, the module path comes from
// go.mod itself, and weft.yaml refines the app name and the dev loop
// settings on top of that.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/modfile"
	"golang.org/x/mod/module"
	"gopkg.in/yaml.v3"
)

// Config is the shape of the optional weft.yaml manifest.
type Config struct {
	App AppConfig `yaml:"app"`
	Dev DevConfig `yaml:"dev"`
}

// AppConfig carries application metadata.
type AppConfig struct {
	Name string `yaml:"name,omitempty"`
}

// DevConfig tunes the weft dev loop.
type DevConfig struct {
	Host  string   `yaml:"host,omitempty"`
	Port  int      `yaml:"port,omitempty"`
	Build []string `yaml:"build,omitempty"`
	// Debounce is a duration string (e.g. "250ms").
	Debounce string `yaml:"debounce,omitempty"`
}

// Resolved contains the effective configuration after defaults.
type Resolved struct {
	Root       string
	ModulePath string
	AppName    string
	Host       string
	Port       int
	Build      []string
	Debounce   time.Duration
}

const (
	defaultHost     = "127.0.0.1"
	defaultPort     = 8090
	defaultDebounce = 250 * time.Millisecond
)

func defaultBuild() []string {
	return []string{"go", "build", "./..."}
}

// LoadOptional reads weft.yaml in dir if present. A missing file is not
// an error; it yields the zero Config.
func LoadOptional(dir string) (*Config, error) {
	path := filepath.Join(dir, "weft.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read weft.yaml: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse weft.yaml: %w", err)
	}
	return &cfg, nil
}

// Resolve loads weft.yaml (if present) in dir and fills in defaults.
func Resolve(dir string) (*Resolved, error) {
	modulePath, err := modulePathOf(dir)
	if err != nil {
		return nil, err
	}

	cfg, err := LoadOptional(dir)
	if err != nil {
		return nil, err
	}

	appName := strings.TrimSpace(cfg.App.Name)
	if appName == "" {
		appName = defaultAppName(modulePath, dir)
	}
	if err := validateAppName(appName); err != nil {
		return nil, err
	}

	host := strings.TrimSpace(cfg.Dev.Host)
	if host == "" {
		host = defaultHost
	}

	port := cfg.Dev.Port
	if port == 0 {
		port = defaultPort
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("dev.port %d is out of range (1-65535)", port)
	}

	build := cfg.Dev.Build
	if len(build) == 0 {
		build = defaultBuild()
	}
	for _, arg := range build {
		if strings.TrimSpace(arg) == "" {
			return nil, fmt.Errorf("dev.build contains an empty element (%q)", build)
		}
	}

	debounce := defaultDebounce
	if s := strings.TrimSpace(cfg.Dev.Debounce); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid dev.debounce %q: %w", s, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("dev.debounce must be positive (got %q)", s)
		}
		debounce = d
	}

	return &Resolved{
		Root:       dir,
		ModulePath: modulePath,
		AppName:    appName,
		Host:       host,
		Port:       port,
		Build:      build,
		Debounce:   debounce,
	}, nil
}

// FindProjectRoot walks up from the working directory to the nearest
// go.mod.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not in a Go module (no go.mod found)")
		}
		dir = parent
	}
}

func modulePathOf(dir string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, "go.mod"))
	if err != nil {
		return "", fmt.Errorf("failed to read go.mod: %w", err)
	}
	path := modfile.ModulePath(data)
	if path == "" {
		return "", fmt.Errorf("could not determine module path from go.mod")
	}
	return path, nil
}

// defaultAppName derives a name from the module path's last element,
// falling back to the directory basename.
func defaultAppName(modulePath, dir string) string {
	base := filepath.Base(dir)
	modName, _, ok := module.SplitPathVersion(modulePath)
	if ok {
		parts := strings.Split(modName, "/")
		if len(parts) > 0 && parts[len(parts)-1] != "" {
			base = parts[len(parts)-1]
		}
	}
	if base == "" {
		return "weft_app"
	}
	return base
}

var validAppName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

func validateAppName(name string) error {
	if !validAppName.MatchString(name) {
		return fmt.Errorf("app.name %q must start with a letter and contain only letters, numbers, underscores, and hyphens", name)
	}
	return nil
}
