// Package templates provides the embedded files for project scaffolding.
package templates

import (
	"embed"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed init
var FS embed.FS

// Data holds the substitution values for the init templates.
type Data struct {
	ModulePath string // e.g. "github.com/user/myapp"
	AppName    string // e.g. "myapp"
}

// Render reads the embedded template at path and executes it with data.
func Render(path string, data Data) (string, error) {
	content, err := FS.ReadFile(path)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(path).Parse(string(content))
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// InitFiles returns the paths of all embedded init templates.
func InitFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(FS, "init", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	return files, err
}
