package main

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template/gotemplate"
)

// themeManifestFile is looked up inside the configured theme directory.
const themeManifestFile = "manifest.yaml"

type themeManifest struct {
	Name      string            `yaml:"name"`
	Version   string            `yaml:"version"`
	Tokens    map[string]string `yaml:"tokens"`
	Templates map[string]string `yaml:"templates"`
}

// staticSelector serves a single manifest loaded from disk.
type staticSelector struct {
	manifest *theme.Manifest
}

func (s staticSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if name != "" && name != s.manifest.Name {
		return nil, fmt.Errorf("theme %q is not loaded", name)
	}
	return &theme.Selection{Theme: s.manifest.Name, Variant: variant, Manifest: s.manifest}, nil
}

// loadTheme reads dir/manifest.yaml and returns picker options that render
// through the theme templates, falling back to the embedded ones. An empty
// dir disables theming.
func loadTheme(fsys afero.Fs, dir, variant string) ([]picker.Option, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, nil
	}

	data, err := afero.ReadFile(fsys, path.Join(dir, themeManifestFile))
	if err != nil {
		return nil, fmt.Errorf("read theme manifest: %w", err)
	}
	var raw themeManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse theme manifest: %w", err)
	}
	if strings.TrimSpace(raw.Name) == "" {
		raw.Name = path.Base(dir)
	}

	engine, err := gotemplate.New(gotemplate.WithFS(overlayFS{
		afero.NewIOFS(afero.NewBasePathFs(fsys, dir)),
		picker.TemplatesFS(),
	}))
	if err != nil {
		return nil, fmt.Errorf("theme engine: %w", err)
	}

	manifest := &theme.Manifest{
		Name:      raw.Name,
		Version:   raw.Version,
		Tokens:    raw.Tokens,
		Templates: raw.Templates,
	}
	return []picker.Option{
		picker.WithTemplateRenderer(engine),
		picker.WithThemeSelector(staticSelector{manifest: manifest}, manifest.Name, variant),
	}, nil
}

// overlayFS opens names from the first filesystem that has them.
type overlayFS []fs.FS

func (o overlayFS) Open(name string) (fs.File, error) {
	for _, layer := range o {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}
