package picker

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-omerofilepicker/pkg/render/template"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template/gotemplate"
)

// Theme partial keys. A theme manifest may map either key to its own
// template name.
const (
	PartialPicker = "forms.filepicker"
	PartialFrozen = "forms.filepicker.frozen"
)

//go:embed templates/*.tmpl
var embeddedTemplates embed.FS

// TemplatesFS exposes the built-in templates so custom engines can load
// them next to their own.
func TemplatesFS() fs.FS {
	return embeddedTemplates
}

func defaultPartials() map[string]string {
	return map[string]string{
		PartialPicker: "templates/filepicker.tmpl",
		PartialFrozen: "templates/frozen.tmpl",
	}
}

var defaultEngine = sync.OnceValues(func() (template.TemplateRenderer, error) {
	engine, err := gotemplate.New(gotemplate.WithFS(embeddedTemplates))
	if err != nil {
		return nil, err
	}
	return engine, nil
})

// Renderer turns field view data into markup. The zero value renders the
// embedded templates with the shared pongo2 engine.
type Renderer struct {
	templates template.TemplateRenderer

	selector     theme.ThemeSelector
	themeName    string
	themeVariant string
}

// NewRenderer returns a Renderer backed by engine. A nil engine selects the
// embedded templates.
func NewRenderer(engine template.TemplateRenderer) *Renderer {
	return &Renderer{templates: engine}
}

func (r *Renderer) engine() (template.TemplateRenderer, error) {
	if r != nil && r.templates != nil {
		return r.templates, nil
	}
	engine, err := defaultEngine()
	if err != nil {
		return nil, fmt.Errorf("picker: init template engine: %w", err)
	}
	return engine, nil
}

// Render executes the template registered for partial.
func (r *Renderer) Render(partial string, data map[string]any) (string, error) {
	engine, err := r.engine()
	if err != nil {
		return "", err
	}
	name, selection, err := r.resolve(partial)
	if err != nil {
		return "", err
	}
	if selection != nil {
		data["theme"] = map[string]any{
			"name":    selection.Theme,
			"variant": selection.Variant,
			"tokens":  manifestTokens(selection),
		}
	}
	out, err := engine.RenderTemplate(name, data)
	if err != nil {
		return "", fmt.Errorf("picker: render %s: %w", partial, err)
	}
	return out, nil
}

func (r *Renderer) resolve(partial string) (string, *theme.Selection, error) {
	name, ok := defaultPartials()[partial]
	if !ok {
		return "", nil, fmt.Errorf("picker: unknown partial %q", partial)
	}
	if r == nil || r.selector == nil {
		return name, nil, nil
	}

	selection, err := r.selector.Select(r.themeName, r.themeVariant)
	if err != nil {
		return "", nil, fmt.Errorf("picker: select theme %q: %w", r.themeName, err)
	}
	if selection == nil || selection.Manifest == nil {
		return name, selection, nil
	}
	if override := strings.TrimSpace(selection.Manifest.Templates[partial]); override != "" {
		name = override
	}
	return name, selection, nil
}

func manifestTokens(selection *theme.Selection) map[string]string {
	if selection == nil || selection.Manifest == nil || len(selection.Manifest.Tokens) == 0 {
		return nil
	}
	out := make(map[string]string, len(selection.Manifest.Tokens))
	for key, value := range selection.Manifest.Tokens {
		out[key] = value
	}
	return out
}
