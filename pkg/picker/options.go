package picker

import (
	"strings"

	theme "github.com/goliatone/go-theme"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/logging"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template"
)

const (
	// UnlimitedBytes marks a field whose user may ignore upload size limits.
	// No size hint is rendered and finalize never discards for size.
	UnlimitedBytes int64 = -1

	// EnvFilePicker is the default picker environment.
	EnvFilePicker = "filepicker"
	// EnvURL disables the drag and drop area.
	EnvURL = "url"

	DefaultModulePath  = "/lib/form/omerofilepicker.js"
	DefaultManagerPath = "/repository/draftfiles-manager"
)

// ReturnTypes is a bitmask of the reference kinds the picker may return.
type ReturnTypes uint

const (
	ReturnExternal ReturnTypes = 1 << iota
	ReturnInternal
	ReturnReference
	ReturnControlledLink
)

// DefaultReturnTypes is used when no return types are configured.
const DefaultReturnTypes = ReturnInternal | ReturnReference

// Has reports whether every bit of flag is set.
func (r ReturnTypes) Has(flag ReturnTypes) bool {
	return flag != 0 && r&flag == flag
}

// Options holds the field configuration. Zero values are replaced by
// defaults in NewOptions.
type Options struct {
	MaxBytes      int64
	AcceptedTypes draft.AcceptedTypes
	ReturnTypes   ReturnTypes
	Env           string
	HelpButton    string
	ID            string
	ModulePath    string
	ManagerPath   string
	OmeroEndpoint string

	Logger   *logging.Logger
	Renderer *Renderer

	// ClientID produces the per render widget id.
	ClientID func() string
}

// Option mutates Options.
type Option func(*Options)

// NewOptions applies opts over the defaults and normalises the result.
func NewOptions(opts ...Option) Options {
	options := Options{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&options)
	}
	return normalizeOptions(options)
}

func normalizeOptions(opts Options) Options {
	if opts.MaxBytes < 0 {
		opts.MaxBytes = UnlimitedBytes
	}
	opts.AcceptedTypes = draft.NormalizeAcceptedTypes(opts.AcceptedTypes)
	if opts.ReturnTypes == 0 {
		opts.ReturnTypes = DefaultReturnTypes
	}
	opts.Env = strings.TrimSpace(opts.Env)
	if opts.Env == "" {
		opts.Env = EnvFilePicker
	}
	opts.HelpButton = render.SanitizeMarkup(opts.HelpButton)
	opts.ID = strings.TrimSpace(opts.ID)
	opts.ModulePath = strings.TrimSpace(opts.ModulePath)
	if opts.ModulePath == "" {
		opts.ModulePath = DefaultModulePath
	}
	opts.ManagerPath = normalizePath(opts.ManagerPath, DefaultManagerPath)
	opts.OmeroEndpoint = strings.TrimSpace(opts.OmeroEndpoint)
	opts.Logger = logging.OrNop(opts.Logger)
	if opts.ClientID == nil {
		opts.ClientID = newClientID
	}
	return opts
}

func normalizePath(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

// WithMaxBytes sets the per file size limit. Zero defers to the site limit,
// UnlimitedBytes lifts it.
func WithMaxBytes(n int64) Option {
	return func(o *Options) {
		o.MaxBytes = n
	}
}

// WithAcceptedTypes restricts the file types offered by the picker.
func WithAcceptedTypes(types ...string) Option {
	return func(o *Options) {
		o.AcceptedTypes = append(o.AcceptedTypes, types...)
	}
}

func WithReturnTypes(types ReturnTypes) Option {
	return func(o *Options) {
		o.ReturnTypes = types
	}
}

// WithEnv sets the picker environment. EnvURL turns off drag and drop.
func WithEnv(env string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithHelpButton attaches help icon markup. The markup is sanitized.
func WithHelpButton(html string) Option {
	return func(o *Options) {
		o.HelpButton = html
	}
}

// WithID overrides the DOM id of the hidden input.
func WithID(id string) Option {
	return func(o *Options) {
		o.ID = id
	}
}

func WithModulePath(path string) Option {
	return func(o *Options) {
		o.ModulePath = path
	}
}

// WithManagerPath sets the path of the draft file manager used by the
// no-script fallback.
func WithManagerPath(path string) Option {
	return func(o *Options) {
		o.ManagerPath = path
	}
}

// WithOmeroEndpoint records the Omero endpoint for debug diagnostics.
func WithOmeroEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.OmeroEndpoint = endpoint
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithRenderer replaces the embedded template renderer.
func WithRenderer(r *Renderer) Option {
	return func(o *Options) {
		if r != nil {
			o.Renderer = r
		}
	}
}

// WithTemplateRenderer renders the field through engine, using the
// embedded template names unless a theme overrides them.
func WithTemplateRenderer(engine template.TemplateRenderer) Option {
	return func(o *Options) {
		if engine == nil {
			return
		}
		o.Renderer = o.rendererOrNew()
		o.Renderer.templates = engine
	}
}

// WithThemeSelector resolves template overrides through a go-theme selector.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return func(o *Options) {
		if selector == nil {
			return
		}
		o.Renderer = o.rendererOrNew()
		o.Renderer.selector = selector
		o.Renderer.themeName = strings.TrimSpace(name)
		o.Renderer.themeVariant = strings.TrimSpace(variant)
	}
}

// WithClientID replaces the widget id generator.
func WithClientID(fn func() string) Option {
	return func(o *Options) {
		if fn != nil {
			o.ClientID = fn
		}
	}
}

func (o *Options) rendererOrNew() *Renderer {
	if o.Renderer != nil {
		return o.Renderer
	}
	return &Renderer{}
}
