package draftfiles

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/logging"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template"
)

const (
	DefaultRoutePath   = "/repository/draftfiles-manager"
	DefaultUploadField = "repo_upload_file"
	DefaultMemoryLimit = 8 << 20
)

// ScopeFunc resolves the draft scope of the requesting user. Returning a
// StatusError selects the response code; any other error yields 403.
type ScopeFunc func(r *http.Request) (draft.Scope, error)

// SessKeyFunc returns the session key the request must echo back.
type SessKeyFunc func(r *http.Request) string

type Options struct {
	RoutePath   string
	UploadField string

	// MaxBytes caps every upload; a request's maxbytes may only lower it.
	// Zero means no limit.
	MaxBytes      int64
	AcceptedTypes draft.AcceptedTypes
	MemoryLimit   int64

	Scope   ScopeFunc
	SessKey SessKeyFunc

	Locale     string
	Translator render.Translator
	Templates  template.TemplateRenderer
	Logger     *logging.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath:     DefaultRoutePath,
		UploadField:   DefaultUploadField,
		AcceptedTypes: draft.AcceptedTypes{draft.Wildcard},
		MemoryLimit:   DefaultMemoryLimit,
		Locale:        "en",
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if strings.TrimSpace(opts.RoutePath) == "" {
		opts.RoutePath = DefaultRoutePath
	}
	if strings.TrimSpace(opts.UploadField) == "" {
		opts.UploadField = DefaultUploadField
	}
	if opts.MaxBytes < 0 {
		opts.MaxBytes = 0
	}
	if opts.MemoryLimit <= 0 {
		opts.MemoryLimit = DefaultMemoryLimit
	}
	opts.AcceptedTypes = draft.NormalizeAcceptedTypes(opts.AcceptedTypes)
	if strings.TrimSpace(opts.Locale) == "" {
		opts.Locale = "en"
	}
	if opts.Translator == nil {
		opts.Translator = render.DefaultCatalog()
	}
	opts.Logger = logging.OrNop(opts.Logger)
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithUploadField(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.UploadField = name
	}
}

func WithMaxBytes(n int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MaxBytes = n
	}
}

func WithAcceptedTypes(types ...string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.AcceptedTypes = append(draft.AcceptedTypes{}, types...)
	}
}

func WithMemoryLimit(n int64) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MemoryLimit = n
	}
}

func WithScope(fn ScopeFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Scope = fn
	}
}

// WithFixedScope serves every request as the given user.
func WithFixedScope(scope draft.Scope) OptionFn {
	return WithScope(func(*http.Request) (draft.Scope, error) {
		return scope, nil
	})
}

func WithSessKey(fn SessKeyFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.SessKey = fn
	}
}

// WithStaticSessKey expects every request to carry key.
func WithStaticSessKey(key string) OptionFn {
	return WithSessKey(func(*http.Request) string { return key })
}

func WithLocale(locale string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Locale = locale
	}
}

func WithTranslator(t render.Translator) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Translator = t
	}
}

func WithTemplates(t template.TemplateRenderer) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Templates = t
	}
}

func WithLogger(l *logging.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = l
	}
}

// effectiveMaxBytes resolves the maxbytes query parameter against the
// component limit. A request may tighten the limit but never raise it, and
// only a zero component limit allows unlimited uploads. Zero means unlimited.
func effectiveMaxBytes(requested int64, opts Options) int64 {
	switch {
	case opts.MaxBytes <= 0:
		if requested > 0 {
			return requested
		}
		return 0
	case requested <= 0 || requested > opts.MaxBytes:
		return opts.MaxBytes
	default:
		return requested
	}
}
