package draftfiles

import (
	"net/http"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

// Component bundles a draft store with the manager configuration and its
// routing helpers.
type Component struct {
	store draft.Store
	opts  Options
}

func New(store draft.Store, fns ...OptionFn) *Component {
	return &Component{store: store, opts: NewOptions(fns...)}
}

// Options returns a copy of the component configuration.
func (c *Component) Options() Options {
	if c == nil {
		return DefaultOptions()
	}
	return NewOptions(func(o *Options) { *o = c.opts })
}

// Store returns the backing draft store.
func (c *Component) Store() draft.Store {
	if c == nil {
		return nil
	}
	return c.store
}

func (c *Component) Handler() http.Handler {
	if c == nil {
		return Handler(nil)
	}
	return HandlerWithOptions(c.store, c.opts)
}

// RegisterRoutes registers the component handler under basePath on mux.
func (c *Component) RegisterRoutes(mux Mux, basePath string) (string, error) {
	if c == nil {
		return RegisterRoutes(mux, basePath, nil)
	}
	return RegisterRoutesWithOptions(mux, basePath, c.store, c.opts)
}
