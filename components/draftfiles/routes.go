package draftfiles

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
)

// Mux is the minimal interface required to register a net/http handler.
// It is satisfied by *http.ServeMux.
type Mux interface {
	Handle(pattern string, handler http.Handler)
}

// MountPath returns the full mount path for the manager under basePath.
func MountPath(basePath string, fns ...OptionFn) string {
	opts := NewOptions(fns...)
	return mountPath(basePath, opts.RoutePath)
}

// RegisterRoutes registers the manager handler under basePath on mux.
func RegisterRoutes(mux Mux, basePath string, store draft.Store, fns ...OptionFn) (string, error) {
	return RegisterRoutesWithOptions(mux, basePath, store, NewOptions(fns...))
}

// RegisterRoutesWithOptions registers the handler using a pre-built Options value.
func RegisterRoutesWithOptions(mux Mux, basePath string, store draft.Store, opts Options) (string, error) {
	if mux == nil {
		return "", fmt.Errorf("draftfiles: missing mux")
	}
	if store == nil {
		return "", fmt.Errorf("draftfiles: missing store")
	}
	opts = NewOptions(func(o *Options) { *o = opts })
	pattern := mountPath(basePath, opts.RoutePath)
	mux.Handle(pattern, HandlerWithOptions(store, opts))
	return pattern, nil
}

func mountPath(basePath, routePath string) string {
	basePath = strings.TrimSpace(basePath)
	routePath = strings.TrimSpace(routePath)

	if routePath == "" {
		routePath = "/"
	}
	if !strings.HasPrefix(routePath, "/") {
		routePath = "/" + routePath
	}

	if basePath == "" || basePath == "/" {
		return routePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	return strings.TrimRight(basePath, "/") + routePath
}
