package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	filepicker "github.com/goliatone/go-omerofilepicker"
	"github.com/goliatone/go-omerofilepicker/components/draftfiles"
	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template/gotemplate"
)

const (
	demoFieldName  = "attachment"
	demoFieldLabel = "Image"
	pageTemplate   = "templates/page.tmpl"
	shutdownWait   = 5 * time.Second
)

//go:embed templates/*.tmpl
var pageTemplates embed.FS

func newServeCommand(a *app) *cobra.Command {
	var maxBytes int64
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a demo form with the file picker and the draft file manager.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			handler, err := a.newDemoHandler(store, uuid.NewString(), maxBytes)
			if err != nil {
				return err
			}
			return a.listen(ctx, handler)
		},
	}
	cmd.Flags().Int64Var(&maxBytes, "maxbytes", 0, "field size limit, 0 uses the site limit")
	return cmd
}

func (a *app) listen(ctx context.Context, handler http.Handler) error {
	srv := &http.Server{
		Addr:              a.cfg.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("listening", "addr", a.cfg.Listen, "wwwroot", a.cfg.WWWRoot)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownWait)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// demoHost is a minimal form host: GET renders the picker bound to a fresh
// draft item, POST finalizes the submitted item and shows the outcome.
type demoHost struct {
	app      *app
	store    draft.Store
	sessKey  string
	maxBytes int64
	pages    template.TemplateRenderer
}

func (a *app) newDemoHandler(store draft.Store, sessKey string, maxBytes int64) (http.Handler, error) {
	pages, err := gotemplate.New(gotemplate.WithFS(pageTemplates))
	if err != nil {
		return nil, fmt.Errorf("page templates: %w", err)
	}
	host := &demoHost{app: a, store: store, sessKey: sessKey, maxBytes: maxBytes, pages: pages}

	mux := http.NewServeMux()
	managerPath, err := draftfiles.RegisterRoutes(mux, "", store, a.managerOptions(
		draftfiles.WithFixedScope(a.scope()),
		draftfiles.WithStaticSessKey(sessKey),
	)...)
	if err != nil {
		return nil, err
	}
	mux.Handle("/", host)
	a.logger.Debug("mounted draft file manager", "path", managerPath)
	return mux, nil
}

func (h *demoHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.showForm(w, r)
	case http.MethodPost:
		h.submitForm(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	}
}

func (h *demoHost) field() (*picker.Field, error) {
	return h.app.newField(h.store, demoFieldName, demoFieldLabel, picker.WithMaxBytes(h.maxBytes))
}

func (h *demoHost) showForm(w http.ResponseWriter, r *http.Request) {
	field, err := h.field()
	if err != nil {
		h.fail(w, err)
		return
	}
	markup, err := filepicker.RenderWithScripts(r.Context(), field, h.app.renderContext(h.sessKey))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.page(w, field, markup, nil, true)
}

func (h *demoHost) submitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	field, err := h.field()
	if err != nil {
		h.fail(w, err)
		return
	}

	rc := h.app.renderContext(h.sessKey)
	result, err := field.Finalize(r.Context(), rc, r.PostForm)
	if err != nil {
		h.fail(w, err)
		return
	}

	field.SetValue(result.ItemID)
	field.Freeze()
	markup, err := field.Render(r.Context(), rc)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.page(w, field, markup, &result, false)
}

func (h *demoHost) page(w http.ResponseWriter, field *picker.Field, markup string, result *picker.FinalizeResult, submit bool) {
	data := map[string]any{
		"title":    "Omero file picker",
		"locale":   h.app.cfg.Locale,
		"action":   "/",
		"label":    field.Label(),
		"field_id": field.ID(),
		"field":    markup,
		"submit":   submit,
	}
	if result != nil {
		data["result"] = result
	}
	out, err := h.pages.RenderTemplate(pageTemplate, data)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(out))
}

func (h *demoHost) fail(w http.ResponseWriter, err error) {
	h.app.logger.Error("demo form failed", "err", err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
