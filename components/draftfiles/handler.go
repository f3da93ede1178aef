package draftfiles

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
)

const (
	ActionBrowse = "browse"
	ActionUpload = "upload"
	ActionDelete = "delete"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

func statusError(code int, format string, args ...any) StatusError {
	return StatusError{Code: code, Err: fmt.Errorf("draftfiles: "+format, args...)}
}

// Handler builds the draft file manager handler over store with default
// options plus any overrides.
func Handler(store draft.Store, fns ...OptionFn) http.Handler {
	return HandlerWithOptions(store, NewOptions(fns...))
}

// HandlerWithOptions builds the handler from a pre-constructed Options value.
func HandlerWithOptions(store draft.Store, opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	m := &manager{store: store, opts: opts}
	return http.HandlerFunc(m.serveHTTP)
}

type manager struct {
	store draft.Store
	opts  Options
}

func (m *manager) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if r == nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodPost:
	default:
		w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead+", "+http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if m.store == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	if m.opts.Scope == nil {
		writeGuardError(w, nil)
		return
	}
	scope, err := m.opts.Scope(r)
	if err != nil {
		writeGuardError(w, err)
		return
	}

	query := parseQuery(r.URL.Query())
	limit := effectiveMaxBytes(query.MaxBytes, m.opts)
	if r.Method == http.MethodPost && query.Action == ActionUpload && limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+m.opts.MemoryLimit)
	}

	if !m.validSessKey(r) {
		writeGuardError(w, statusError(http.StatusForbidden, "invalid sesskey"))
		return
	}
	if query.ItemID <= draft.NoItem {
		m.fail(w, statusError(http.StatusBadRequest, "missing itemid"))
		return
	}

	switch {
	case query.Action == ActionBrowse && r.Method != http.MethodPost:
		m.browse(w, r, scope, query, limit)
	case query.Action == ActionUpload && r.Method == http.MethodPost:
		m.upload(w, r, scope, query, limit)
	case query.Action == ActionDelete && r.Method == http.MethodPost:
		m.delete(w, r, scope, query)
	default:
		m.fail(w, statusError(http.StatusBadRequest, "unsupported action %q", query.Action))
	}
}

func (m *manager) validSessKey(r *http.Request) bool {
	if m.opts.SessKey == nil {
		return false
	}
	expected := m.opts.SessKey(r)
	if expected == "" {
		return false
	}
	got := r.URL.Query().Get("sesskey")
	if got == "" && r.Method == http.MethodPost {
		got = r.FormValue("sesskey")
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func (m *manager) browse(w http.ResponseWriter, r *http.Request, scope draft.Scope, query picker.ManagerQuery, limit int64) {
	files, err := m.store.Files(r.Context(), scope, query.ItemID, draft.OldestFirst)
	if err != nil {
		m.fail(w, err)
		return
	}
	page, err := m.renderBrowse(r, query, files, limit)
	if err != nil {
		m.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, page)
}

func (m *manager) upload(w http.ResponseWriter, r *http.Request, scope draft.Scope, query picker.ManagerQuery, limit int64) {
	ctx := r.Context()
	existing, err := m.store.Files(ctx, scope, query.ItemID, draft.NewestFirst)
	if err != nil {
		m.fail(w, err)
		return
	}
	if query.MaxFiles > 0 && len(existing) >= query.MaxFiles {
		m.fail(w, statusError(http.StatusConflict, "item %d already holds %d file(s)", query.ItemID, len(existing)))
		return
	}

	if err := r.ParseMultipartForm(m.opts.MemoryLimit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			m.fail(w, statusError(http.StatusRequestEntityTooLarge, "upload exceeds %d bytes", limit))
			return
		}
		m.fail(w, statusError(http.StatusBadRequest, "parse upload: %v", err))
		return
	}
	file, header, err := r.FormFile(m.opts.UploadField)
	if err != nil {
		m.fail(w, statusError(http.StatusBadRequest, "missing %s", m.opts.UploadField))
		return
	}
	defer file.Close()

	name := uploadName(header.Filename)
	if name == "" {
		m.fail(w, statusError(http.StatusBadRequest, "missing file name"))
		return
	}
	if limit > 0 && header.Size > limit {
		m.fail(w, statusError(http.StatusRequestEntityTooLarge, "%s is %s, limit is %s",
			name, render.DisplaySize(header.Size), render.DisplaySize(limit)))
		return
	}

	detected, err := mimetype.DetectReader(file)
	if err != nil {
		m.fail(w, fmt.Errorf("draftfiles: sniff %s: %w", name, err))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		m.fail(w, fmt.Errorf("draftfiles: rewind %s: %w", name, err))
		return
	}
	mimeType := detected.String()
	if !m.opts.AcceptedTypes.Allows(name, mimeType) {
		m.fail(w, statusError(http.StatusUnsupportedMediaType, "%s (%s) is not an accepted type", name, mimeType))
		return
	}

	stored, err := m.store.Put(ctx, scope, query.ItemID, name, mimeType, file)
	if err != nil {
		m.fail(w, err)
		return
	}
	m.opts.Logger.Info("draft file uploaded",
		"item", query.ItemID,
		"user", scope.UserID,
		"file", stored.Name,
		"mime", stored.MimeType,
		"size", stored.Size,
	)
	m.redirectToBrowse(w, r, query)
}

func (m *manager) delete(w http.ResponseWriter, r *http.Request, scope draft.Scope, query picker.ManagerQuery) {
	fileID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("fileid")), 10, 64)
	if err != nil || fileID <= 0 {
		m.fail(w, statusError(http.StatusBadRequest, "missing fileid"))
		return
	}

	ctx := r.Context()
	files, err := m.store.Files(ctx, scope, query.ItemID, draft.NewestFirst)
	if err != nil {
		m.fail(w, err)
		return
	}
	for _, file := range files {
		if file.ID != fileID {
			continue
		}
		if err := m.store.Delete(ctx, scope, file); err != nil {
			m.fail(w, err)
			return
		}
		m.opts.Logger.Info("draft file deleted", "item", query.ItemID, "user", scope.UserID, "file", file.Name)
		m.redirectToBrowse(w, r, query)
		return
	}
	m.fail(w, draft.ErrFileNotFound)
}

func (m *manager) redirectToBrowse(w http.ResponseWriter, r *http.Request, query picker.ManagerQuery) {
	query.Action = ActionBrowse
	http.Redirect(w, r, query.URL(r.URL.Path), http.StatusSeeOther)
}

// fail maps err onto a status code and logs server side failures.
func (m *manager) fail(w http.ResponseWriter, err error) {
	code := statusCode(err)
	if code >= http.StatusInternalServerError {
		m.opts.Logger.Error("draft file manager failed", "err", err)
	} else {
		m.opts.Logger.Debug("draft file manager rejected request", "status", code, "err", err)
	}
	http.Error(w, http.StatusText(code), code)
}

func statusCode(err error) int {
	var httpErr HTTPError
	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &httpErr) && httpErr != nil:
		return httpErr.StatusCode()
	case errors.Is(err, draft.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, draft.ErrUnknownItem), errors.Is(err, draft.ErrFileNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeGuardError(w http.ResponseWriter, err error) {
	if w == nil {
		return
	}
	if err == nil {
		http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
		return
	}
	code := http.StatusForbidden
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
		if code <= 0 {
			code = http.StatusForbidden
		}
	}
	http.Error(w, http.StatusText(code), code)
}

// parseQuery reads the manager parameters. maxfiles defaults to a single
// file; a negative value lifts the cap.
func parseQuery(values url.Values) picker.ManagerQuery {
	query := picker.ManagerQuery{
		Env:       strings.TrimSpace(values.Get("env")),
		Action:    strings.TrimSpace(values.Get("action")),
		ItemID:    draft.ItemID(parseInt64(values.Get("itemid"))),
		Subdirs:   values.Get("subdirs") == "1",
		MaxBytes:  parseInt64(values.Get("maxbytes")),
		MaxFiles:  1,
		ContextID: parseInt64(values.Get("ctx_id")),
		CourseID:  parseInt64(values.Get("course")),
		SessKey:   values.Get("sesskey"),
	}
	if query.Env == "" {
		query.Env = picker.EnvFilePicker
	}
	if query.Action == "" {
		query.Action = ActionBrowse
	}
	if raw := strings.TrimSpace(values.Get("maxfiles")); raw != "" {
		query.MaxFiles = int(parseInt64(raw))
	}
	return query
}

func parseInt64(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return value
}

// uploadName strips any client supplied directories from name.
func uploadName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
