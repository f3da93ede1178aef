package draftfiles

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/testsupport"
)

const testSessKey = "s3cret"

var (
	testScope = draft.Scope{UserID: 4}
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
)

func newStore(t *testing.T) (*draft.MemoryStore, draft.ItemID) {
	t.Helper()
	store := draft.NewMemoryStore(draft.WithIDSource(func() draft.ItemID { return 77 }))
	item, err := store.Allocate(testsupport.Context(), testScope)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	return store, item
}

func newHandler(store draft.Store, fns ...OptionFn) http.Handler {
	base := []OptionFn{WithFixedScope(testScope), WithStaticSessKey(testSessKey)}
	return Handler(store, append(base, fns...)...)
}

func managerURL(action, extra string) string {
	target := DefaultRoutePath + "?env=filepicker&action=" + action + "&itemid=77&subdirs=0&maxbytes=0&maxfiles=1&ctx_id=1&course=1&sesskey=" + testSessKey
	if extra != "" {
		target += "&" + extra
	}
	return target
}

func uploadRequest(t *testing.T, target, name string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(DefaultUploadField, name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_BrowseListsFiles(t *testing.T) {
	store, item := newStore(t)
	testsupport.SeedInto(t, store, testScope, item, testsupport.SeedFile{Name: "cells <a>.png", Size: 1536})
	h := newHandler(store, WithMaxBytes(2048))

	rec := serve(h, httptest.NewRequest(http.MethodGet, managerURL("browse", ""), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("expected html content type, got %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"cells &lt;a&gt;.png",
		"1.5 KiB",
		`<input type="hidden" name="sesskey" value="s3cret"/>`,
		`value="Delete"`,
		"You are allowed to attach a maximum of 1 file(s) to this item",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in body:\n%s", want, body)
		}
	}
	if strings.Contains(body, `type="file"`) {
		t.Fatalf("expected upload form hidden when the slot is full:\n%s", body)
	}
}

func TestHandler_BrowseEmptyOffersUpload(t *testing.T) {
	store, _ := newStore(t)
	h := newHandler(store, WithMaxBytes(2048))

	rec := serve(h, httptest.NewRequest(http.MethodGet, managerURL("browse", ""), nil))
	body := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(body, "No files attached") {
		t.Fatalf("expected empty listing, got %d:\n%s", rec.Code, body)
	}
	if !strings.Contains(body, `<input type="file" name="repo_upload_file"/>`) || !strings.Contains(body, "Maximum size for new files: 2.0 KiB") {
		t.Fatalf("expected upload form with size hint:\n%s", body)
	}
	if !strings.Contains(body, "action=upload&amp;itemid=77") {
		t.Fatalf("expected upload action url:\n%s", body)
	}

	head := serve(h, httptest.NewRequest(http.MethodHead, managerURL("browse", ""), nil))
	if head.Code != http.StatusOK || head.Body.Len() != 0 {
		t.Fatalf("expected empty HEAD response, got %d (%d bytes)", head.Code, head.Body.Len())
	}
}

func TestHandler_Guards(t *testing.T) {
	store, _ := newStore(t)

	cases := []struct {
		name    string
		handler http.Handler
		req     *http.Request
		want    int
	}{
		{
			name:    "bad sesskey",
			handler: newHandler(store),
			req:     httptest.NewRequest(http.MethodGet, strings.Replace(managerURL("browse", ""), testSessKey, "nope", 1), nil),
			want:    http.StatusForbidden,
		},
		{
			name: "scope status error",
			handler: newHandler(store, WithScope(func(*http.Request) (draft.Scope, error) {
				return draft.Scope{}, StatusError{Code: http.StatusUnauthorized}
			})),
			req:  httptest.NewRequest(http.MethodGet, managerURL("browse", ""), nil),
			want: http.StatusUnauthorized,
		},
		{
			name:    "no scope resolver",
			handler: Handler(store, WithStaticSessKey(testSessKey)),
			req:     httptest.NewRequest(http.MethodGet, managerURL("browse", ""), nil),
			want:    http.StatusForbidden,
		},
		{
			name:    "no sesskey source",
			handler: Handler(store, WithFixedScope(testScope)),
			req:     httptest.NewRequest(http.MethodGet, managerURL("browse", ""), nil),
			want:    http.StatusForbidden,
		},
		{
			name:    "missing item",
			handler: newHandler(store),
			req:     httptest.NewRequest(http.MethodGet, DefaultRoutePath+"?action=browse&sesskey="+testSessKey, nil),
			want:    http.StatusBadRequest,
		},
		{
			name:    "unknown action",
			handler: newHandler(store),
			req:     httptest.NewRequest(http.MethodGet, managerURL("rename", ""), nil),
			want:    http.StatusBadRequest,
		},
		{
			name:    "method not allowed",
			handler: newHandler(store),
			req:     httptest.NewRequest(http.MethodPut, managerURL("browse", ""), nil),
			want:    http.StatusMethodNotAllowed,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(tc.handler, tc.req)
			if rec.Code != tc.want {
				t.Fatalf("expected status %d, got %d", tc.want, rec.Code)
			}
			if tc.want == http.StatusMethodNotAllowed && rec.Header().Get("Allow") == "" {
				t.Fatalf("expected Allow header")
			}
		})
	}
}

func TestHandler_UploadStoresSniffedType(t *testing.T) {
	store, item := newStore(t)
	h := newHandler(store, WithAcceptedTypes("image/png"))

	rec := serve(h, uploadRequest(t, managerURL("upload", ""), `C:\scans\cells.bin`, pngHeader))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if location := rec.Header().Get("Location"); !strings.Contains(location, "action=browse") || !strings.Contains(location, "itemid=77") {
		t.Fatalf("unexpected redirect %q", location)
	}

	files, err := store.Files(testsupport.Context(), testScope, item, draft.NewestFirst)
	if err != nil {
		t.Fatalf("files: %v", err)
	}
	if len(files) != 1 || files[0].Name != "cells.bin" || files[0].MimeType != "image/png" || files[0].Size != int64(len(pngHeader)) {
		t.Fatalf("unexpected stored files %+v", files)
	}
}

func TestHandler_UploadRejections(t *testing.T) {
	t.Run("slot full", func(t *testing.T) {
		store, item := newStore(t)
		testsupport.SeedInto(t, store, testScope, item, testsupport.SeedFile{Name: "a.png", Size: 1})
		rec := serve(newHandler(store), uploadRequest(t, managerURL("upload", ""), "b.png", pngHeader))
		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}
	})

	t.Run("oversize", func(t *testing.T) {
		store, _ := newStore(t)
		target := strings.Replace(managerURL("upload", ""), "maxbytes=0", "maxbytes=10", 1)
		rec := serve(newHandler(store), uploadRequest(t, target, "big.png", pngHeader))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d", rec.Code)
		}
	})

	t.Run("component limit", func(t *testing.T) {
		store, _ := newStore(t)
		rec := serve(newHandler(store, WithMaxBytes(8)), uploadRequest(t, managerURL("upload", ""), "big.png", pngHeader))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d", rec.Code)
		}
	})

	t.Run("query cannot lift component limit", func(t *testing.T) {
		for _, requested := range []string{"maxbytes=-1", "maxbytes=1000000"} {
			store, _ := newStore(t)
			target := strings.Replace(managerURL("upload", ""), "maxbytes=0", requested, 1)
			rec := serve(newHandler(store, WithMaxBytes(8)), uploadRequest(t, target, "big.png", pngHeader))
			if rec.Code != http.StatusRequestEntityTooLarge {
				t.Fatalf("expected status 413 for %s, got %d", requested, rec.Code)
			}
			files, err := store.Files(testsupport.Context(), testScope, 77, draft.NewestFirst)
			if err != nil {
				t.Fatalf("files: %v", err)
			}
			if len(files) != 0 {
				t.Fatalf("expected nothing stored for %s, got %d file(s)", requested, len(files))
			}
		}
	})

	t.Run("query tightens component limit", func(t *testing.T) {
		store, _ := newStore(t)
		target := strings.Replace(managerURL("upload", ""), "maxbytes=0", "maxbytes=8", 1)
		rec := serve(newHandler(store, WithMaxBytes(1<<20)), uploadRequest(t, target, "big.png", pngHeader))
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected status 413, got %d", rec.Code)
		}
	})

	t.Run("unlimited component", func(t *testing.T) {
		store, _ := newStore(t)
		target := strings.Replace(managerURL("upload", ""), "maxbytes=0", "maxbytes=-1", 1)
		rec := serve(newHandler(store), uploadRequest(t, target, "big.png", pngHeader))
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected status 303, got %d", rec.Code)
		}
	})

	t.Run("type", func(t *testing.T) {
		store, _ := newStore(t)
		rec := serve(newHandler(store, WithAcceptedTypes(".png")), uploadRequest(t, managerURL("upload", ""), "notes.txt", []byte("plain words")))
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("expected status 415, got %d", rec.Code)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		store, _ := newStore(t)
		req := httptest.NewRequest(http.MethodPost, managerURL("upload", ""), strings.NewReader(""))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		rec := serve(newHandler(store), req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("foreign item", func(t *testing.T) {
		store, _ := newStore(t)
		h := newHandler(store, WithFixedScope(draft.Scope{UserID: 99}))
		rec := serve(h, uploadRequest(t, managerURL("upload", ""), "a.png", pngHeader))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected status 403, got %d", rec.Code)
		}
	})
}

func TestHandler_Delete(t *testing.T) {
	store, item := newStore(t)
	seeded := testsupport.SeedInto(t, store, testScope, item, testsupport.SeedFile{Name: "a.png", Size: 1})
	h := newHandler(store)

	missing := serve(h, httptest.NewRequest(http.MethodPost, managerURL("delete", "fileid=999"), nil))
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", missing.Code)
	}
	bad := serve(h, httptest.NewRequest(http.MethodPost, managerURL("delete", "fileid=x"), nil))
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", bad.Code)
	}

	rec := serve(h, httptest.NewRequest(http.MethodPost, managerURL("delete", "fileid="+strconv.FormatInt(seeded[0].ID, 10)), nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status 303, got %d", rec.Code)
	}
	if names := testsupport.FileNames(t, store, testScope, item); len(names) != 0 {
		t.Fatalf("expected file removed, got %v", names)
	}
}

func TestStatusCode(t *testing.T) {
	cases := map[error]int{
		draft.ErrNotOwner:                      http.StatusForbidden,
		draft.ErrUnknownItem:                   http.StatusNotFound,
		draft.ErrFileNotFound:                  http.StatusNotFound,
		StatusError{Code: http.StatusConflict}: http.StatusConflict,
		errors.New("disk"):                     http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusCode(err); got != want {
			t.Fatalf("statusCode(%v): expected %d, got %d", err, want, got)
		}
	}
}

func TestEffectiveMaxBytes(t *testing.T) {
	cases := []struct {
		component int64
		requested int64
		want      int64
	}{
		{component: 100, requested: 0, want: 100},
		{component: 100, requested: -1, want: 100},
		{component: 100, requested: 50, want: 50},
		{component: 100, requested: 500, want: 100},
		{component: 0, requested: 0, want: 0},
		{component: 0, requested: -1, want: 0},
		{component: 0, requested: 50, want: 50},
	}
	for _, tc := range cases {
		got := effectiveMaxBytes(tc.requested, NewOptions(WithMaxBytes(tc.component)))
		if got != tc.want {
			t.Fatalf("component %d requested %d: expected %d, got %d", tc.component, tc.requested, tc.want, got)
		}
	}
}
