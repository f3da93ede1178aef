package picker_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"testing/fstest"

	theme "github.com/goliatone/go-theme"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/logging"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template/gotemplate"
	"github.com/goliatone/go-omerofilepicker/pkg/testsupport"
)

var testScope = draft.Scope{UserID: 7}

func fixedID(id draft.ItemID) draft.MemoryOption {
	return draft.WithIDSource(func() draft.ItemID { return id })
}

func newField(t *testing.T, svc draft.Service, opts ...picker.Option) *picker.Field {
	t.Helper()
	opts = append([]picker.Option{picker.WithClientID(func() string { return "c1" })}, opts...)
	field, err := picker.New("attachment", "Image", svc, opts...)
	if err != nil {
		t.Fatalf("new field: %v", err)
	}
	return field
}

func renderContext() picker.RenderContext {
	return picker.RenderContext{
		UserID:       testScope.UserID,
		CourseID:     2,
		ContextID:    5,
		SiteMaxBytes: 2 << 20,
		SessKey:      "abc123",
		Locale:       "en",
		WWWRoot:      "https://lms.example/",
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := picker.New("  ", "x", draft.NewMemoryStore()); !errors.Is(err, picker.ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := picker.New("file", "x", nil); !errors.Is(err, picker.ErrServiceRequired) {
		t.Fatalf("expected ErrServiceRequired, got %v", err)
	}

	field := newField(t, draft.NewMemoryStore(), picker.WithHelpButton(`<a class="help" href="/help" onclick="x()">?</a>`))
	if field.Name() != "attachment" || field.Label() != "Image" || field.ID() != "id_attachment" {
		t.Fatalf("unexpected identity: %q %q %q", field.Name(), field.Label(), field.ID())
	}
	if field.Value() != draft.NoItem {
		t.Fatalf("expected unbound field, got %d", field.Value())
	}
	if strings.Contains(field.HelpButton(), "onclick") || !strings.Contains(field.HelpButton(), `class="help"`) {
		t.Fatalf("expected sanitized help button, got %q", field.HelpButton())
	}

	opts := field.Options()
	if opts.ReturnTypes != picker.ReturnInternal|picker.ReturnReference {
		t.Fatalf("unexpected default return types %d", opts.ReturnTypes)
	}
	if !opts.ReturnTypes.Has(picker.ReturnReference) || opts.ReturnTypes.Has(picker.ReturnExternal) {
		t.Fatalf("unexpected return type flags %d", opts.ReturnTypes)
	}
	if !opts.AcceptedTypes.Any() || opts.Env != picker.EnvFilePicker {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestField_RenderAllocatesOnce(t *testing.T) {
	svc := testsupport.NewRecordingService(draft.NewMemoryStore(fixedID(42)))
	field := newField(t, svc)
	rc := renderContext()

	first, err := field.Render(testsupport.Context(), rc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if field.Value() != 42 {
		t.Fatalf("expected value 42, got %d", field.Value())
	}
	if _, err := field.Render(testsupport.Context(), rc); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if got := svc.Count(testsupport.MethodAllocate); got != 1 {
		t.Fatalf("expected a single allocation, got %d", got)
	}

	hidden := `<input type="hidden" name="attachment" id="id_attachment" value="42" class="filepickerhidden"/>`
	if !strings.Contains(first, hidden) {
		t.Fatalf("expected hidden input, got:\n%s", first)
	}
	for _, want := range []string{
		`id="filepicker-loading-c1"`,
		`id="filepicker-wrapper-c1"`,
		`style="display:none"`,
		`id="filepicker-button-c1" value="Choose a file..." name="attachmentchoose"`,
		`class="dndupload-target"`,
	} {
		if !strings.Contains(first, want) {
			t.Fatalf("expected %q in output:\n%s", want, first)
		}
	}
}

func TestField_RenderBoundValueShowsCurrentFile(t *testing.T) {
	store := draft.NewMemoryStore()
	item, _ := testsupport.Seed(t, store, testScope,
		testsupport.SeedFile{Name: "old.png", Size: 3},
		testsupport.SeedFile{Name: "cells <1>.png", Size: 3},
	)
	svc := testsupport.NewRecordingService(store)
	field := newField(t, svc)
	field.SetValue(item)

	requires := render.NewRequires("")
	rc := renderContext()
	rc.Requires = requires
	out, err := field.Render(testsupport.Context(), rc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if svc.Count(testsupport.MethodAllocate) != 0 || field.Value() != item {
		t.Fatalf("expected bound value reused, calls=%+v value=%d", svc.Calls(), field.Value())
	}
	if !strings.Contains(out, "cells &lt;1&gt;.png - ") {
		t.Fatalf("expected escaped current file, got:\n%s", out)
	}

	calls := requires.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one init call, got %d", len(calls))
	}
	vm, ok := calls[0].Args[0].(picker.ViewModel)
	if !ok {
		t.Fatalf("expected view model argument, got %T", calls[0].Args[0])
	}
	if vm.CurrentFile != "cells <1>.png" || vm.ItemID != item {
		t.Fatalf("unexpected view model %+v", vm)
	}
}

func TestField_ViewModelContract(t *testing.T) {
	field := newField(t, draft.NewMemoryStore(fixedID(9)), picker.WithMaxBytes(1024))
	requires := render.NewRequires("https://lms.example")
	rc := renderContext()
	rc.Requires = requires

	if _, err := field.Render(testsupport.Context(), rc); err != nil {
		t.Fatalf("render: %v", err)
	}
	calls := requires.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected one init call, got %d", len(calls))
	}
	call := calls[0]
	if call.Function != picker.InitFunction || !call.OnDOMReady {
		t.Fatalf("unexpected call %+v", call)
	}
	wantModule := render.Module{
		Name:     "form_filepicker",
		FullPath: "/lib/form/omerofilepicker.js",
		Requires: []string{"core_filepicker", "node", "node-event-simulate", "core_dndupload"},
	}
	if diff := cmp.Diff(wantModule, call.Module); diff != "" {
		t.Fatalf("module mismatch (-want +got):\n%s", diff)
	}

	payload, err := json.Marshal(call.Args[0])
	if err != nil {
		t.Fatalf("marshal view model: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal view model: %v", err)
	}
	keys := make([]string, 0, len(decoded))
	for key := range decoded {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	wantKeys := []string{"accepted_types", "buttonname", "client_id", "context", "currentfile", "elementname", "env", "itemid", "maxbytes", "return_types"}
	if diff := cmp.Diff(wantKeys, keys); diff != "" {
		t.Fatalf("view model keys mismatch (-want +got):\n%s", diff)
	}

	want := map[string]any{
		"accepted_types": "*",
		"return_types":   float64(6),
		"itemid":         float64(9),
		"maxbytes":       float64(1024),
		"context":        float64(5),
		"buttonname":     "attachmentchoose",
		"elementname":    "attachment",
		"client_id":      "c1",
		"currentfile":    "",
		"env":            "filepicker",
	}
	if diff := cmp.Diff(want, decoded); diff != "" {
		t.Fatalf("view model mismatch (-want +got):\n%s", diff)
	}
}

func TestField_NoScriptURLOrder(t *testing.T) {
	field := newField(t, draft.NewMemoryStore(fixedID(42)), picker.WithMaxBytes(1024))
	out, err := field.Render(testsupport.Context(), renderContext())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	url := "https://lms.example/repository/draftfiles-manager?env=filepicker&action=browse&itemid=42&subdirs=0&maxbytes=1024&maxfiles=1&ctx_id=5&course=2&sesskey=abc123"
	want := `<noscript><div><object type="text/html" data="` + strings.ReplaceAll(url, "&", "&amp;") + `" height="160" width="600" style="border:1px solid #000"></object></div></noscript>`
	if !strings.Contains(out, want) {
		t.Fatalf("expected no-script fallback %q, got:\n%s", want, out)
	}
}

func TestManagerQuery_Encode(t *testing.T) {
	query := picker.ManagerQuery{
		Env:       "filepicker",
		Action:    "browse",
		ItemID:    3,
		MaxBytes:  -1,
		MaxFiles:  1,
		ContextID: 1,
		CourseID:  1,
		SessKey:   "a b&c",
	}
	want := "env=filepicker&action=browse&itemid=3&subdirs=0&maxbytes=-1&maxfiles=1&ctx_id=1&course=1&sesskey=a+b%26c"
	if got := query.Encode(); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestField_EnvURLOmitsDragAndDrop(t *testing.T) {
	field := newField(t, draft.NewMemoryStore(), picker.WithEnv(picker.EnvURL))
	out, err := field.Render(testsupport.Context(), renderContext())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(out, "dndupload") || strings.Contains(out, "file_info_c1") {
		t.Fatalf("expected no drag and drop fragment, got:\n%s", out)
	}
	if !strings.Contains(out, `class="filepickerhidden"`) {
		t.Fatalf("expected hidden input still present")
	}
}

func TestField_SizeHint(t *testing.T) {
	cases := []struct {
		name     string
		maxBytes int64
		want     string
		absent   bool
	}{
		{name: "site default", maxBytes: 0, want: "Maximum size for new files: 2.0 MiB"},
		{name: "field limit", maxBytes: 512 * 1024, want: "Maximum size for new files: 512 KiB"},
		{name: "unlimited", maxBytes: picker.UnlimitedBytes, absent: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			field := newField(t, draft.NewMemoryStore(), picker.WithMaxBytes(tc.maxBytes))
			out, err := field.Render(testsupport.Context(), renderContext())
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if tc.absent {
				if strings.Contains(out, "Maximum size") {
					t.Fatalf("expected no size hint, got:\n%s", out)
				}
				return
			}
			if !strings.Contains(out, "<span> "+tc.want+" </span>") {
				t.Fatalf("expected %q, got:\n%s", tc.want, out)
			}
		})
	}
}

func TestField_RenderFrozen(t *testing.T) {
	svc := testsupport.NewRecordingService(draft.NewMemoryStore())
	field := newField(t, svc)
	field.Freeze()

	if field.TemplateType() != picker.TemplateNoDisplay {
		t.Fatalf("expected nodisplay template type, got %q", field.TemplateType())
	}
	out, err := field.Render(testsupport.Context(), renderContext())
	if err != nil {
		t.Fatalf("render frozen: %v", err)
	}
	if len(svc.Calls()) != 0 || field.Value() != draft.NoItem {
		t.Fatalf("expected no service calls and no value, calls=%+v", svc.Calls())
	}
	if !strings.Contains(out, "No files attached") || strings.Contains(out, `type="hidden"`) {
		t.Fatalf("unexpected frozen output:\n%s", out)
	}

	store := draft.NewMemoryStore()
	item, _ := testsupport.Seed(t, store, testScope, testsupport.SeedFile{Name: "scan.tif", Size: 1})
	svc = testsupport.NewRecordingService(store)
	field = newField(t, svc)
	field.SetValue(item)
	field.Freeze()

	out, err = field.Render(testsupport.Context(), renderContext())
	if err != nil {
		t.Fatalf("render frozen with value: %v", err)
	}
	if svc.Count(testsupport.MethodAllocate) != 0 || svc.Count(testsupport.MethodDelete) != 0 || field.Value() != item {
		t.Fatalf("frozen render must not mutate, calls=%+v", svc.Calls())
	}
	if !strings.Contains(out, "scan.tif") || !strings.Contains(out, `name="attachment"`) {
		t.Fatalf("expected file name and persistent hidden input, got:\n%s", out)
	}

	field.Unfreeze()
	if field.Frozen() || field.TemplateType() != picker.TemplateDefault {
		t.Fatalf("expected unfrozen field")
	}
}

func TestField_RenderAllocationFailure(t *testing.T) {
	svc := testsupport.NewRecordingService(nil)
	svc.AllocateErr = errors.New("draft area unavailable")
	field := newField(t, svc)

	requires := render.NewRequires("")
	rc := renderContext()
	rc.Requires = requires
	out, err := field.Render(testsupport.Context(), rc)
	if !errors.Is(err, svc.AllocateErr) {
		t.Fatalf("expected allocation error, got %v", err)
	}
	if out != "" || field.Value() != draft.NoItem || len(requires.Calls()) != 0 {
		t.Fatalf("expected no output on failure, got %q", out)
	}
}

func TestField_DebugDiagnosticsRequireFlag(t *testing.T) {
	endpoint := "https://omero.example/webgateway/render_image"

	var quiet bytes.Buffer
	field := newField(t, draft.NewMemoryStore(),
		picker.WithOmeroEndpoint(endpoint),
		picker.WithLogger(logging.New(&quiet, logging.Options{})),
	)
	if _, err := field.Render(testsupport.Context(), renderContext()); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(quiet.String(), "omero endpoint") {
		t.Fatalf("expected no debug output without flag, got %q", quiet.String())
	}

	var verbose bytes.Buffer
	field = newField(t, draft.NewMemoryStore(),
		picker.WithOmeroEndpoint(endpoint),
		picker.WithLogger(logging.New(&verbose, logging.Options{Debug: true})),
	)
	if _, err := field.Render(testsupport.Context(), renderContext()); err != nil {
		t.Fatalf("render: %v", err)
	}
	logged := verbose.String()
	if !strings.Contains(logged, "omero endpoint") || !strings.Contains(logged, "https://omero.example") {
		t.Fatalf("expected endpoint diagnostics, got %q", logged)
	}
}

type stubSelector struct {
	selection *theme.Selection
	names     []string
}

func (s *stubSelector) Select(name, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	s.names = append(s.names, name+"/"+variant)
	return s.selection, nil
}

func TestField_ThemeOverridesTemplate(t *testing.T) {
	files := fstest.MapFS{
		"acme/filepicker.tmpl": {Data: []byte(`<div class="acme {{ theme.variant }}" data-brand="{{ theme.tokens.brand }}">{{ hidden.value }}</div>`)},
	}
	engine, err := gotemplate.New(gotemplate.WithFS(files))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	selector := &stubSelector{selection: &theme.Selection{
		Theme:   "acme",
		Variant: "dark",
		Manifest: &theme.Manifest{
			Name:      "acme",
			Tokens:    map[string]string{"brand": "#123456"},
			Templates: map[string]string{picker.PartialPicker: "acme/filepicker.tmpl"},
		},
	}}

	field := newField(t, draft.NewMemoryStore(fixedID(11)),
		picker.WithTemplateRenderer(engine),
		picker.WithThemeSelector(selector, "acme", "dark"),
	)
	out, err := field.Render(testsupport.Context(), renderContext())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != `<div class="acme dark" data-brand="#123456">11</div>` {
		t.Fatalf("unexpected themed output %q", out)
	}
	if diff := cmp.Diff([]string{"acme/dark"}, selector.names); diff != "" {
		t.Fatalf("selector calls mismatch (-want +got):\n%s", diff)
	}
}

func TestField_RenderUsesInjectedTranslator(t *testing.T) {
	field := newField(t, draft.NewMemoryStore(fixedID(5)))
	rc := renderContext()
	rc.Locale = "fr"
	rc.Translator = render.TranslatorFunc(func(locale, key string, args ...any) (string, error) {
		if key == "repository.openpicker" {
			return "Choisir un fichier...", nil
		}
		return "", errors.New("missing")
	})
	var missing []string
	rc.OnMissing = func(locale, key string, _ []any, _ error) string {
		missing = append(missing, locale+":"+key)
		return key
	}

	out, err := field.Render(testsupport.Context(), rc)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, `value="Choisir un fichier..."`) {
		t.Fatalf("expected translated button label, got:\n%s", out)
	}
	if len(missing) == 0 || !strings.HasPrefix(missing[0], "fr:") {
		t.Fatalf("expected missing keys reported for fr, got %v", missing)
	}
}
