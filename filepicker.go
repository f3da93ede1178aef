package filepicker

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	theme "github.com/goliatone/go-theme"
	"github.com/spf13/afero"

	"github.com/goliatone/go-omerofilepicker/components/draftfiles"
	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/draft/sqlite"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
)

// Field is the draft file picker form field.
type Field = picker.Field

// Option configures a Field.
type Option = picker.Option

// RenderContext carries the per request host state passed to Render and
// Finalize.
type RenderContext = picker.RenderContext

// FinalizeResult reports what Finalize kept and discarded.
type FinalizeResult = picker.FinalizeResult

// ItemID identifies a draft area slot.
type ItemID = draft.ItemID

// Scope identifies the user owning draft slots.
type Scope = draft.Scope

// Store is a draft area that also accepts and serves file content.
type Store = draft.Store

// NewField exposes the picker constructor from the top-level module.
func NewField(name, label string, svc draft.Service, options ...Option) (*Field, error) {
	return picker.New(name, label, svc, options...)
}

// NewMemoryStore returns an in-process draft store.
func NewMemoryStore() *draft.MemoryStore {
	return draft.NewMemoryStore()
}

// OpenSQLiteStore opens a draft store keeping metadata in the SQLite database
// at dsn and file content under blobDir on fsys. A nil fsys uses the OS
// filesystem.
func OpenSQLiteStore(dsn string, fsys afero.Fs, blobDir string) (*sqlite.Store, error) {
	options := []sqlite.Option{sqlite.WithBlobDir(blobDir)}
	if fsys != nil {
		options = append(options, sqlite.WithFs(fsys))
	}
	return sqlite.New(dsn, options...)
}

// RenderWithScripts renders field and appends the script markup that boots
// the browser widget. Base URL defaults to rc.WWWRoot.
func RenderWithScripts(ctx context.Context, field *Field, rc RenderContext) (string, error) {
	if field == nil {
		return "", fmt.Errorf("filepicker: field is nil")
	}
	requires := render.NewRequires(rc.WWWRoot)
	rc.Requires = requires

	markup, err := field.Render(ctx, rc)
	if err != nil {
		return "", err
	}
	scripts, err := requires.HTML()
	if err != nil {
		return "", fmt.Errorf("filepicker: render scripts: %w", err)
	}
	if scripts == "" {
		return markup, nil
	}
	return strings.TrimRight(markup, "\n") + "\n" + scripts, nil
}

// DraftFilesHandler builds the no-script draft file manager over store.
func DraftFilesHandler(store Store, options ...draftfiles.OptionFn) http.Handler {
	return draftfiles.Handler(store, options...)
}

// TemplatesFS exposes the built-in picker templates so callers can reuse or
// extend them without importing the picker package directly.
func TemplatesFS() fs.FS {
	return picker.TemplatesFS()
}

// WithThemeSelector resolves picker template overrides through a go-theme
// selector for the given theme and variant.
func WithThemeSelector(selector theme.ThemeSelector, name, variant string) Option {
	return picker.WithThemeSelector(selector, name, variant)
}
