package picker

import (
	"strings"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
)

// RenderContext carries the per request state a field needs from its host:
// who is rendering, where, and how to localise and wire the browser widget.
type RenderContext struct {
	UserID    int64
	CourseID  int64
	ContextID int64

	// SiteMaxBytes is the site wide upload limit used for the size hint when
	// the field has no limit of its own.
	SiteMaxBytes int64

	SessKey string
	Locale  string
	WWWRoot string

	// Translator defaults to render.DefaultCatalog.
	Translator render.Translator
	OnMissing  render.MissingTranslationHandler

	// Requires receives the widget init call. Nil skips registration.
	Requires render.ModuleLoader
}

// Scope returns the draft scope of the rendering user.
func (rc RenderContext) Scope() draft.Scope {
	return draft.Scope{UserID: rc.UserID}
}

func (rc RenderContext) str(component, id string, args ...any) string {
	translator := rc.Translator
	if translator == nil {
		translator = render.DefaultCatalog()
	}
	return render.Localize(translator, rc.OnMissing, rc.Locale, render.StringKey(component, id), args...)
}

func (rc RenderContext) root() string {
	return strings.TrimRight(strings.TrimSpace(rc.WWWRoot), "/")
}
