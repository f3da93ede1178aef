package draftfiles

import (
	"embed"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template"
	"github.com/goliatone/go-omerofilepicker/pkg/render/template/gotemplate"
)

// BrowseTemplate is the template name used for the browse page. Custom
// engines passed through WithTemplates must provide it.
const BrowseTemplate = "templates/browse.tmpl"

//go:embed templates/*.tmpl
var templateFS embed.FS

var defaultTemplates = sync.OnceValues(func() (template.TemplateRenderer, error) {
	engine, err := gotemplate.New(gotemplate.WithFS(templateFS))
	if err != nil {
		return nil, err
	}
	return engine, nil
})

func (m *manager) renderBrowse(r *http.Request, query picker.ManagerQuery, files []draft.File, limit int64) (string, error) {
	engine := m.opts.Templates
	if engine == nil {
		var err error
		if engine, err = defaultTemplates(); err != nil {
			return "", fmt.Errorf("draftfiles: init templates: %w", err)
		}
	}

	views := make([]map[string]any, 0, len(files))
	for _, file := range files {
		views = append(views, map[string]any{
			"id":   strconv.FormatInt(file.ID, 10),
			"name": file.Name,
			"mime": file.MimeType,
			"size": render.DisplaySize(file.Size),
		})
	}

	uploadQuery, deleteQuery := query, query
	uploadQuery.Action = ActionUpload
	deleteQuery.Action = ActionDelete

	hidden := render.SortedHiddenFields(render.MergeHiddenFields(nil,
		render.CSRFToken("sesskey", query.SessKey),
		render.Hidden("itemid", query.ItemID),
	))
	hiddenViews := make([]map[string]any, 0, len(hidden))
	for _, field := range hidden {
		hiddenViews = append(hiddenViews, map[string]any{"name": field.Name, "value": field.Value})
	}

	var maxSize string
	if limit > 0 {
		maxSize = m.str("moodle", "maxfilesize", render.DisplaySize(limit))
	}
	canUpload := query.MaxFiles <= 0 || len(files) < query.MaxFiles

	data := map[string]any{
		"locale":       m.opts.Locale,
		"files":        views,
		"hidden":       hiddenViews,
		"upload_url":   uploadQuery.URL(r.URL.Path),
		"delete_url":   deleteQuery.URL(r.URL.Path),
		"upload_field": m.opts.UploadField,
		"can_upload":   canUpload,
		"max_size":     maxSize,
		"str": map[string]any{
			"attachment":      m.str("repository", "attachment"),
			"nofilesattached": m.str("repository", "nofilesattached"),
			"upload":          m.str("repository", "upload"),
			"delete":          m.str("repository", "delete"),
			"maxfilesreached": m.str("repository", "maxfilesreached", query.MaxFiles),
		},
	}

	page, err := engine.RenderTemplate(BrowseTemplate, data)
	if err != nil {
		return "", fmt.Errorf("draftfiles: render browse page: %w", err)
	}
	return page, nil
}

func (m *manager) str(component, id string, args ...any) string {
	return render.Localize(m.opts.Translator, nil, m.opts.Locale, render.StringKey(component, id), args...)
}
