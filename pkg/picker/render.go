package picker

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/omero"
	"github.com/goliatone/go-omerofilepicker/pkg/render"
)

// InitFunction is the browser entry point that takes over the rendered
// markup.
const InitFunction = "M.form_filepicker.init"

// ViewModel is the argument handed to InitFunction. Its JSON keys are the
// contract with the browser widget.
type ViewModel struct {
	AcceptedTypes draft.AcceptedTypes `json:"accepted_types"`
	ReturnTypes   ReturnTypes         `json:"return_types"`
	ItemID        draft.ItemID        `json:"itemid"`
	MaxBytes      int64               `json:"maxbytes"`
	Context       int64               `json:"context"`
	ButtonName    string              `json:"buttonname"`
	ElementName   string              `json:"elementname"`
	ClientID      string              `json:"client_id"`
	CurrentFile   string              `json:"currentfile"`
	Env           string              `json:"env"`
}

// WidgetModule describes the browser module loaded for the picker.
func WidgetModule(fullPath string) render.Module {
	if strings.TrimSpace(fullPath) == "" {
		fullPath = DefaultModulePath
	}
	return render.Module{
		Name:     "form_filepicker",
		FullPath: fullPath,
		Requires: []string{"core_filepicker", "node", "node-event-simulate", "core_dndupload"},
	}
}

// ManagerQuery addresses the draft file manager used when scripts are off.
type ManagerQuery struct {
	Env       string
	Action    string
	ItemID    draft.ItemID
	Subdirs   bool
	MaxBytes  int64
	MaxFiles  int
	ContextID int64
	CourseID  int64
	SessKey   string
}

// Encode renders the query string with parameters in a fixed order.
func (q ManagerQuery) Encode() string {
	subdirs := "0"
	if q.Subdirs {
		subdirs = "1"
	}
	pairs := [][2]string{
		{"env", q.Env},
		{"action", q.Action},
		{"itemid", strconv.FormatInt(int64(q.ItemID), 10)},
		{"subdirs", subdirs},
		{"maxbytes", strconv.FormatInt(q.MaxBytes, 10)},
		{"maxfiles", strconv.Itoa(q.MaxFiles)},
		{"ctx_id", strconv.FormatInt(q.ContextID, 10)},
		{"course", strconv.FormatInt(q.CourseID, 10)},
		{"sesskey", q.SessKey},
	}

	var b strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair[0]))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(pair[1]))
	}
	return b.String()
}

// URL joins the query onto base.
func (q ManagerQuery) URL(base string) string {
	return base + "?" + q.Encode()
}

// Render returns the field markup. An unbound field gets a fresh draft slot
// first; a frozen field renders its read-only form and never allocates.
func (f *Field) Render(ctx context.Context, rc RenderContext) (string, error) {
	f.logEndpoint()

	if f.frozen {
		return f.renderFrozen(ctx, rc)
	}

	var currentFile string
	if f.value == draft.NoItem {
		item, err := f.svc.Allocate(ctx, rc.Scope())
		if err != nil {
			return "", fmt.Errorf("picker: allocate draft item for %q: %w", f.name, err)
		}
		f.value = item
		f.opts.Logger.Debug("allocated draft item", "field", f.name, "item", item)
	} else {
		name, err := f.currentFile(ctx, rc)
		if err != nil {
			return "", err
		}
		currentFile = name
	}

	vm := f.viewModel(rc, f.opts.ClientID(), currentFile)
	data := map[string]any{
		"client_id":    vm.ClientID,
		"element_id":   f.id,
		"button_name":  vm.ButtonName,
		"max_size":     f.sizeHint(rc),
		"current_file": currentFile,
		"dnd":          f.opts.Env != EnvURL,
		"hidden":       hiddenData(render.Hidden(f.name, f.value)),
		"nonjs_url":    f.managerURL(rc),
		"loading_icon": rc.root() + "/pix/i/loading_small.gif",
		"str": map[string]any{
			"filesaved":    rc.str("repository", "filesaved"),
			"openpicker":   rc.str("repository", "openpicker"),
			"loading":      rc.str("repository", "loading"),
			"dndenabled":   rc.str("moodle", "dndenabled_inbox"),
			"droptoupload": rc.str("moodle", "droptoupload"),
		},
	}

	out, err := f.renderer().Render(PartialPicker, data)
	if err != nil {
		return "", err
	}
	if rc.Requires != nil {
		rc.Requires.JSInitCall(InitFunction, []any{vm}, true, WidgetModule(f.opts.ModulePath))
	}
	return out, nil
}

// ViewModel returns the widget arguments for the bound slot without
// rendering or allocating.
func (f *Field) ViewModel(rc RenderContext, clientID string) ViewModel {
	return f.viewModel(rc, clientID, "")
}

func (f *Field) viewModel(rc RenderContext, clientID, currentFile string) ViewModel {
	return ViewModel{
		AcceptedTypes: f.opts.AcceptedTypes,
		ReturnTypes:   f.opts.ReturnTypes,
		ItemID:        f.value,
		MaxBytes:      f.opts.MaxBytes,
		Context:       rc.ContextID,
		ButtonName:    f.name + "choose",
		ElementName:   f.name,
		ClientID:      clientID,
		CurrentFile:   currentFile,
		Env:           f.opts.Env,
	}
}

func (f *Field) renderFrozen(ctx context.Context, rc RenderContext) (string, error) {
	var currentFile string
	if f.value != draft.NoItem {
		name, err := f.currentFile(ctx, rc)
		if err != nil {
			return "", err
		}
		currentFile = name
	}

	data := map[string]any{
		"element_id":   f.id,
		"current_file": currentFile,
		"str": map[string]any{
			"nofilesattached": rc.str("repository", "nofilesattached"),
		},
	}
	if f.value != draft.NoItem {
		data["hidden"] = hiddenData(render.Hidden(f.name, f.value))
	}
	return f.renderer().Render(PartialFrozen, data)
}

// sizeHint returns the localized maximum size line, or "" when the user may
// ignore limits.
func (f *Field) sizeHint(rc RenderContext) string {
	size := f.opts.MaxBytes
	if size == 0 {
		size = rc.SiteMaxBytes
	}
	if size == UnlimitedBytes {
		return ""
	}
	return rc.str("moodle", "maxfilesize", render.DisplaySize(size))
}

func (f *Field) managerURL(rc RenderContext) string {
	query := ManagerQuery{
		Env:       EnvFilePicker,
		Action:    "browse",
		ItemID:    f.value,
		MaxBytes:  f.opts.MaxBytes,
		MaxFiles:  1,
		ContextID: rc.ContextID,
		CourseID:  rc.CourseID,
		SessKey:   rc.SessKey,
	}
	return query.URL(rc.root() + f.opts.ManagerPath)
}

func (f *Field) currentFile(ctx context.Context, rc RenderContext) (string, error) {
	files, err := f.svc.Files(ctx, rc.Scope(), f.value, draft.NewestFirst)
	if err != nil {
		return "", fmt.Errorf("picker: list draft item %d: %w", f.value, err)
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0].Name, nil
}

func (f *Field) renderer() *Renderer {
	if f.opts.Renderer != nil {
		return f.opts.Renderer
	}
	return &Renderer{}
}

func (f *Field) logEndpoint() {
	if f.opts.OmeroEndpoint == "" || !f.opts.Logger.DebugEnabled() {
		return
	}
	f.opts.Logger.Debug("omero endpoint",
		"field", f.name,
		"endpoint", f.opts.OmeroEndpoint,
		"gateway", omero.WebGatewayServer(f.opts.OmeroEndpoint),
	)
}

func hiddenData(h render.HiddenField) map[string]any {
	return map[string]any{"name": h.Name, "value": h.Value}
}
