package main

import (
	"github.com/goliatone/go-omerofilepicker/components/draftfiles"
	"github.com/goliatone/go-omerofilepicker/components/draftfiles/pickerwiring"
	"github.com/goliatone/go-omerofilepicker/pkg/draft"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
)

// fieldOptions is the picker configuration shared by every command: the
// configured Omero endpoint, the manager mount and the optional theme.
func (a *app) fieldOptions(extra ...picker.Option) ([]picker.Option, error) {
	options := []picker.Option{
		picker.WithOmeroEndpoint(a.cfg.OmeroEndpoint),
		picker.WithLogger(a.logger),
	}
	options = append(options, pickerwiring.PickerOptions("", a.managerOptions()...)...)

	themed, err := loadTheme(a.fs, a.cfg.Theme, a.cfg.ThemeVariant)
	if err != nil {
		return nil, err
	}
	options = append(options, themed...)
	return append(options, extra...), nil
}

func (a *app) managerOptions(extra ...draftfiles.OptionFn) []draftfiles.OptionFn {
	options := []draftfiles.OptionFn{
		draftfiles.WithMaxBytes(a.cfg.SiteMaxBytes),
		draftfiles.WithLocale(a.cfg.Locale),
		draftfiles.WithLogger(a.logger),
	}
	return append(options, extra...)
}

func (a *app) newField(svc draft.Service, name, label string, extra ...picker.Option) (*picker.Field, error) {
	options, err := a.fieldOptions(extra...)
	if err != nil {
		return nil, err
	}
	return picker.New(name, label, svc, options...)
}
