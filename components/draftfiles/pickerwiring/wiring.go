package pickerwiring

import (
	"github.com/goliatone/go-omerofilepicker/components/draftfiles"
	"github.com/goliatone/go-omerofilepicker/pkg/picker"
)

// PickerOptions returns picker options that point a field's no-script
// fallback at a draft file manager mounted under basePath and mirror the
// manager's accepted types and size limit.
func PickerOptions(basePath string, fns ...draftfiles.OptionFn) []picker.Option {
	opts := draftfiles.NewOptions(fns...)
	out := []picker.Option{
		picker.WithManagerPath(draftfiles.MountPath(basePath, func(o *draftfiles.Options) {
			if o == nil {
				return
			}
			*o = opts
		})),
	}
	if !opts.AcceptedTypes.Any() {
		out = append(out, picker.WithAcceptedTypes(opts.AcceptedTypes...))
	}
	if opts.MaxBytes > 0 {
		out = append(out, picker.WithMaxBytes(opts.MaxBytes))
	}
	return out
}
