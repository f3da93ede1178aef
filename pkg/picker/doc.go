// Package picker implements a form field that lets a user pick a single file
// from an Omero image repository into a draft area slot.
//
// A Field is bound lazily to a draft item: the first Render allocates one
// through the draft.Service and embeds its id in a hidden input so the slot
// survives the round trip. On submission Finalize trims the slot down to the
// newest file, discarding it as well when it breaks the size limit.
//
//	field, err := picker.New("attachment", "Image", store,
//		picker.WithMaxBytes(10<<20),
//		picker.WithAcceptedTypes(".png", ".ome.tif"),
//	)
//	html, err := field.Render(ctx, picker.RenderContext{UserID: 7, Requires: requires})
//	result, err := field.Finalize(ctx, picker.RenderContext{UserID: 7}, r.PostForm)
//
// Markup comes from embedded pongo2 templates. A go-theme manifest can
// replace them through the PartialPicker and PartialFrozen keys.
package picker
