// Package filepicker is the entry point of go-omerofilepicker, a form field
// that picks a single image from an Omero repository into a draft area slot.
//
// The root package re-exports the pieces most callers need: the picker field
// (pkg/picker), the draft stores (pkg/draft and pkg/draft/sqlite) and the
// no-script draft file manager (components/draftfiles).
package filepicker
