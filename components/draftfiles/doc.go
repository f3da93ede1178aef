// Package draftfiles serves the draft file manager that pickers fall back to
// when scripts are disabled.
//
// One route handles three actions selected by the action query parameter:
// GET browse lists the files of a draft item with upload and delete forms,
// POST upload stores a multipart file and POST delete removes one. Every
// request must resolve a user scope and echo the session key. Uploads are
// capped by file count and size and their sniffed type is checked against
// the accepted types.
package draftfiles
