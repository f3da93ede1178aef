// Package draft defines draft file areas: transient, per-user storage slots
// identified by an ItemID where uploads are staged before a form submission
// attaches them to a persistent record.
//
// Service is the minimal contract consumed by form fields (allocate, list,
// delete). Store adds the upload and download paths used by the draft file
// manager endpoint. MemoryStore is an in-process implementation; the sqlite
// subpackage provides a persistent one.
package draft
