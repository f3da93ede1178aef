// Package render holds the presentation helpers shared by form fields:
// translation lookup, hidden inputs, the browser module loader hook, size
// formatting and markup sanitizing.
package render
