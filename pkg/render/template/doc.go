// Package template defines the template rendering seam used by the picker
// and draft file manager, so engines can be swapped without touching
// callers.
package template
