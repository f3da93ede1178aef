package render

import (
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"
)

// DisplaySize formats a byte count for humans using binary units, e.g.
// "2.0 MiB". Negative sizes render as "".
func DisplaySize(size int64) string {
	if size < 0 {
		return ""
	}
	return humanize.IBytes(uint64(size))
}

var (
	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

// SanitizeMarkup strips scripts, event handlers and unsafe URLs from HTML
// fragments supplied by callers (help buttons, labels).
func SanitizeMarkup(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(markupSanitizer().Sanitize(trimmed))
}

func markupSanitizer() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.AllowAttrs("class", "title", "role", "aria-label", "aria-hidden").Globally()
		policy.AllowAttrs("data-toggle", "data-container", "data-content", "data-placement").OnElements("a", "span")
		markupPolicy = policy
	})
	return markupPolicy
}
