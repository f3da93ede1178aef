package draft

import (
	"encoding/json"
	"mime"
	"path"
	"strings"
)

// Wildcard accepts every file type.
const Wildcard = "*"

// AcceptedTypes lists the file types a picker or upload accepts. Entries are
// extensions (".png"), full MIME types ("image/png") or MIME groups
// ("image/*"). An empty list or one containing "*" accepts everything.
type AcceptedTypes []string

// NormalizeAcceptedTypes trims entries, lower-cases them, drops blanks and
// collapses any wildcard into a single "*".
func NormalizeAcceptedTypes(types []string) AcceptedTypes {
	out := make(AcceptedTypes, 0, len(types))
	seen := make(map[string]struct{}, len(types))
	for _, entry := range types {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if entry == Wildcard || entry == "*/*" {
			return AcceptedTypes{Wildcard}
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return AcceptedTypes{Wildcard}
	}
	return out
}

// Any reports whether every type is accepted.
func (a AcceptedTypes) Any() bool {
	if len(a) == 0 {
		return true
	}
	for _, entry := range a {
		if strings.TrimSpace(entry) == Wildcard {
			return true
		}
	}
	return false
}

// Allows reports whether a file named name with the given MIME type matches
// one of the entries.
func (a AcceptedTypes) Allows(name, mimeType string) bool {
	if a.Any() {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	if media, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = media
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	for _, entry := range a {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "":
			continue
		case strings.HasSuffix(entry, "/*"):
			if mimeType != "" && strings.HasPrefix(mimeType, strings.TrimSuffix(entry, "*")) {
				return true
			}
		case strings.Contains(entry, "/"):
			if mimeType == entry {
				return true
			}
		default:
			if !strings.HasPrefix(entry, ".") {
				entry = "." + entry
			}
			if ext == entry {
				return true
			}
		}
	}
	return false
}

// MarshalJSON encodes the wildcard as the bare string "*" and everything
// else as a list, which is what the browser widget expects.
func (a AcceptedTypes) MarshalJSON() ([]byte, error) {
	if a.Any() {
		return json.Marshal(Wildcard)
	}
	return json.Marshal([]string(a))
}

// UnmarshalJSON accepts either form produced by MarshalJSON.
func (a *AcceptedTypes) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = NormalizeAcceptedTypes([]string{single})
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*a = NormalizeAcceptedTypes(list)
	return nil
}
