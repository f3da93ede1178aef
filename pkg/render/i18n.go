package render

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrMissingTranslator is passed to MissingTranslationHandler when no
// Translator was configured.
var ErrMissingTranslator = errors.New("render: translator not configured")

// Translator resolves localized strings. Keys are "<component>.<identifier>",
// for example "repository.openpicker".
type Translator interface {
	Translate(locale, key string, args ...any) (string, error)
}

// TranslatorFunc adapts a function into a Translator.
type TranslatorFunc func(locale, key string, args ...any) (string, error)

// Translate calls fn.
func (fn TranslatorFunc) Translate(locale, key string, args ...any) (string, error) {
	return fn(locale, key, args...)
}

// MissingTranslationHandler decides what to show when a key cannot be
// translated.
type MissingTranslationHandler func(locale, key string, args []any, err error) string

func missingTranslationDefault(_ string, key string, _ []any, _ error) string {
	return "[[" + key + "]]"
}

// StringKey joins a component and identifier into a translation key.
func StringKey(component, identifier string) string {
	component = strings.TrimSpace(component)
	identifier = strings.TrimSpace(identifier)
	if component == "" {
		return identifier
	}
	return component + "." + identifier
}

// Localize looks up key through t, falling back to onMissing (or the
// "[[key]]" marker) on failure.
func Localize(t Translator, onMissing MissingTranslationHandler, locale, key string, args ...any) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if onMissing == nil {
		onMissing = missingTranslationDefault
	}
	if t == nil {
		return onMissing(locale, key, args, ErrMissingTranslator)
	}
	msg, err := t.Translate(locale, key, args...)
	if err != nil || strings.TrimSpace(msg) == "" {
		return onMissing(locale, key, args, err)
	}
	return msg
}

// Catalog is a map backed Translator keyed by locale then key. Messages use
// fmt verbs for arguments. Lookups for an unknown locale fall back to the
// catalog's fallback locale.
type Catalog struct {
	mu       sync.RWMutex
	fallback string
	messages map[string]map[string]string
}

// NewCatalog creates an empty catalog falling back to fallbackLocale.
func NewCatalog(fallbackLocale string) *Catalog {
	if fallbackLocale == "" {
		fallbackLocale = "en"
	}
	return &Catalog{
		fallback: fallbackLocale,
		messages: make(map[string]map[string]string),
	}
}

// Add registers messages for locale, replacing existing keys.
func (c *Catalog) Add(locale string, messages map[string]string) {
	locale = normalizeLocale(locale)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messages[locale] == nil {
		c.messages[locale] = make(map[string]string, len(messages))
	}
	for key, msg := range messages {
		c.messages[locale][strings.TrimSpace(key)] = msg
	}
}

func (c *Catalog) Translate(locale, key string, args ...any) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msg, ok := c.lookup(normalizeLocale(locale), key)
	if !ok {
		msg, ok = c.lookup(c.fallback, key)
	}
	if !ok {
		return "", fmt.Errorf("render: no translation for %q", key)
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...), nil
	}
	return msg, nil
}

func (c *Catalog) lookup(locale, key string) (string, bool) {
	if locale == "" {
		return "", false
	}
	if msgs, ok := c.messages[locale]; ok {
		if msg, ok := msgs[key]; ok {
			return msg, true
		}
	}
	// "pt-BR" falls back to "pt".
	if base, _, found := strings.Cut(locale, "-"); found {
		if msgs, ok := c.messages[base]; ok {
			msg, ok := msgs[key]
			return msg, ok
		}
	}
	return "", false
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	return strings.ReplaceAll(locale, "_", "-")
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
)

// DefaultCatalog returns the built-in English strings used by the picker and
// the draft file manager.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		defaultCatalog = NewCatalog("en")
		defaultCatalog.Add("en", map[string]string{
			"repository.filesaved":       "The file has been saved",
			"repository.openpicker":      "Choose a file...",
			"repository.loading":         "Loading...",
			"repository.nofilesattached": "No files attached",
			"repository.upload":          "Upload this file",
			"repository.attachment":      "Attachment",
			"repository.delete":          "Delete",
			"repository.maxfilesreached": "You are allowed to attach a maximum of %d file(s) to this item",
			"moodle.dndenabled_inbox":    "You can drag and drop files here to add them.",
			"moodle.droptoupload":        "Drop files here to upload",
			"moodle.maxfilesize":         "Maximum size for new files: %s",
		})
	})
	return defaultCatalog
}
