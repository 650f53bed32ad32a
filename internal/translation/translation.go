// Package translation translates messages from locale catalogues.
package translation

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MissingHandler is told about every lookup that missed the requested
// locale. Each method returns the text to use.
type MissingHandler interface {
	Missing(translation, message string, params map[string]any, locale, requestedLocale string) string
	Fallback(translation, message string, params map[string]any, fallbackLocale, requestedLocale string) string
	FallbackToDefault(translation, message string, params map[string]any, defaultLocale, requestedLocale string) string
}

// PassThrough returns the translation unchanged.
type PassThrough struct{}

func (PassThrough) Missing(translation, _ string, _ map[string]any, _, _ string) string {
	return translation
}

func (PassThrough) Fallback(translation, _ string, _ map[string]any, _, _ string) string {
	return translation
}

func (PassThrough) FallbackToDefault(translation, _ string, _ map[string]any, _, _ string) string {
	return translation
}

// Catalogue holds messages per locale.
type Catalogue struct {
	mu       sync.RWMutex
	messages map[string]map[string]string
}

func NewCatalogue() *Catalogue {
	return &Catalogue{messages: make(map[string]map[string]string)}
}

func (c *Catalogue) Add(locale string, messages map[string]string) *Catalogue {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.messages[locale] == nil {
		c.messages[locale] = make(map[string]string, len(messages))
	}
	for k, v := range messages {
		c.messages[locale][k] = v
	}
	return c
}

func (c *Catalogue) lookup(locale, message string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.messages[locale][message]
	return t, ok
}

type Options struct {
	Locale        string
	DefaultLocale string
	// Fallbacks maps a locale to the locale tried next.
	Fallbacks map[string]string
}

// Translator resolves messages with locale fallback.
type Translator struct {
	catalogue *Catalogue
	opts      Options
	handler   MissingHandler
}

func New(catalogue *Catalogue, opts Options) *Translator {
	if opts.DefaultLocale == "" {
		opts.DefaultLocale = "en"
	}
	if opts.Locale == "" {
		opts.Locale = opts.DefaultLocale
	}
	return &Translator{catalogue: catalogue, opts: opts, handler: PassThrough{}}
}

// WithHandler returns a translator sharing t's catalogue that reports
// misses to h.
func (t *Translator) WithHandler(h MissingHandler) *Translator {
	clone := *t
	clone.handler = h
	return &clone
}

// WithLocale returns a translator for another current locale.
func (t *Translator) WithLocale(locale string) *Translator {
	clone := *t
	clone.opts.Locale = locale
	return &clone
}

func (t *Translator) Locale() string {
	return t.opts.Locale
}

// Trans translates message into locale, or the current locale when
// empty. Parameters replace ":name" placeholders.
func (t *Translator) Trans(message string, params map[string]any, locale string) string {
	if locale == "" {
		locale = t.opts.Locale
	}

	if translated, ok := t.catalogue.lookup(locale, message); ok {
		return replace(translated, params)
	}

	if fallback, ok := t.opts.Fallbacks[locale]; ok {
		if translated, ok := t.catalogue.lookup(fallback, message); ok {
			return replace(t.handler.Fallback(translated, message, params, fallback, locale), params)
		}
	}

	if locale != t.opts.DefaultLocale {
		if translated, ok := t.catalogue.lookup(t.opts.DefaultLocale, message); ok {
			return replace(t.handler.FallbackToDefault(translated, message, params, t.opts.DefaultLocale, locale), params)
		}
	}

	return replace(t.handler.Missing(message, message, params, locale, locale), params)
}

// replace substitutes the longest parameter names first so ":name" does
// not clobber ":names".
func replace(text string, params map[string]any) string {
	if len(params) == 0 {
		return text
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, ":"+strings.TrimPrefix(k, ":"), fmt.Sprint(params[k]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
