// Package i18n provides localized display strings for analyzer messages, tray labels and alerts.
package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// DefaultLanguage is used when no preference is set and as the lookup fallback.
const DefaultLanguage = "en"

// Message keys produced by the proximity analyzer.
const (
	KeyNoFace     = "analyzer_no_face"
	KeyMonitoring = "analyzer_monitoring"
	KeyDetecting  = "analyzer_detecting"
	KeyWarning    = "analyzer_warning"
	KeyCooldown   = "analyzer_cooldown"
)

// Message keys used by the tray and alert notifications.
const (
	KeyTrayStart    = "tray_start"
	KeyTrayStop     = "tray_stop"
	KeyTrayOpen     = "tray_open"
	KeyTrayExit     = "tray_exit"
	KeyTrayStopped  = "tray_stopped"
	KeyAlertTitle   = "alert_title"
	KeyAlertMessage = "alert_message"
)

// Message argument names.
const (
	ArgTimeUntilAlert = "time_until_alert"
	ArgRemaining      = "remaining"
)

// SupportedLanguages maps language codes to their display names.
var SupportedLanguages = map[string]string{
	"ko": "한국어",
	"en": "English",
	"ja": "日本語",
	"zh": "中文",
	"es": "Español",
	"ru": "Русский",
}

//go:embed locales/*.json
var localesFS embed.FS

// Translator turns a message key and its numeric arguments into display text.
type Translator interface {
	Translate(key string, args map[string]float64) string
}

// Message is a localizable message: a fixed key plus the numbers to interpolate.
type Message struct {
	Key  string             `json:"key"`
	Args map[string]float64 `json:"args,omitempty"`
}

// Render translates the message with tr.
func (m Message) Render(tr Translator) string {
	if tr == nil {
		return m.Key
	}
	return tr.Translate(m.Key, m.Args)
}

// Catalog is a Translator backed by the embedded JSON locale files, rendered
// through an x/text message catalog.
type Catalog struct {
	printers map[string]*message.Printer
	// params lists each key's argument names in format-argument order.
	params  map[string][]string
	current string
	mu      sync.RWMutex
}

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// NewCatalog loads every supported locale file and selects lang.
// An unsupported or empty lang selects DefaultLanguage.
//
// The English locale defines the set of keys; other locales fall back to it
// key by key. A {name} placeholder becomes a %.1f verb bound to the argument
// of that name.
func NewCatalog(lang string) (*Catalog, error) {
	tables := make(map[string]map[string]string)
	for code := range SupportedLanguages {
		data, err := localesFS.ReadFile(path.Join("locales", code+".json"))
		if err != nil {
			continue // Locale not shipped, lookups fall back to English
		}

		var table map[string]string
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("parse locale %s: %w", code, err)
		}
		tables[code] = table
	}

	base, ok := tables[DefaultLanguage]
	if !ok {
		return nil, fmt.Errorf("default locale %q missing", DefaultLanguage)
	}

	c := &Catalog{
		printers: make(map[string]*message.Printer),
		params:   make(map[string][]string),
		current:  DefaultLanguage,
	}
	for key := range base {
		c.params[key] = paramsOf(key, tables)
	}

	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for code, table := range tables {
		tag := language.Make(code)
		for key, params := range c.params {
			text, ok := table[key]
			if !ok {
				text = base[key]
			}
			if err := b.SetString(tag, key, toFormat(text, params)); err != nil {
				return nil, fmt.Errorf("locale %s: key %s: %w", code, key, err)
			}
		}
		c.printers[code] = message.NewPrinter(tag, message.Catalog(b))
	}

	c.SetLanguage(lang)
	return c, nil
}

// paramsOf collects the placeholder names used by key in any locale, sorted.
func paramsOf(key string, tables map[string]map[string]string) []string {
	var names []string
	for _, table := range tables {
		for _, m := range placeholder.FindAllStringSubmatch(table[key], -1) {
			if !slices.Contains(names, m[1]) {
				names = append(names, m[1])
			}
		}
	}
	sort.Strings(names)
	return names
}

// toFormat turns a locale string into a printf format for the message printer.
func toFormat(text string, params []string) string {
	text = strings.ReplaceAll(text, "%", "%%")
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		i := slices.Index(params, m[1:len(m)-1])
		return fmt.Sprintf("%%[%d].1f", i+1)
	})
}

// SetLanguage selects the current language. It returns false and leaves the
// selection unchanged if code is not supported.
func (c *Catalog) SetLanguage(code string) bool {
	if _, ok := SupportedLanguages[code]; !ok {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = code
	return true
}

// Language returns the current language code.
func (c *Catalog) Language() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Languages returns the supported language codes in sorted order.
func (c *Catalog) Languages() []string {
	codes := make([]string, 0, len(SupportedLanguages))
	for code := range SupportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Translate renders key in the current language. Unknown keys are returned
// as is; missing arguments render as zero.
func (c *Catalog) Translate(key string, args map[string]float64) string {
	params, ok := c.params[key]
	if !ok {
		return key
	}

	c.mu.RLock()
	p, ok := c.printers[c.current]
	c.mu.RUnlock()
	if !ok {
		p = c.printers[DefaultLanguage]
	}

	values := make([]any, len(params))
	for i, name := range params {
		values[i] = args[name]
	}
	return p.Sprintf(key, values...)
}

var supportedTags = []language.Tag{
	language.English, // first entry is the matcher's fallback
	language.Korean,
	language.Japanese,
	language.Chinese,
	language.Spanish,
	language.Russian,
}

var matcher = language.NewMatcher(supportedTags)

// SystemLocale returns the locale that governs message language, checking
// LC_ALL, LC_MESSAGES and LANG in that order.
func SystemLocale() string {
	for _, name := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// DetectLanguage maps a POSIX locale string such as "ko_KR.UTF-8" to a supported
// language code, returning DefaultLanguage when nothing matches.
func DetectLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	if i := strings.IndexAny(locale, ".@"); i >= 0 {
		locale = locale[:i]
	}
	if locale == "" || locale == "C" || locale == "POSIX" {
		return DefaultLanguage
	}

	tag, err := language.Parse(strings.ReplaceAll(locale, "_", "-"))
	if err != nil {
		return DefaultLanguage
	}

	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return DefaultLanguage
	}

	base, _ := supportedTags[index].Base()
	return base.String()
}
