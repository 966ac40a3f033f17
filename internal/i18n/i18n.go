package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

type ctxKey struct{}

type langCtxKey struct{}

// Catalog holds the UI translations. Build one with New and pass it to the
// code that renders pages.
type Catalog struct {
	bundle    *i18n.Bundle
	def       string
	supported map[string]bool
	languages []string
}

// New loads every embedded locale; defaultLang is used when a request
// expresses no supported preference.
func New(defaultLang string) (*Catalog, error) {
	tag, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse language %q: %w", defaultLang, err)
	}

	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	c := &Catalog{bundle: bundle, def: tag.String(), supported: make(map[string]bool)}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return nil, fmt.Errorf("read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return nil, fmt.Errorf("read locale file %s: %w", e.Name(), err)
		}
		mf, err := bundle.ParseMessageFileBytes(data, e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse locale file %s: %w", e.Name(), err)
		}
		lang := mf.Tag.String()
		c.supported[lang] = true
		c.languages = append(c.languages, lang)
		slog.Debug("loaded locale file", "file", e.Name())
	}

	if !c.supported[c.def] {
		return nil, fmt.Errorf("no translations for default language %q", defaultLang)
	}
	return c, nil
}

// Default returns the default language tag.
func (c *Catalog) Default() string { return c.def }

// Languages lists the loaded language tags.
func (c *Catalog) Languages() []string { return c.languages }

// Supported reports whether translations for lang are loaded.
func (c *Catalog) Supported(lang string) bool { return c.supported[strings.TrimSpace(lang)] }

// NewLocalizer creates a localizer trying langs in order, then the default.
// Entries may be tags or Accept-Language header values.
func (c *Catalog) NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(c.bundle, append(langs, c.def)...)
}

// WithLocalizer stores a localizer and the chosen language in the context.
func WithLocalizer(ctx context.Context, loc *i18n.Localizer, lang string) context.Context {
	ctx = context.WithValue(ctx, ctxKey{}, loc)
	return context.WithValue(ctx, langCtxKey{}, lang)
}

// Lang returns the language chosen for the request, or "".
func Lang(ctx context.Context) string {
	l, _ := ctx.Value(langCtxKey{}).(string)
	return l
}

func localize(ctx context.Context, cfg *i18n.LocalizeConfig) string {
	loc, ok := ctx.Value(ctxKey{}).(*i18n.Localizer)
	if !ok {
		return cfg.MessageID
	}
	s, err := loc.Localize(cfg)
	if err != nil {
		slog.Warn("missing translation", "id", cfg.MessageID, "error", err)
		return cfg.MessageID
	}
	return s
}

// T translates a message by ID.
func T(ctx context.Context, msgID string) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID})
}

// Td translates a message by ID with template data.
func Td(ctx context.Context, msgID string, data map[string]any) string {
	return localize(ctx, &i18n.LocalizeConfig{MessageID: msgID, TemplateData: data})
}

// Tp translates a pluralized message by ID.
func Tp(ctx context.Context, msgID string, count int) string {
	return localize(ctx, &i18n.LocalizeConfig{
		MessageID:    msgID,
		PluralCount:  count,
		TemplateData: map[string]any{"Count": count},
	})
}
