package i18n

import (
	"net/http"

	"golang.org/x/text/language"
)

// CookieName holds the UI language chosen by the user.
const CookieName = "lang"

// Middleware injects a localizer into every request context. The language
// cookie wins over Accept-Language, which wins over the default.
func (c *Catalog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lang := c.def
		var prefs []string
		if ck, err := r.Cookie(CookieName); err == nil && c.Supported(ck.Value) {
			lang = ck.Value
			prefs = append(prefs, ck.Value)
		} else if accept := r.Header.Get("Accept-Language"); accept != "" {
			prefs = append(prefs, accept)
			lang = c.match(accept)
		}
		ctx := WithLocalizer(r.Context(), c.NewLocalizer(prefs...), lang)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// match picks the best supported language for an Accept-Language header.
func (c *Catalog) match(accept string) string {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil {
		return c.def
	}
	for _, t := range tags {
		base, _ := t.Base()
		if c.supported[base.String()] {
			return base.String()
		}
	}
	return c.def
}
