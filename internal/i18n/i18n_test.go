package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New("en")
	if err != nil {
		t.Fatalf("New(en): %v", err)
	}
	return c
}

func ctxFor(t *testing.T, lang string) context.Context {
	t.Helper()
	c := newCatalog(t)
	return WithLocalizer(context.Background(), c.NewLocalizer(lang), lang)
}

func TestNewUnknownDefault(t *testing.T) {
	if _, err := New("fr"); err == nil {
		t.Fatal("expected error for language without translations")
	}
	if _, err := New("not a tag!"); err == nil {
		t.Fatal("expected error for malformed tag")
	}
}

func TestLanguagesLoaded(t *testing.T) {
	c := newCatalog(t)
	for _, lang := range []string{"en", "hi"} {
		if !c.Supported(lang) {
			t.Errorf("Supported(%q) = false", lang)
		}
	}
	if c.Supported("ru") {
		t.Error("Supported(ru) = true")
	}
	if c.Default() != "en" {
		t.Errorf("Default() = %q", c.Default())
	}
}

func TestTranslateEnglish(t *testing.T) {
	ctx := ctxFor(t, "en")

	if got := T(ctx, "AppTitle"); got != "Vidya" {
		t.Errorf("T(AppTitle) = %q, want 'Vidya'", got)
	}
	if got := T(ctx, "Role_schoolAdmin"); got != "School administrator" {
		t.Errorf("T(Role_schoolAdmin) = %q", got)
	}
}

func TestTranslateHindi(t *testing.T) {
	ctx := ctxFor(t, "hi")

	if got := T(ctx, "AppTitle"); got != "विद्या" {
		t.Errorf("T(AppTitle) = %q, want 'विद्या'", got)
	}
	if got := T(ctx, "Role_student"); got != "विद्यार्थी" {
		t.Errorf("T(Role_student) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := ctxFor(t, "en")

	if got := Tp(ctx, "SessionsCompleted", 1); got != "1 session completed" {
		t.Errorf("Tp(SessionsCompleted, 1) = %q", got)
	}
	if got := Tp(ctx, "SessionsCompleted", 4); got != "4 sessions completed" {
		t.Errorf("Tp(SessionsCompleted, 4) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := ctxFor(t, "en")

	got := Td(ctx, "Welcome", map[string]any{"Name": "Asha"})
	if got != "Welcome, Asha" {
		t.Errorf("Td(Welcome) = %q, want 'Welcome, Asha'", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := ctxFor(t, "en")

	if got := T(ctx, "NonExistentKey"); got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestNoLocalizer(t *testing.T) {
	if got := T(context.Background(), "AppTitle"); got != "AppTitle" {
		t.Errorf("T without localizer = %q, want message ID", got)
	}
	if got := Lang(context.Background()); got != "" {
		t.Errorf("Lang without localizer = %q", got)
	}
}

func TestMiddleware(t *testing.T) {
	c := newCatalog(t)

	tests := []struct {
		name     string
		cookie   string
		accept   string
		wantLang string
		wantApp  string
	}{
		{"default", "", "", "en", "Vidya"},
		{"cookie", "hi", "", "hi", "विद्या"},
		{"cookie beats header", "en", "hi-IN,hi;q=0.9", "en", "Vidya"},
		{"accept language", "", "hi-IN,hi;q=0.9,en;q=0.5", "hi", "विद्या"},
		{"unsupported cookie", "ru", "", "en", "Vidya"},
		{"unsupported header", "", "de-DE", "en", "Vidya"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotLang, gotApp string
			h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotLang = Lang(r.Context())
				gotApp = T(r.Context(), "AppTitle")
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			if tt.accept != "" {
				req.Header.Set("Accept-Language", tt.accept)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if gotLang != tt.wantLang {
				t.Errorf("Lang = %q, want %q", gotLang, tt.wantLang)
			}
			if gotApp != tt.wantApp {
				t.Errorf("T(AppTitle) = %q, want %q", gotApp, tt.wantApp)
			}
		})
	}
}
