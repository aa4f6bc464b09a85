package views

import (
	"net/url"
	"testing"

	"github.com/desertthunder/subfeed/internal/models"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse %s: %v", raw, err)
	}
	return u
}

func TestSelect(t *testing.T) {
	authed := models.Session{Token: "t", User: &models.UserProfile{ID: "u1"}}
	verifying := models.Session{Verifying: true}
	anon := models.Session{}

	tc := []struct {
		name    string
		session models.Session
		url     string
		want    View
	}{
		{name: "callback path beats unauthenticated", session: anon, url: "http://localhost:3000/auth/google?code=x", want: ViewCallback},
		{name: "callback path without query", session: anon, url: "http://localhost:3000/auth/google", want: ViewCallback},
		{name: "code on root beats verifying", session: verifying, url: "http://localhost:3000/?code=abc", want: ViewCallback},
		{name: "code beats authenticated", session: authed, url: "/?state=s&code=abc", want: ViewCallback},
		{name: "verifying", session: verifying, url: "/", want: ViewLoading},
		{name: "authenticated", session: authed, url: "/", want: ViewDashboard},
		{name: "unauthenticated", session: anon, url: "/", want: ViewLogin},
		{name: "other path", session: anon, url: "/auth/googlebot", want: ViewLogin},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := Select(tt.session, mustParse(t, tt.url)); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	t.Run("nil URL", func(t *testing.T) {
		if got := Select(authed, nil); got != ViewDashboard {
			t.Errorf("expected dashboard, got %s", got)
		}
		if got := Select(verifying, nil); got != ViewLoading {
			t.Errorf("expected loading, got %s", got)
		}
	})
}

func TestCallbackTarget(t *testing.T) {
	tc := []struct {
		name string
		base string
		url  string
		want string
	}{
		{name: "carries query", base: "http://api:8001/api", url: "http://localhost:3000/auth/google?code=abc&scope=x", want: "http://api:8001/api/auth/google?code=abc&scope=x"},
		{name: "trailing slash", base: "http://api:8001/api/", url: "/?code=1", want: "http://api:8001/api/auth/google?code=1"},
		{name: "no query", base: "http://api:8001/api", url: "/auth/google", want: "http://api:8001/api/auth/google"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := CallbackTarget(tt.base, mustParse(t, tt.url)); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestViewString(t *testing.T) {
	for v, want := range map[View]string{ViewLogin: "login", ViewLoading: "loading", ViewDashboard: "dashboard", ViewCallback: "callback", View(42): "unknown"} {
		if got := v.String(); got != want {
			t.Errorf("expected %s, got %s", want, got)
		}
	}
}
