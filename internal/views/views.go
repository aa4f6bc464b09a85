// Package views selects which screen to show from the session and the URL being served.
package views

import (
	"net/url"
	"strings"

	"github.com/desertthunder/subfeed/internal/models"
)

// CallbackPath is where the OAuth provider sends the browser back to.
const CallbackPath = "/auth/google"

// View identifies a top-level screen.
type View int

const (
	ViewLogin View = iota
	ViewLoading
	ViewDashboard
	ViewCallback
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewLoading:
		return "loading"
	case ViewDashboard:
		return "dashboard"
	case ViewCallback:
		return "callback"
	default:
		return "unknown"
	}
}

// Select picks the view for session at u. u may be nil when nothing is being served.
//
// An OAuth return takes precedence over session state, so a redirect back from the
// provider is never routed to the login screen while a stale session settles.
func Select(session models.Session, u *url.URL) View {
	switch {
	case IsCallback(u):
		return ViewCallback
	case session.Verifying:
		return ViewLoading
	case session.Authenticated():
		return ViewDashboard
	default:
		return ViewLogin
	}
}

// IsCallback reports whether u is an OAuth return: the callback path, or any URL
// carrying an authorization code.
func IsCallback(u *url.URL) bool {
	if u == nil {
		return false
	}
	if strings.TrimRight(u.Path, "/") == CallbackPath {
		return true
	}
	return strings.Contains(u.RawQuery, "code=")
}

// CallbackTarget is the backend completion URL the callback view hands off to:
// {apiBase}/auth/google with the query of u carried over unchanged.
func CallbackTarget(apiBase string, u *url.URL) string {
	target := strings.TrimRight(apiBase, "/") + CallbackPath
	if u != nil && u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
