package google

import "strings"

// CalendarScope grants read and write access to the user's calendars.
const CalendarScope = "https://www.googleapis.com/auth/calendar"

// DefaultOAuthScopes are requested on login.
//
// The scopes provide access to:
//   - OpenID Connect: the account e-mail shown on the status endpoint
//   - Google Calendar: full access
var DefaultOAuthScopes = []string{
	"openid",
	"https://www.googleapis.com/auth/userinfo.email",
	CalendarScope,
}

// HasScope reports whether the space-separated scope list granted contains want.
func HasScope(granted, want string) bool {
	for _, s := range strings.Fields(granted) {
		if s == want {
			return true
		}
	}
	return false
}
