package calendar_tools

import (
	"encoding/json"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// attendeeInput is one attendee as sent by the model: a bare address or an
// object carrying it under email, value or address.
type attendeeInput struct {
	// token is what gets reported back when the input is invalid.
	token string
	email string
}

func (a *attendeeInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.email = strings.TrimSpace(s)
		a.token = a.email
		return nil
	}

	var obj struct {
		Email   string `json:"email"`
		Value   string `json:"value"`
		Address string `json:"address"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		a.token = string(data)
		return nil
	}
	for _, candidate := range []string{obj.Email, obj.Value, obj.Address} {
		if c := strings.TrimSpace(candidate); c != "" {
			a.email = c
			break
		}
	}
	a.token = a.email
	if a.token == "" {
		a.token = string(data)
	}
	return nil
}

type attendeeList []attendeeInput

// split separates valid addresses from invalid tokens, reporting every
// invalid token. Empty entries are skipped and valid addresses are lowercased
// and deduplicated in input order.
func (l attendeeList) split() (valid, invalid []string) {
	seen := make(map[string]bool)
	valid = []string{}
	for _, a := range l {
		if a.token == "" {
			continue
		}
		if !emailPattern.MatchString(a.email) {
			invalid = append(invalid, a.token)
			continue
		}
		email := strings.ToLower(a.email)
		if seen[email] {
			continue
		}
		seen[email] = true
		valid = append(valid, email)
	}
	return valid, invalid
}

// newlyAdded returns the addresses of after that are not in before, compared
// case-insensitively.
func newlyAdded(before, after []string) []string {
	known := make(map[string]bool, len(before))
	for _, b := range before {
		known[strings.ToLower(strings.TrimSpace(b))] = true
	}
	var added []string
	for _, a := range after {
		if !known[strings.ToLower(strings.TrimSpace(a))] {
			added = append(added, a)
		}
	}
	return added
}
