package logger

import "strings"

// SanitizedEmail masks an email address for logging (e.g., "a******@e******.com").
// The first character of the local part and the TLD stay visible so an
// operator can still correlate entries.
func SanitizedEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "[invalid-email]"
	}

	username := parts[0]
	domain := parts[1]

	if len(username) > 1 {
		username = string(username[0]) + strings.Repeat("*", len(username)-1)
	}

	domainParts := strings.Split(domain, ".")
	if len(domainParts) > 1 {
		for i := 0; i < len(domainParts)-1; i++ {
			domainParts[i] = strings.Repeat("*", len(domainParts[i]))
		}
		domain = strings.Join(domainParts, ".")
	}

	return username + "@" + domain
}

// sensitive query parameter names; any hit redacts the whole query string
var sensitiveParams = []string{
	"password",
	"token",
	"secret",
	"code",
	"email",
	"auth",
}

// SanitizeQueryString reports whether the raw query string contains a
// sensitive parameter and must be redacted wholesale.
func SanitizeQueryString(rawQuery string) bool {
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
