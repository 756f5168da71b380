package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

var sensitiveKeys = []string{
	"password", "secret", "token", "api_key", "apikey", "authorization", "private_key",
}

var emailPattern = regexp.MustCompile(`([a-zA-Z0-9._%+-]+)@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)

// redactAttr is the slog ReplaceAttr hook. Values under sensitive keys keep
// a four character prefix; e-mail addresses anywhere in string values keep
// their first character and domain.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactSecret(a.Value.String()))
	}
	s := a.Value.String()
	if strings.Contains(s, "@") {
		return slog.String(a.Key, RedactEmails(s))
	}
	return a
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// RedactSecret keeps the first four characters of a secret.
func RedactSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "***"
	}
	return s[:4] + "***"
}

// RedactEmail redacts an e-mail address, keeping the first character and
// the domain.
func RedactEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	if user == "" {
		return "***@" + domain
	}
	return user[:1] + "***@" + domain
}

// RedactEmails redacts every e-mail address in s.
func RedactEmails(s string) string {
	return emailPattern.ReplaceAllStringFunc(s, RedactEmail)
}
