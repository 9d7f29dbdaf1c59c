package logging

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// Redacted replaces the value of a masked attribute or query parameter.
const Redacted = "[REDACTED]"

// Redactor masks credentials before they reach the log output. Gemini-style
// APIs take the key as a "key" query parameter or an x-goog-api-key header,
// and OpenAI-style APIs take a bearer token.
type Redactor struct {
	keys       map[string]bool
	queryKeys  map[string]bool
	bearer     *regexp.Regexp
	apiKeyText *regexp.Regexp
}

// NewRedactor creates a Redactor with the built-in credential names.
func NewRedactor() *Redactor {
	return &Redactor{
		keys: map[string]bool{
			"authorization":       true,
			"proxy-authorization": true,
			"x-goog-api-key":      true,
			"x-api-key":           true,
			"api_key":             true,
			"apikey":              true,
			"password":            true,
			"token":               true,
		},
		queryKeys: map[string]bool{
			"key":          true,
			"api_key":      true,
			"access_token": true,
		},
		bearer:     regexp.MustCompile(`(?i)bearer\s+[a-z0-9\-._~+/]+=*`),
		apiKeyText: regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{8,}|AIza[0-9A-Za-z_-]{20,})`),
	}
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook. Attributes named
// after a credential are masked, query strings in "query" and "url"
// attributes have their key parameters masked, and bearer tokens or API
// keys embedded in other string values are replaced.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Value.Kind() != slog.KindString {
		return a
	}

	key := strings.ToLower(a.Key)
	switch {
	case r.keys[key]:
		return slog.String(a.Key, Redacted)
	case key == "query":
		return slog.String(a.Key, r.RedactQuery(a.Value.String()))
	case key == "url" || key == "target":
		return slog.String(a.Key, r.RedactURL(a.Value.String()))
	}
	return slog.String(a.Key, r.RedactString(a.Value.String()))
}

// RedactString replaces bearer tokens and recognizable API keys in s.
func (r *Redactor) RedactString(s string) string {
	s = r.bearer.ReplaceAllString(s, "Bearer "+Redacted)
	return r.apiKeyText.ReplaceAllString(s, Redacted)
}

// RedactQuery masks credential parameters of a raw query string. A query
// that does not parse is returned with only string redaction applied.
func (r *Redactor) RedactQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return r.RedactString(rawQuery)
	}
	changed := false
	for name := range values {
		if r.queryKeys[strings.ToLower(name)] {
			values[name] = []string{Redacted}
			changed = true
		}
	}
	if !changed {
		return rawQuery
	}
	return values.Encode()
}

// RedactURL masks credential query parameters of a URL.
func (r *Redactor) RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	u.RawQuery = r.RedactQuery(u.RawQuery)
	return u.String()
}
