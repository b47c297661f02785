// Package pgdsn reads and rewrites postgres connection strings in both URL
// (postgres://...) and keyword (host=... dbname=...) form.
package pgdsn

import (
	"net/url"
	"strings"
)

const preparedBinaryParam = "disable_prepared_binary_result"

type DSN struct {
	raw    string
	parsed *url.URL
}

func Parse(raw string) DSN {
	raw = strings.TrimSpace(raw)
	d := DSN{raw: raw}
	if parsed, err := url.Parse(raw); err == nil && parsed.Scheme != "" {
		d.parsed = parsed
	}
	return d
}

func (d DSN) String() string {
	if d.parsed == nil {
		return d.raw
	}
	return d.parsed.String()
}

func (d DSN) Empty() bool {
	return d.raw == ""
}

// DatabaseName returns the target database, or "" when the DSN does not name one.
func (d DSN) DatabaseName() string {
	if d.parsed != nil {
		if name := strings.TrimSpace(strings.TrimPrefix(d.parsed.Path, "/")); name != "" {
			return name
		}
	}
	return d.keyword("dbname")
}

// WithoutPreparedBinary asks lib/pq to skip binary results for prepared statements,
// which poolers in transaction mode need. An explicit value in the DSN wins.
func (d DSN) WithoutPreparedBinary() DSN {
	if d.parsed != nil {
		query := d.parsed.Query()
		if query.Get(preparedBinaryParam) != "" {
			return d
		}
		clone := *d.parsed
		query.Set(preparedBinaryParam, "yes")
		clone.RawQuery = query.Encode()
		return DSN{raw: clone.String(), parsed: &clone}
	}
	if d.raw == "" || d.keyword(preparedBinaryParam) != "" {
		return d
	}
	return DSN{raw: d.raw + " " + preparedBinaryParam + "=yes"}
}

// Redacted hides the password so the DSN can be logged.
func (d DSN) Redacted() string {
	if d.parsed != nil {
		return d.parsed.Redacted()
	}
	fields := strings.Fields(d.raw)
	for i, field := range fields {
		if strings.HasPrefix(field, "password=") {
			fields[i] = "password=xxxxx"
		}
	}
	return strings.Join(fields, " ")
}

func (d DSN) keyword(key string) string {
	prefix := key + "="
	for _, token := range strings.Fields(d.raw) {
		if value, ok := strings.CutPrefix(token, prefix); ok {
			return strings.Trim(strings.TrimSpace(value), `"'`)
		}
	}
	return ""
}
