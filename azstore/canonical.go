package azstore

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// canonicalizeHeaders implements "canonicalized
// headers": every x-ms-* header, lowercased name, trimmed value,
// sorted ascending, joined as "name:value" with "\n", the whole block
// prefixed by a leading "\n". Empty when there are no x-ms-* headers.
func canonicalizeHeaders(headers map[string]string) string {
	var names []string
	for name := range headers {
		lower := strings.ToLower(name)
		if strings.HasPrefix(lower, "x-ms-") {
			names = append(names, lower)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Strings(names)
	entries := make([]string, 0, len(names))
	for _, name := range names {
		value := headerLookup(headers, name)
		entries = append(entries, name+":"+strings.TrimSpace(value))
	}
	return "\n" + strings.Join(entries, "\n")
}

// headerLookup finds a header's value by case-insensitive name, since
// the caller-supplied map may preserve original casing.
func headerLookup(headers map[string]string, lowerName string) string {
	for name, value := range headers {
		if strings.EqualFold(name, lowerName) {
			return value
		}
	}
	return ""
}

// canonicalizedResourceFull builds the "/account/path" + signed-query
// lines form used by Blob/Queue/File shared-key signing. supported
// must already be sorted lexicographically.
func canonicalizedResourceFull(accountID, path string, query url.Values, supported []string) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(accountID)
	b.WriteString(path)
	for _, param := range supported {
		values := query[param]
		if len(values) == 0 {
			// query keys may arrive with different case than the
			// supported list; fall back to a case-insensitive lookup.
			for k, v := range query {
				if strings.EqualFold(k, param) {
					values = v
					break
				}
			}
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]
		if len(values) > 1 {
			value = strings.Join(values, ",")
		}
		b.WriteByte('\n')
		b.WriteString(param)
		b.WriteByte(':')
		b.WriteString(value)
	}
	return b.String()
}

// canonicalizedResourceLite builds the Table "lite" canonicalized
// resource: only "comp" participates.
func canonicalizedResourceLite(accountID, path string, query url.Values) string {
	var b strings.Builder
	b.WriteByte('/')
	b.WriteString(accountID)
	b.WriteString(path)
	if comp := query.Get("comp"); comp != "" {
		b.WriteString("?comp=")
		b.WriteString(comp)
	}
	return b.String()
}

// signable holds everything the canonicalizers need, already
// normalized: lower-cased header names are not required by the caller
// (canonicalizeHeaders does its own case folding), but Headers must
// contain exactly the headers that will be sent on the wire.
type signable struct {
	Method  string
	Path    string // path only, no query string
	Query   url.Values
	Headers map[string]string // as they will be sent; values not yet trimmed
}

func contentLengthLine(headers map[string]string) string {
	v := headerLookup(headers, "content-length")
	if v == "" || v == "0" {
		// A Content-Length of 0 is emitted as an empty string.
		return ""
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && n == 0 {
		return ""
	}
	return v
}

// canonicalStringFull builds the Blob/Queue/File shared-key string to
// sign.
func canonicalStringFull(s signable, accountID string, supported []string) string {
	fixed := []string{
		s.Method,
		headerLookup(s.Headers, "content-encoding"),
		headerLookup(s.Headers, "content-language"),
		contentLengthLine(s.Headers),
		headerLookup(s.Headers, "content-md5"),
		headerLookup(s.Headers, "content-type"),
		"", // Date is always empty; x-ms-date carries the date instead.
		headerLookup(s.Headers, "if-modified-since"),
		headerLookup(s.Headers, "if-match"),
		headerLookup(s.Headers, "if-none-match"),
		headerLookup(s.Headers, "if-unmodified-since"),
		headerLookup(s.Headers, "range"),
	}
	canonical := strings.Join(fixed, "\n")
	canonical += canonicalizeHeaders(s.Headers)
	canonical += "\n" + canonicalizedResourceFull(accountID, s.Path, s.Query, supported)
	return canonical
}

// canonicalStringLite builds the Table shared-key-lite string to sign:
// Method, Content-MD5, Content-Type, x-ms-date, and the lite
// canonicalized resource — no arbitrary x-ms-* header canonicalization.
func canonicalStringLite(s signable, accountID string) string {
	fixed := []string{
		s.Method,
		headerLookup(s.Headers, "content-md5"),
		headerLookup(s.Headers, "content-type"),
		headerLookup(s.Headers, "x-ms-date"),
	}
	return strings.Join(fixed, "\n") + "\n" + canonicalizedResourceLite(accountID, s.Path, s.Query)
}
