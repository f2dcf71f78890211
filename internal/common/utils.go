// Package common holds small helpers shared by the CLI command packages.
package common

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// fieldNameMap translates verbose report field names to the terse keys used
// by the v2 output format.
var fieldNameMap = map[string]string{
	"url":        "u",
	"status":     "s",
	"error":      "e",
	"strategy":   "st",
	"category":   "c",
	"quality":    "q",
	"word_count": "w",
	"chunks":     "ch",
}

var (
	// markdownLink matches "[text](https://example.com)" and captures the URL.
	markdownLink = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

	// urlShape is the coarse filter: scheme, plain domain, optional port and
	// path. net/url parsing follows for anything that passes.
	urlShape = regexp.MustCompile(`^https?://[a-zA-Z0-9][-a-zA-Z0-9.]*[a-zA-Z0-9](:\d+)?(/[^\s]*)?$`)
)

// SanitizeURL cleans up the copy-paste artifacts that show up around pasted
// URLs: surrounding whitespace, markdown link syntax, stray brackets and
// trailing punctuation.
func SanitizeURL(raw string) string {
	cleaned := strings.TrimSpace(raw)

	if m := markdownLink.FindStringSubmatch(cleaned); len(m) > 1 {
		cleaned = m[1]
	}

	cleaned = strings.TrimRight(cleaned, `,.)}]"'>;`)
	cleaned = strings.TrimLeft(cleaned, `([<"'`)
	return strings.TrimSpace(cleaned)
}

// SanitizeAndValidateURLs cleans every entry and splits the list into
// browsable URLs and rejects. A reject is reported in its original form so
// the caller can echo exactly what the user typed.
func SanitizeAndValidateURLs(raw []string) (valid []string, invalid []string) {
	valid = make([]string, 0, len(raw))
	for _, entry := range raw {
		cleaned := SanitizeURL(entry)
		if cleaned == "" || !browsable(cleaned) {
			invalid = append(invalid, entry)
			continue
		}
		valid = append(valid, cleaned)
	}
	return valid, invalid
}

// browsable reports whether a cleaned URL is something a browser session
// can be pointed at.
func browsable(cleaned string) bool {
	// Literal spaces must arrive pre-encoded as %20.
	if strings.Contains(cleaned, " ") {
		return false
	}
	if !urlShape.MatchString(cleaned) {
		return false
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, `{}[]<>"'`) {
		return false
	}
	return true
}

// ContentHash returns the sha256 hex digest of data. Screenshot filenames
// use a prefix of it so one URL always maps to the same file.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}

// FilterResultFields projects a report onto the requested comma-separated
// fields. Verbose names are accepted in terse mode and translated. An empty
// field list returns every field.
func FilterResultFields(report interface{}, fieldsStr string, terse bool) map[string]interface{} {
	full := structToMap(report)
	if fieldsStr == "" {
		return full
	}

	include := make(map[string]bool)
	for _, field := range strings.Split(fieldsStr, ",") {
		field = strings.TrimSpace(field)
		if terse {
			if short, ok := fieldNameMap[field]; ok {
				field = short
			}
		}
		include[field] = true
	}

	filtered := make(map[string]interface{}, len(include))
	for key, value := range full {
		if include[key] {
			filtered[key] = value
		}
	}
	return filtered
}

// structToMap round-trips a struct through its JSON form so filtering works
// on the serialized field names.
func structToMap(obj interface{}) map[string]interface{} {
	data, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
