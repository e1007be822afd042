// Package ident implements the identifier service: subject slugification,
// changeset-id derivation, and repository remote-URL normalization.
package ident

import (
	"regexp"
	"strings"
)

var nonAlphanumericRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s, replaces every run of non-alphanumeric characters
// with a single hyphen, and trims leading/trailing hyphens.
func Slugify(s string) string {
	lower := strings.ToLower(strings.TrimSpace(s))
	slug := nonAlphanumericRun.ReplaceAllString(lower, "-")
	return strings.Trim(slug, "-")
}
