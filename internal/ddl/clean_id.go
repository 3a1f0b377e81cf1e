package ddl

import (
	"regexp"
	"strings"
)

var (
	nonIdentRun  = regexp.MustCompile(`[^a-z0-9_]+`)
	leadingDigit = regexp.MustCompile(`^[0-9]+`)
)

// CleanID sanitizes an arbitrary string into a valid, unquoted Postgres
// identifier: lowercased, with any run of characters outside [a-z0-9_]
// collapsed to a single underscore, and any leading digits stripped so the
// result always matches [a-z_][a-z0-9_]*. CleanID is idempotent:
// CleanID(CleanID(x)) == CleanID(x).
func CleanID(raw string) string {
	s := strings.ToLower(raw)
	s = nonIdentRun.ReplaceAllString(s, "_")
	s = leadingDigit.ReplaceAllString(s, "")
	if s == "" {
		return "_"
	}
	return s
}
