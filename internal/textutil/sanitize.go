package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// pathUnsafe maps characters that cannot appear in a path segment on any of
// the filesystems units are stored on.
var pathUnsafe = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName turns a unit title into a single path segment. Unsafe
// characters are replaced or dropped and runs of whitespace become one
// underscore, so "Band 1: Teil/2" yields "Band_1-_Teil-2".
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(pathUnsafe.Replace(name))
	if name == "" {
		return ""
	}
	return strings.Join(strings.Fields(name), "_")
}

// SanitizeToken converts value to a lowercase token made of letters, digits,
// '-' and '_'. Lowercasing is context aware, so a word final sigma stays
// final. Anything else becomes '_'. Empty results yield "unknown".
func SanitizeToken(value string) string {
	var b strings.Builder
	for _, r := range cases.Lower(language.Und).String(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if out := strings.Trim(b.String(), "_-"); out != "" {
		return out
	}
	return "unknown"
}
