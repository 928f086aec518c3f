package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer maps filesystem-unsafe characters to safe ones.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"'", "",
	"<", "",
	">", "",
	"|", "",
)

// maxFileNameRunes bounds sanitized names well under common filesystem limits.
const maxFileNameRunes = 120

// SanitizeFileName turns a display name into a file name that is safe on
// disk and inside a quoted Content-Disposition header. Control characters are
// dropped and whitespace runs collapse to one space. Returns fallback when
// nothing usable remains.
func SanitizeFileName(name, fallback string) string {
	name = fileNameReplacer.Replace(name)
	var b strings.Builder
	space := false
	runes := 0
	for _, r := range name {
		if runes >= maxFileNameRunes {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = b.Len() > 0
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			b.WriteByte(' ')
			runes++
			space = false
		}
		b.WriteRune(r)
		runes++
	}
	out := strings.Trim(b.String(), " .-")
	if out == "" {
		return fallback
	}
	return out
}
