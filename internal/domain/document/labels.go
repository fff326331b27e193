package document

import (
	"strings"
	"unicode"
)

// FormatLabel turns a camelCase or PascalCase field key into a title-cased label,
// e.g. supplierName -> "Supplier Name", PONumber -> "PO Number".
// Both renderers use it so labels are identical across backends.
func FormatLabel(key string) string {
	runes := []rune(strings.TrimSpace(key))
	var words []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			words = append(words, string(current))
			current = current[:0]
		}
	}

	for i, r := range runes {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			flush()
			continue
		}
		if i > 0 && len(current) > 0 {
			prev := runes[i-1]
			switch {
			case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1]):
				flush()
			case unicode.IsDigit(r) && unicode.IsLetter(prev):
				flush()
			}
		}
		current = append(current, r)
	}
	flush()

	for i, w := range words {
		wr := []rune(w)
		wr[0] = unicode.ToUpper(wr[0])
		words[i] = string(wr)
	}
	return strings.Join(words, " ")
}
