package drawing

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
)

// substitute replaces text the embedded font cannot show.
const substitute = '?'

var (
	glyphsOnce sync.Once
	glyphs     *sfnt.Font
)

// registerFonts embeds the Go fonts as UTF-8 TrueType so any text in the
// Basic Multilingual Plane is measured and drawn with real widths.
func registerFonts(pdf *fpdf.Fpdf) {
	pdf.AddUTF8FontFromBytes(fontFamily, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", gobold.TTF)
}

func regularGlyphs() *sfnt.Font {
	glyphsOnce.Do(func() {
		f, err := sfnt.Parse(goregular.TTF)
		if err == nil {
			glyphs = f
		}
	})
	return glyphs
}

// printable maps s onto what the canvas can draw. Invalid UTF-8, runes
// outside the BMP and runes the font has no glyph for become '?'. fpdf
// indexes its width table by rune and hand-decodes UTF-8, so unfiltered
// input can crash it.
func printable(s string) string {
	clean := true
	for _, r := range s {
		if r == utf8.RuneError || r > 0x7e {
			clean = false
			break
		}
	}
	if clean {
		return s
	}

	f := regularGlyphs()
	var buf sfnt.Buffer
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToValidUTF8(s, string(substitute)) {
		switch {
		case r <= 0x7e:
			b.WriteRune(r)
		case r == utf8.RuneError || r > 0xffff:
			b.WriteRune(substitute)
		case f == nil:
			b.WriteRune(r)
		default:
			if idx, err := f.GlyphIndex(&buf, r); err != nil || idx == 0 {
				b.WriteRune(substitute)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
