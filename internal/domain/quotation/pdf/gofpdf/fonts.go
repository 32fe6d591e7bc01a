package gofpdf

import (
	"fmt"
	"os"
	"sync"
	"unicode"

	"golang.org/x/image/font/sfnt"

	"smatact/go_backend/internal/domain/quotation"
)

// RequiredLatin is the rune set every registered face must cover for
// Latin-locale documents: digits, basic punctuation and the ASCII letters.
var RequiredLatin = buildRequired("0123456789.,-:%()/ ", 'A', 'Z', 'a', 'z')

// RequiredKorean extends the Latin set with the Hangul used by the document
// sections and the won sign.
var RequiredKorean = append(buildRequired("견적서합계부가세공급액원₩", 0, 0, 0, 0), RequiredLatin...)

func buildRequired(extra string, loA, hiA, loB, hiB rune) []rune {
	var rs []rune
	for _, r := range extra {
		if !unicode.IsSpace(r) || r == ' ' {
			rs = append(rs, r)
		}
	}
	for r := loA; r != 0 && r <= hiA; r++ {
		rs = append(rs, r)
	}
	for r := loB; r != 0 && r <= hiB; r++ {
		rs = append(rs, r)
	}
	return rs
}

// FontRegistry loads and verifies the rendering typeface once per process.
// Registration is guarded so concurrent first use from multiple renderers
// blocks behind a single load; a failure is sticky for the registry's
// lifetime. With no font paths configured the registry runs in core-font
// mode, which only covers Latin-1 content.
type FontRegistry struct {
	regularPath string
	boldPath    string
	required    []rune

	once          sync.Once
	err           error
	regular, bold []byte
}

func NewFontRegistry(regularPath, boldPath string, required []rune) *FontRegistry {
	return &FontRegistry{regularPath: regularPath, boldPath: boldPath, required: required}
}

// Register performs the one-time load and glyph coverage check. A missing
// glyph surfaces here, before any layout work begins.
func (fr *FontRegistry) Register() error {
	fr.once.Do(func() {
		if fr.regularPath == "" {
			for _, r := range fr.required {
				if r > 0xFF {
					fr.err = &quotation.FontRegistrationError{
						Font: "core",
						Err:  fmt.Errorf("core fonts cannot render %q; configure a TTF", r),
					}
					return
				}
			}
			return
		}
		fr.regular, fr.err = loadFace(fr.regularPath, fr.required)
		if fr.err != nil {
			return
		}
		bold := fr.boldPath
		if bold == "" {
			bold = fr.regularPath
		}
		fr.bold, fr.err = loadFace(bold, fr.required)
	})
	return fr.err
}

// UTF8Fonts returns the registered face bytes. ok is false in core-font mode.
func (fr *FontRegistry) UTF8Fonts() (regular, bold []byte, ok bool) {
	return fr.regular, fr.bold, fr.regular != nil
}

func loadFace(path string, required []rune) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &quotation.FontRegistrationError{Font: path, Err: err}
	}
	face, err := sfnt.Parse(data)
	if err != nil {
		return nil, &quotation.FontRegistrationError{Font: path, Err: err}
	}
	var buf sfnt.Buffer
	for _, r := range required {
		idx, err := face.GlyphIndex(&buf, r)
		if err != nil {
			return nil, &quotation.FontRegistrationError{Font: path, Err: err}
		}
		if idx == 0 {
			return nil, &quotation.FontRegistrationError{
				Font: path,
				Err:  fmt.Errorf("no glyph for %q", r),
			}
		}
	}
	return data, nil
}
