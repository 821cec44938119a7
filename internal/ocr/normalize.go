package ocr

import (
	"regexp"
	"strings"
)

var (
	reCRLF       = regexp.MustCompile(`\r\n?`)
	reTabs       = regexp.MustCompile(`\t+`)
	reMultiSpace = regexp.MustCompile(` {2,}`)
	reMultiBlank = regexp.MustCompile(`\n{3,}`)
	reDigitO     = regexp.MustCompile(`(\d)[Oo](\d)`) // "1O0" read for "100"
	reDigitL     = regexp.MustCompile(`(\d)[lI|](\d)`)
	reRupeeGlyph = regexp.MustCompile(`(?m)(^|\s)[₹]\s+(\d)`)
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-=]{3,}\s*$`)

// Normalize collapses noisy whitespace and fixes common OCR artifacts inside numbers.
// Line breaks are kept; more than two newlines collapse into a single blank line.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = reCRLF.ReplaceAllString(s, "\n")
	s = reTabs.ReplaceAllString(s, " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reMultiBlank.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	s = strings.Join(lines, "\n")
	// twice, since matches cannot overlap ("1O0O0")
	for range 2 {
		s = reDigitO.ReplaceAllString(s, "${1}0${2}")
		s = reDigitL.ReplaceAllString(s, "${1}1${2}")
	}
	s = reRupeeGlyph.ReplaceAllString(s, "${1}₹${2}")
	return strings.TrimSpace(s)
}
