package assistant

import (
	"strings"
	"unicode"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// urduScriptRatio is the share of Urdu-script letters above which a
// message is treated as Urdu even when mixed with Latin text.
const urduScriptRatio = 0.2

// romanUrduWords are Urdu words commonly typed in Latin script. Words
// that are also English ("bill", "main") are deliberately excluded so
// plain English never trips the detector.
var romanUrduWords = map[string]bool{
	"kya":      true,
	"kaise":    true,
	"kahan":    true,
	"kyun":     true,
	"aap":      true,
	"hum":      true,
	"mera":     true,
	"meri":     true,
	"nahi":     true,
	"karna":    true,
	"madad":    true,
	"shikayat": true,
	"bijli":    true,
	"pani":     true,
}

// DetectLanguage returns the language of a message: Urdu when the
// Urdu-script letter ratio exceeds the threshold, Urdu on a roman-Urdu
// word hit, English otherwise. Empty or letterless input is English.
func DetectLanguage(text string) string {
	var letters, urdu int
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if isUrduRune(r) {
			urdu++
		}
	}
	if letters == 0 {
		return domain.LanguageEnglish
	}
	if float64(urdu)/float64(letters) > urduScriptRatio {
		return domain.LanguageUrdu
	}
	for _, word := range tokenize(text) {
		if romanUrduWords[word] {
			return domain.LanguageUrdu
		}
	}
	return domain.LanguageEnglish
}

// isUrduRune reports whether r falls in the Arabic-script blocks Urdu
// text is written in.
func isUrduRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF: // Arabic
		return true
	case r >= 0x0750 && r <= 0x077F: // Arabic Supplement
		return true
	case r >= 0xFB50 && r <= 0xFDFF: // Presentation Forms-A
		return true
	case r >= 0xFE70 && r <= 0xFEFF: // Presentation Forms-B
		return true
	}
	return false
}

// tokenize splits text into lowercase words on any non-letter,
// non-digit rune.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
