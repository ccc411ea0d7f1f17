package assistant

import (
	"strings"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// intentRule pairs an intent tag with its trigger keywords. Single words
// match whole tokens; entries containing a space match as substrings, as
// does Urdu script.
type intentRule struct {
	intent   string
	keywords []string
}

// intentRules is evaluated top to bottom and the first rule with a hit
// wins. Emergency sits first so it outranks every other match in the
// same text.
var intentRules = []intentRule{
	{
		intent: domain.IntentEmergency,
		keywords: []string{
			"emergency", "urgent", "help", "fire", "police", "ambulance",
			"accident", "rescue",
			"ایمرجنسی", "فوری", "مدد", "آگ", "پولیس", "ایمبولینس", "حادثہ",
		},
	},
	{
		intent: domain.IntentCNICVerify,
		keywords: []string{
			"verify", "verification", "identity",
			"تصدیق", "شناخت",
		},
	},
	{
		intent: domain.IntentBillInquiry,
		keywords: []string{
			"bill", "bills", "payment", "due", "outstanding", "owe",
			"electricity", "gas", "water", "utility",
			"بل", "ادائیگی", "بقایا", "بجلی", "گیس", "پانی",
		},
	},
	{
		intent: domain.IntentComplaint,
		keywords: []string{
			"complaint", "complain", "problem", "issue", "broken", "report",
			"not working", "corruption", "fraud",
			"شکایت", "مسئلہ", "خرابی", "رپورٹ", "بدعنوانی", "دھوکہ",
		},
	},
	{
		intent: domain.IntentFAQ,
		keywords: []string{
			"office", "hours", "timing", "location", "address", "contact",
			"information", "services", "document", "certificate",
			"how", "what", "when", "where",
			"معلومات", "دفتر", "اوقات", "پتہ", "دستاویز", "سرٹیفکیٹ",
			"کیسے", "کیا", "کہاں", "کب",
		},
	},
	{
		intent: domain.IntentGreeting,
		keywords: []string{
			"hello", "hi", "hey", "salam", "salaam", "assalam",
			"good morning", "good afternoon", "good evening",
			"السلام", "آداب", "ہیلو",
		},
	},
}

// entityHits is the hit count credited to an intent selected by an
// extracted entity rather than keywords; a well-formed identifier is an
// unambiguous signal.
const entityHits = 3

// classify returns the first matching intent and its keyword hit count.
// When no keyword rule matches, a CNIC-shaped or account-shaped token
// alone selects the corresponding lookup intent. Otherwise the intent is
// fallback with zero hits.
func classify(message string) (string, int) {
	lower := strings.ToLower(message)
	tokens := make(map[string]bool)
	for _, t := range tokenize(message) {
		tokens[t] = true
	}

	for _, rule := range intentRules {
		hits := 0
		for _, kw := range rule.keywords {
			if keywordMatch(lower, tokens, kw) {
				hits++
			}
		}
		if hits > 0 {
			return rule.intent, hits
		}
	}

	if _, ok := domain.ExtractCNIC(message); ok {
		return domain.IntentCNICVerify, entityHits
	}
	if _, ok := domain.ExtractAccount(message); ok {
		return domain.IntentBillInquiry, entityHits
	}
	return domain.IntentFallback, 0
}

// keywordMatch applies the matching mode for one keyword: phrases and
// Urdu script match as substrings, single Latin words match whole tokens.
func keywordMatch(lower string, tokens map[string]bool, kw string) bool {
	if strings.ContainsRune(kw, ' ') || !isASCII(kw) {
		return strings.Contains(lower, kw)
	}
	return tokens[kw]
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}

// confidence converts a keyword hit count into the reply confidence,
// capped at 1. Fallback replies carry zero.
func confidence(hits int) float64 {
	c := float64(hits) / 3.0
	if c > 1 {
		return 1
	}
	return c
}
