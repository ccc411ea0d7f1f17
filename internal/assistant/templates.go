package assistant

import "github.com/opengov-pk/shafaf/internal/domain"

// Template identifiers. Entity-bearing templates are fmt strings filled
// by the responder.
const (
	tmplGreeting     = "greeting"
	tmplFallback     = "fallback"
	tmplEmergency    = "emergency"
	tmplComplaint    = "complaint"
	tmplFAQ          = "faq"
	tmplCNICPrompt   = "cnic_prompt"
	tmplCNICInvalid  = "cnic_invalid"
	tmplCNICNotFound = "cnic_not_found"
	tmplCNICVerified = "cnic_verified"
	tmplBillPrompt   = "bill_prompt"
	tmplBillNotFound = "bill_not_found"
	tmplBillLine     = "bill_line"
	tmplBillsNone    = "bills_none"
	tmplBillsFound   = "bills_found"
	tmplStoreUnready = "store_unready"
)

// templates holds the per-language response table. Keys follow the
// tmpl* constants; every entry carries both languages.
var templates = map[string]map[string]string{
	tmplGreeting: {
		domain.LanguageEnglish: "Hello! I am the Shafaf citizen services assistant. I can check utility bills, verify CNIC records, and register complaints. How can I help?",
		domain.LanguageUrdu:    "السلام علیکم! میں شفاف سٹیزن سروسز کا معاون ہوں۔ میں بجلی، گیس اور پانی کے بل چیک کر سکتا ہوں، شناختی کارڈ کی تصدیق اور شکایات درج کر سکتا ہوں۔ میں آپ کی کیا مدد کروں؟",
	},
	tmplFallback: {
		domain.LanguageEnglish: "I did not quite understand that. I can help with bill inquiries, CNIC verification, complaints, and general information about government services. Could you rephrase?",
		domain.LanguageUrdu:    "معذرت، میں آپ کی بات سمجھ نہیں پایا۔ میں بل کی انکوائری، شناختی کارڈ کی تصدیق، شکایات اور سرکاری خدمات کی عمومی معلومات میں مدد کر سکتا ہوں۔ براہ کرم دوبارہ کوشش کریں۔",
	},
	tmplEmergency: {
		domain.LanguageEnglish: "EMERGENCY SERVICES: Police 15, Ambulance 1122, Fire Brigade 16, Citizen Helpline 1334. If you are in immediate danger, call the numbers above right away.",
		domain.LanguageUrdu:    "ایمرجنسی خدمات: پولیس 15، ایمبولینس 1122، فائر بریگیڈ 16، سٹیزن ہیلپ لائن 1334۔ اگر آپ فوری خطرے میں ہیں تو ابھی ان نمبروں پر کال کریں۔",
	},
	tmplComplaint: {
		domain.LanguageEnglish: "Your complaint has been noted. Please share the location and any supporting details so the right department can investigate.",
		domain.LanguageUrdu:    "آپ کی شکایت نوٹ کر لی گئی ہے۔ براہ کرم مقام اور تفصیلات بتائیں تاکہ متعلقہ شعبہ تحقیقات کر سکے۔",
	},
	tmplFAQ: {
		domain.LanguageEnglish: "Government offices are open Monday to Friday, 9 AM to 5 PM. For bill inquiries share your CNIC number; for documents visit the nearest facilitation center.",
		domain.LanguageUrdu:    "سرکاری دفاتر پیر سے جمعہ، صبح 9 بجے سے شام 5 بجے تک کھلے ہیں۔ بل کی معلومات کے لیے اپنا شناختی کارڈ نمبر دیں؛ دستاویزات کے لیے قریبی سہولت مرکز جائیں۔",
	},
	tmplCNICPrompt: {
		domain.LanguageEnglish: "Please share the CNIC number you would like to verify, in the format 12345-1234567-1.",
		domain.LanguageUrdu:    "براہ کرم وہ شناختی کارڈ نمبر بتائیں جس کی تصدیق کرنی ہے، فارمیٹ 12345-1234567-1۔",
	},
	tmplCNICInvalid: {
		domain.LanguageEnglish: "That identity number does not look right. A CNIC has 5 digits, 7 digits, then 1 digit, for example 42101-1234567-1.",
		domain.LanguageUrdu:    "یہ شناختی کارڈ نمبر درست معلوم نہیں ہوتا۔ درست فارمیٹ 5 ہندسے، 7 ہندسے، پھر 1 ہندسہ ہے، مثلاً 42101-1234567-1۔",
	},
	tmplCNICNotFound: {
		domain.LanguageEnglish: "No citizen record was found for CNIC %s.",
		domain.LanguageUrdu:    "شناختی کارڈ %s کا کوئی ریکارڈ نہیں ملا۔",
	},
	tmplCNICVerified: {
		domain.LanguageEnglish: "CNIC %s is registered to %s (status: %s).",
		domain.LanguageUrdu:    "شناختی کارڈ %s، %s کے نام پر رجسٹرڈ ہے (حیثیت: %s)۔",
	},
	tmplBillPrompt: {
		domain.LanguageEnglish: "To check your bills, share your CNIC number (format 12345-1234567-1) or an account number such as PWR-100001.",
		domain.LanguageUrdu:    "اپنے بل چیک کرنے کے لیے اپنا شناختی کارڈ نمبر (فارمیٹ 12345-1234567-1) یا اکاؤنٹ نمبر جیسے PWR-100001 بتائیں۔",
	},
	tmplBillNotFound: {
		domain.LanguageEnglish: "No bill was found for account %s.",
		domain.LanguageUrdu:    "اکاؤنٹ %s کا کوئی بل نہیں ملا۔",
	},
	tmplBillLine: {
		domain.LanguageEnglish: "Account %s (%s): Rs. %.2f, due %s, status %s.",
		domain.LanguageUrdu:    "اکاؤنٹ %s (%s): %.2f روپے، آخری تاریخ %s، حیثیت %s۔",
	},
	tmplBillsNone: {
		domain.LanguageEnglish: "%s has no bills on record.",
		domain.LanguageUrdu:    "%s کے ذمے کوئی بل موجود نہیں۔",
	},
	tmplBillsFound: {
		domain.LanguageEnglish: "%s has %d bill(s) totalling Rs. %.2f:\n%s",
		domain.LanguageUrdu:    "%s کے %d بل ہیں، کل رقم %.2f روپے:\n%s",
	},
	tmplStoreUnready: {
		domain.LanguageEnglish: "I could not reach the records system just now. Please try again in a few minutes.",
		domain.LanguageUrdu:    "ریکارڈ سسٹم سے رابطہ نہیں ہو سکا۔ براہ کرم کچھ دیر بعد دوبارہ کوشش کریں۔",
	},
}

// suggestionTable lists canned follow-ups per intent. Intents without an
// entry fall back to the default trio.
var suggestionTable = map[string]map[string][]string{
	"default": {
		domain.LanguageEnglish: {"Check my bills", "Verify a CNIC", "File a complaint"},
		domain.LanguageUrdu:    {"اپنے بل چیک کریں", "شناختی کارڈ کی تصدیق کریں", "شکایت درج کرائیں"},
	},
	domain.IntentBillInquiry: {
		domain.LanguageEnglish: {"Check by CNIC", "Check by account number", "Office information"},
		domain.LanguageUrdu:    {"شناختی کارڈ سے چیک کریں", "اکاؤنٹ نمبر سے چیک کریں", "دفتری معلومات"},
	},
	domain.IntentCNICVerify: {
		domain.LanguageEnglish: {"Check my bills", "File a complaint", "Office information"},
		domain.LanguageUrdu:    {"اپنے بل چیک کریں", "شکایت درج کرائیں", "دفتری معلومات"},
	},
	domain.IntentEmergency: {
		domain.LanguageEnglish: {"Call 1122 for ambulance", "Call 15 for police", "File a complaint"},
		domain.LanguageUrdu:    {"ایمبولینس کے لیے 1122", "پولیس کے لیے 15", "شکایت درج کرائیں"},
	},
}

// tmpl fetches a template string, defaulting to English when the
// language key is missing.
func tmpl(id, language string) string {
	entry, ok := templates[id]
	if !ok {
		return ""
	}
	if s, ok := entry[language]; ok {
		return s
	}
	return entry[domain.LanguageEnglish]
}

// suggestions returns the canned follow-ups for an intent and language.
func suggestions(intent, language string) []string {
	entry, ok := suggestionTable[intent]
	if !ok {
		entry = suggestionTable["default"]
	}
	if s, ok := entry[language]; ok {
		return s
	}
	return entry[domain.LanguageEnglish]
}
