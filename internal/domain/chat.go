package domain

// Supported reply languages.
const (
	LanguageEnglish = "english"
	LanguageUrdu    = "urdu"
)

// Intent tags, in matching priority order. Emergency always outranks
// every other match in the same text.
const (
	IntentEmergency   = "emergency"
	IntentCNICVerify  = "cnic_verification"
	IntentBillInquiry = "bill_inquiry"
	IntentComplaint   = "complaint"
	IntentFAQ         = "faq"
	IntentGreeting    = "greeting"
	IntentFallback    = "fallback"
)

// ChatRequest is the payload for POST /assistant.
// Language is optional; empty means auto-detect.
type ChatRequest struct {
	Message  string `json:"message"`
	Language string `json:"language,omitempty"`
	UserID   string `json:"user_id,omitempty"`
}

// ChatReply is the assistant's answer. Derived and stateless; nothing
// about the exchange is persisted.
type ChatReply struct {
	Response    string   `json:"response"`
	Intent      string   `json:"intent"`
	Language    string   `json:"language"`
	Confidence  float64  `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}
