package domain

import (
	"regexp"
	"strings"
	"time"
)

// Citizen is an immutable registry record, created at seeding and
// read-only thereafter.
type Citizen struct {
	ID        string    `json:"id"`
	CNIC      string    `json:"cnic"`
	Name      string    `json:"name"`
	Language  string    `json:"language"`
	Status    string    `json:"status"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Citizen status values.
const (
	CitizenActive   = "active"
	CitizenInactive = "inactive"
)

// cnicPattern is the canonical CNIC format: 5 digits, 7 digits, 1 check
// digit, dash-separated.
var cnicPattern = regexp.MustCompile(`^\d{5}-\d{7}-\d$`)

// cnicLoose matches CNIC-shaped tokens inside free text, with dashes or
// spaces as optional group separators.
var cnicLoose = regexp.MustCompile(`\d{5}[-\s]?\d{7}[-\s]?\d`)

// NormalizeCNIC strips spaces and reformats a 13-digit identity number
// into the dashed canonical form. Input that is not 13 digits after
// stripping is returned unchanged; ValidCNIC rejects it.
func NormalizeCNIC(raw string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) != 13 {
		return strings.TrimSpace(raw)
	}
	return digits[:5] + "-" + digits[5:12] + "-" + digits[12:]
}

// ValidCNIC reports whether raw normalizes to the canonical 5-7-1 form.
// Lookups must not hit storage when this returns false.
func ValidCNIC(raw string) bool {
	return cnicPattern.MatchString(NormalizeCNIC(raw))
}

// ExtractCNIC finds the first CNIC-shaped token in free text and returns
// it normalized. The second return is false when no token is present.
func ExtractCNIC(text string) (string, bool) {
	match := cnicLoose.FindString(text)
	if match == "" {
		return "", false
	}
	return NormalizeCNIC(match), true
}
