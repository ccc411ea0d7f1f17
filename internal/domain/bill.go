package domain

import (
	"regexp"
	"strings"
	"time"
)

// Bill is a utility bill owned by a citizen. Read-mostly; status changes
// happen outside this service.
type Bill struct {
	ID          string    `json:"id"`
	Account     string    `json:"account_number"`
	CNIC        string    `json:"cnic"`
	Type        string    `json:"bill_type"`
	Amount      float64   `json:"amount"`
	Consumption float64   `json:"consumption"`
	DueDate     time.Time `json:"due_date"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Utility bill types.
const (
	BillElectricity = "electricity"
	BillGas         = "gas"
	BillWater       = "water"
)

// Bill status values.
const (
	BillPending = "pending"
	BillPaid    = "paid"
	BillOverdue = "overdue"
)

// accountPattern matches utility account numbers such as PWR-100001.
var accountPattern = regexp.MustCompile(`\b[A-Z]{2,4}-\d{4,}\b`)

// ExtractAccount finds the first account-shaped token in free text.
func ExtractAccount(text string) (string, bool) {
	match := accountPattern.FindString(strings.ToUpper(text))
	if match == "" {
		return "", false
	}
	return match, true
}
