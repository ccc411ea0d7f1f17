package domain

import (
	"time"
)

// Contract is a stored procurement contract. Immutable once scored.
type Contract struct {
	ID             string    `json:"id"`
	ContractNumber string    `json:"contract_number"`
	Description    string    `json:"description"`
	Amount         float64   `json:"amount"`
	Supplier       string    `json:"supplier"`
	Country        string    `json:"country"`
	AwardDate      time.Time `json:"award_date"`
	DurationMonths int       `json:"duration_months"`
	BidCount       int       `json:"bid_count"`
	RiskScore      float64   `json:"risk_score"`
	RiskLevel      string    `json:"risk_level"`
	CreatedAt      time.Time `json:"created_at"`
}

// ContractSubmission is the payload scored by POST /fraud-detect.
// DurationMonths and BidCount are optional; the feature extractor applies
// procurement-typical defaults when they are zero. AwardDate, when present,
// is an ISO date (2006-01-02).
type ContractSubmission struct {
	ContractNumber string  `json:"contract_number"`
	Description    string  `json:"description"`
	Amount         float64 `json:"amount"`
	Supplier       string  `json:"supplier"`
	Country        string  `json:"country"`
	AwardDate      string  `json:"award_date,omitempty"`
	DurationMonths int     `json:"duration_months,omitempty"`
	BidCount       int     `json:"bid_count,omitempty"`
}
