package domain

import (
	"time"
)

// Risk levels, ordered from least to most severe.
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

// RiskLevels lists the labels in severity order.
var RiskLevels = []string{RiskLow, RiskMedium, RiskHigh, RiskCritical}

// RiskBand maps a half-open score interval [Min, Max) to a label.
// The top band includes its upper boundary.
type RiskBand struct {
	Level string  `json:"level"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// ScreeningFlag is a red-flag rule that matched during assessment.
// Flags annotate the result; they never change the score or label.
type ScreeningFlag struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Detail string `json:"detail,omitempty"`
}

// Assessment is the transient result of scoring one contract submission.
// Never persisted; identical input always yields an identical Score and
// Level.
type Assessment struct {
	ID             string             `json:"assessment_id"`
	ContractNumber string             `json:"contract_number"`
	Score          float64            `json:"risk_score"`
	Level          string             `json:"risk_level"`
	Recommendation string             `json:"recommendation"`
	Flags          []ScreeningFlag    `json:"flags,omitempty"`
	Features       map[string]float64 `json:"features,omitempty"`
	EvaluatedAt    time.Time          `json:"evaluated_at"`
	DurationMicros int64              `json:"duration_micros"`
}

// SeverityRank returns the position of a risk level in RiskLevels, or -1
// for an unknown label. Higher rank means more severe.
func SeverityRank(level string) int {
	for i, l := range RiskLevels {
		if l == level {
			return i
		}
	}
	return -1
}
