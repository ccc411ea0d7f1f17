package screening

// DefaultRules returns the builtin red-flag set. The expressions mirror
// common procurement audit indicators and reference only feature names
// produced by the extractor.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:         "single-bid",
			Name:       "Single bidder",
			Expression: "extreme_low_bids == 1.0",
			Detail:     "Contract awarded with at most one bid",
			Enabled:    true,
		},
		{
			ID:         "extreme-value",
			Name:       "Extreme contract value",
			Expression: "extreme_high_value == 1.0",
			Detail:     "Award amount above the extreme-value threshold",
			Enabled:    true,
		},
		{
			ID:         "high-value-short-window",
			Name:       "High value, short duration",
			Expression: "high_value_short_duration == 1.0",
			Detail:     "Extreme award amount with an unusually short delivery window",
			Enabled:    true,
		},
		{
			ID:         "weekend-award",
			Name:       "Weekend award",
			Expression: "weekend_award == 1.0",
			Detail:     "Contract awarded on a Saturday or Sunday",
			Enabled:    true,
		},
		{
			ID:         "year-end-rush",
			Name:       "Year-end spending rush",
			Expression: "end_of_year == 1.0 && value_percentile >= 0.5",
			Detail:     "High-value award during the December spending rush",
			Enabled:    true,
		},
		{
			ID:         "repeat-supplier-high-value",
			Name:       "Frequent supplier, high value",
			Expression: "supplier_frequency_rank >= 0.5 && value_percentile >= 0.75",
			Detail:     "Frequent supplier winning another high-value award",
			Enabled:    true,
		},
		{
			ID:         "anomaly-blend",
			Name:       "Multiple anomaly factors",
			Expression: "manual_anomaly_score >= 0.5",
			Detail:     "Several anomaly indicators present at once",
			Enabled:    true,
		},
	}
}
