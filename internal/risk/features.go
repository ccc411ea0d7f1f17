// Package risk implements the contract fraud risk scorer: feature
// extraction, model inference, and threshold banding.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// FeatureNames lists the model inputs in scoring order. The order matches
// the embedded artifact and must not change without retraining.
var FeatureNames = []string{
	"contract_value",
	"value_log",
	"value_sqrt",
	"duration_months",
	"bid_count",
	"value_per_month",
	"value_zscore",
	"value_percentile",
	"value_duration_ratio",
	"value_bid_ratio",
	"supplier_concentration",
	"extreme_high_value",
	"extreme_short_duration",
	"extreme_low_bids",
	"high_value_short_duration",
	"supplier_frequency_rank",
	"dept_frequency_rank",
	"supplier_risk_score",
	"manual_anomaly_score",
	"weekend_award",
	"end_of_year",
}

// Baseline aggregates used when a supplier has no stored history, or too
// little of it to be informative.
const (
	baselineMeanValue    = 5_000_000.0
	baselineValueSpread  = 2_000_000.0
	baselineFreqRank     = 0.2
	baselineDeptRank     = 0.5
	baselineSupplierRisk = 0.3
)

// Extraction defaults and extreme-value cutoffs, in rupees and months.
const (
	defaultDurationMonths = 12.0
	defaultBidCount       = 3.0
	extremeValueCutoff    = 25_000_000.0
	extremeShortMonths    = 3.0
	extremeFewBids        = 1.0
	percentileCeiling     = 50_000_000.0
	concentrationCeiling  = 10_000_000.0
	awardDateLayout       = "2006-01-02"
)

// HistoryProvider supplies stored supplier aggregates for feature
// enrichment. The scorer only ever reads history.
type HistoryProvider interface {
	SupplierProfile(ctx context.Context, supplier string) (*domain.SupplierStats, error)
}

// Extractor turns a contract submission into the model's feature vector.
type Extractor struct {
	history    HistoryProvider
	minSamples int
}

// NewExtractor creates a feature extractor. history may be nil, in which
// case baseline aggregates are always used. minSamples is the supplier
// contract count below which stored history is ignored; non-positive
// values select the default of 5.
func NewExtractor(history HistoryProvider, minSamples int) *Extractor {
	if minSamples <= 0 {
		minSamples = 5
	}
	return &Extractor{history: history, minSamples: minSamples}
}

// Extract computes the full feature vector for a submission. Identical
// submissions against identical stored history yield identical vectors.
// A non-empty award date that does not parse is a validation error.
func (e *Extractor) Extract(ctx context.Context, sub *domain.ContractSubmission) (map[string]float64, error) {
	amount := sub.Amount

	duration := float64(sub.DurationMonths)
	if duration <= 0 {
		duration = defaultDurationMonths
	}
	bids := float64(sub.BidCount)
	if bids <= 0 {
		bids = defaultBidCount
	}

	weekend, yearEnd, err := awardDateFeatures(sub.AwardDate)
	if err != nil {
		return nil, err
	}

	meanValue, freqRank, supplierRisk := e.supplierAggregates(ctx, sub.Supplier)

	highValue := boolFeature(amount > extremeValueCutoff)
	shortDuration := boolFeature(duration <= extremeShortMonths)
	fewBids := boolFeature(bids <= extremeFewBids)

	return map[string]float64{
		"contract_value":            amount,
		"value_log":                 math.Log1p(amount),
		"value_sqrt":                math.Sqrt(amount),
		"duration_months":           duration,
		"bid_count":                 bids,
		"value_per_month":           amount / duration,
		"value_zscore":              math.Abs(amount-meanValue) / baselineValueSpread,
		"value_percentile":          math.Min(0.99, amount/percentileCeiling),
		"value_duration_ratio":      amount / duration,
		"value_bid_ratio":           amount / bids,
		"supplier_concentration":    math.Min(1.0, amount/concentrationCeiling),
		"extreme_high_value":        highValue,
		"extreme_short_duration":    shortDuration,
		"extreme_low_bids":          fewBids,
		"high_value_short_duration": highValue * shortDuration,
		"supplier_frequency_rank":   freqRank,
		"dept_frequency_rank":       baselineDeptRank,
		"supplier_risk_score":       supplierRisk,
		"manual_anomaly_score":      highValue*0.25 + shortDuration*0.20 + fewBids*0.15 + supplierRisk*0.30,
		"weekend_award":             weekend,
		"end_of_year":               yearEnd,
	}, nil
}

// supplierAggregates returns the historical mean value, frequency rank,
// and mean stored risk for a supplier. Baselines are returned when
// history is absent, thinner than minSamples, or unavailable. A store
// failure degrades to baselines rather than failing the assessment.
func (e *Extractor) supplierAggregates(ctx context.Context, supplier string) (mean, freqRank, risk float64) {
	mean, freqRank, risk = baselineMeanValue, baselineFreqRank, baselineSupplierRisk
	if e.history == nil {
		return mean, freqRank, risk
	}

	stats, err := e.history.SupplierProfile(ctx, supplier)
	if err != nil {
		slog.Warn("supplier history unavailable, using baselines",
			"supplier", supplier,
			"error", err)
		return mean, freqRank, risk
	}
	if stats.ContractCount < e.minSamples {
		return mean, freqRank, risk
	}

	mean = stats.MeanValue
	freqRank = math.Min(0.95, float64(stats.ContractCount)/20.0)
	risk = stats.MeanRisk
	return mean, freqRank, risk
}

func awardDateFeatures(raw string) (weekend, yearEnd float64, err error) {
	if raw == "" {
		return 0, 0, nil
	}
	t, perr := time.Parse(awardDateLayout, raw)
	if perr != nil {
		return 0, 0, fmt.Errorf("%w: award_date %q is not a valid YYYY-MM-DD date", ErrValidation, raw)
	}
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		weekend = 1
	}
	if t.Month() == time.December {
		yearEnd = 1
	}
	return weekend, yearEnd, nil
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
