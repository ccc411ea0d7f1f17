package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opengov-pk/shafaf/internal/domain"
)

// ErrValidation reports a rejected contract submission. Handlers map it
// to HTTP 400.
var ErrValidation = errors.New("invalid contract submission")

// Maximum accepted contract amount, in rupees.
const maxContractAmount = 1e12

// Screener evaluates red-flag rules against an extracted feature vector.
// Flags annotate an assessment; they never change its score or level.
type Screener interface {
	Screen(features map[string]float64) []domain.ScreeningFlag
}

// Config points the scorer at its model and thresholds artifacts.
// Empty paths select the artifacts embedded in the binary.
type Config struct {
	ModelPath      string
	ThresholdsPath string
}

// Scorer runs the assessment pipeline: validate, extract features,
// score, band, screen. It holds no mutable state after construction, so
// identical submissions against identical stored history always produce
// the same score and level.
type Scorer struct {
	model     *Model
	bands     []domain.RiskBand
	extractor *Extractor
	screener  Screener
}

// NewScorer loads the model and thresholds artifacts and wires the
// pipeline. Artifact errors are fatal at startup; a running scorer never
// reloads them. screener may be nil to disable red-flag screening.
func NewScorer(cfg Config, extractor *Extractor, screener Screener) (*Scorer, error) {
	model, err := LoadModel(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	bands, err := LoadBands(cfg.ThresholdsPath)
	if err != nil {
		return nil, fmt.Errorf("load thresholds: %w", err)
	}
	if extractor == nil {
		extractor = NewExtractor(nil, 0)
	}
	return &Scorer{
		model:     model,
		bands:     bands,
		extractor: extractor,
		screener:  screener,
	}, nil
}

// Assess validates and scores one contract submission. The result is
// derived on every call and never persisted.
func (s *Scorer) Assess(ctx context.Context, sub *domain.ContractSubmission) (*domain.Assessment, error) {
	start := time.Now()

	if err := validate(sub); err != nil {
		return nil, err
	}

	features, err := s.extractor.Extract(ctx, sub)
	if err != nil {
		return nil, err
	}

	score := s.model.Score(features)
	level := Label(s.bands, score)

	var flags []domain.ScreeningFlag
	if s.screener != nil {
		flags = s.screener.Screen(features)
	}

	return &domain.Assessment{
		ID:             uuid.New().String(),
		ContractNumber: sub.ContractNumber,
		Score:          score,
		Level:          level,
		Recommendation: Recommendation(level),
		Flags:          flags,
		Features:       features,
		EvaluatedAt:    time.Now().UTC(),
		DurationMicros: time.Since(start).Microseconds(),
	}, nil
}

// Bands returns the configured risk bands in severity order.
func (s *Scorer) Bands() []domain.RiskBand {
	return s.bands
}

// ModelVersion reports the loaded artifact's version stamp.
func (s *Scorer) ModelVersion() string {
	return s.model.Version()
}

func validate(sub *domain.ContractSubmission) error {
	switch {
	case sub == nil:
		return fmt.Errorf("%w: empty request body", ErrValidation)
	case strings.TrimSpace(sub.ContractNumber) == "":
		return fmt.Errorf("%w: contract_number is required", ErrValidation)
	case strings.TrimSpace(sub.Description) == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case strings.TrimSpace(sub.Supplier) == "":
		return fmt.Errorf("%w: supplier is required", ErrValidation)
	case strings.TrimSpace(sub.Country) == "":
		return fmt.Errorf("%w: country is required", ErrValidation)
	case sub.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	case sub.Amount > maxContractAmount:
		return fmt.Errorf("%w: amount exceeds the %.0f ceiling", ErrValidation, float64(maxContractAmount))
	case sub.DurationMonths < 0:
		return fmt.Errorf("%w: duration_months cannot be negative", ErrValidation)
	case sub.BidCount < 0:
		return fmt.Errorf("%w: bid_count cannot be negative", ErrValidation)
	}
	return nil
}

// Recommendation returns the action text for a risk level.
func Recommendation(level string) string {
	switch level {
	case domain.RiskCritical:
		return "Immediate investigation required."
	case domain.RiskHigh:
		return "Detailed review recommended."
	case domain.RiskMedium:
		return "Standard verification needed."
	default:
		return "Contract appears normal."
	}
}
