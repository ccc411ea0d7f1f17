package risk

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/opengov-pk/shafaf/internal/domain"
)

//go:embed artifacts/model.json
var embeddedModel []byte

//go:embed artifacts/thresholds.json
var embeddedThresholds []byte

// ErrModelArtifact reports an unusable model or thresholds artifact.
// Callers treat it as fatal at startup; artifacts are never reloaded
// while serving.
var ErrModelArtifact = errors.New("invalid model artifact")

// Supported artifact kinds.
const (
	kindLinear = "linear"
	kindForest = "forest"
)

type modelArtifact struct {
	Kind         string        `json:"kind"`
	Version      string        `json:"version"`
	TrainedAt    string        `json:"trained_at"`
	FeatureNames []string      `json:"feature_names"`
	Scaler       scalerParams  `json:"scaler"`
	Linear       *linearParams `json:"linear,omitempty"`
	Forest       *forestParams `json:"forest,omitempty"`
}

type scalerParams struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

type linearParams struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

type forestParams struct {
	Trees []treeParams `json:"trees"`
}

// treeParams is the array encoding of one decision tree. Node i branches
// left when z[Feature[i]] <= Threshold[i]. Leaves carry Feature[i] == -1
// and their fraud probability in Value[i].
type treeParams struct {
	ChildrenLeft  []int     `json:"children_left"`
	ChildrenRight []int     `json:"children_right"`
	Feature       []int     `json:"feature"`
	Threshold     []float64 `json:"threshold"`
	Value         []float64 `json:"value"`
}

// Model scores feature vectors after standardizing them with the
// artifact's scaler.
type Model struct {
	art modelArtifact
}

// LoadModel reads and validates a model artifact from path, or the
// embedded artifact when path is empty.
func LoadModel(path string) (*Model, error) {
	raw := embeddedModel
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read model artifact: %w", err)
		}
		raw = b
	}
	return parseModel(raw)
}

func parseModel(raw []byte) (*Model, error) {
	var art modelArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelArtifact, err)
	}

	n := len(art.FeatureNames)
	if n == 0 {
		return nil, fmt.Errorf("%w: no feature names", ErrModelArtifact)
	}
	known := make(map[string]bool, len(FeatureNames))
	for _, name := range FeatureNames {
		known[name] = true
	}
	for _, name := range art.FeatureNames {
		if !known[name] {
			return nil, fmt.Errorf("%w: unknown feature %q", ErrModelArtifact, name)
		}
	}
	if len(art.Scaler.Mean) != n || len(art.Scaler.Scale) != n {
		return nil, fmt.Errorf("%w: scaler arrays must have %d entries", ErrModelArtifact, n)
	}
	for i, s := range art.Scaler.Scale {
		if s <= 0 {
			return nil, fmt.Errorf("%w: scaler scale must be positive at index %d", ErrModelArtifact, i)
		}
	}

	switch art.Kind {
	case kindLinear:
		if art.Linear == nil {
			return nil, fmt.Errorf("%w: missing linear parameters", ErrModelArtifact)
		}
		if len(art.Linear.Coefficients) != n {
			return nil, fmt.Errorf("%w: want %d coefficients, got %d", ErrModelArtifact, n, len(art.Linear.Coefficients))
		}
	case kindForest:
		if art.Forest == nil || len(art.Forest.Trees) == 0 {
			return nil, fmt.Errorf("%w: missing forest trees", ErrModelArtifact)
		}
		for ti := range art.Forest.Trees {
			if err := validateTree(&art.Forest.Trees[ti], n); err != nil {
				return nil, fmt.Errorf("%w: tree %d: %v", ErrModelArtifact, ti, err)
			}
		}
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrModelArtifact, art.Kind)
	}

	return &Model{art: art}, nil
}

// validateTree checks the array encoding so traversal always terminates:
// every array has the same length and children point strictly forward.
func validateTree(t *treeParams, featureCount int) error {
	nodes := len(t.Feature)
	if nodes == 0 {
		return errors.New("empty tree")
	}
	if len(t.ChildrenLeft) != nodes || len(t.ChildrenRight) != nodes ||
		len(t.Threshold) != nodes || len(t.Value) != nodes {
		return errors.New("node arrays have mismatched lengths")
	}
	for i := 0; i < nodes; i++ {
		if t.Feature[i] < 0 {
			continue // leaf
		}
		if t.Feature[i] >= featureCount {
			return fmt.Errorf("node %d references feature %d of %d", i, t.Feature[i], featureCount)
		}
		if t.ChildrenLeft[i] <= i || t.ChildrenLeft[i] >= nodes ||
			t.ChildrenRight[i] <= i || t.ChildrenRight[i] >= nodes {
			return fmt.Errorf("node %d has out-of-order children", i)
		}
	}
	return nil
}

// Score returns the fraud probability in [0, 1] for a feature vector.
// Features absent from the map are treated as zero.
func (m *Model) Score(features map[string]float64) float64 {
	z := make([]float64, len(m.art.FeatureNames))
	for i, name := range m.art.FeatureNames {
		z[i] = (features[name] - m.art.Scaler.Mean[i]) / m.art.Scaler.Scale[i]
	}

	var p float64
	switch m.art.Kind {
	case kindLinear:
		s := m.art.Linear.Intercept
		for i, c := range m.art.Linear.Coefficients {
			s += c * z[i]
		}
		p = sigmoid(s)
	case kindForest:
		var sum float64
		for ti := range m.art.Forest.Trees {
			sum += m.art.Forest.Trees[ti].predict(z)
		}
		p = sum / float64(len(m.art.Forest.Trees))
	}
	return clamp01(p)
}

// Version reports the artifact's version stamp.
func (m *Model) Version() string {
	return m.art.Version
}

func (t *treeParams) predict(z []float64) float64 {
	node := 0
	for t.Feature[node] >= 0 {
		if z[t.Feature[node]] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
	}
	return t.Value[node]
}

// LoadBands reads and validates risk bands from path, or the embedded
// thresholds when path is empty.
func LoadBands(path string) ([]domain.RiskBand, error) {
	raw := embeddedThresholds
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read thresholds artifact: %w", err)
		}
		raw = b
	}
	return parseBands(raw)
}

func parseBands(raw []byte) ([]domain.RiskBand, error) {
	var art struct {
		Bands []domain.RiskBand `json:"bands"`
	}
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelArtifact, err)
	}
	bands := art.Bands
	if len(bands) == 0 {
		return nil, fmt.Errorf("%w: no risk bands", ErrModelArtifact)
	}
	if bands[0].Min != 0 {
		return nil, fmt.Errorf("%w: bands must start at 0, got %g", ErrModelArtifact, bands[0].Min)
	}
	if bands[len(bands)-1].Max != 1 {
		return nil, fmt.Errorf("%w: bands must end at 1, got %g", ErrModelArtifact, bands[len(bands)-1].Max)
	}
	for i, b := range bands {
		if domain.SeverityRank(b.Level) < 0 {
			return nil, fmt.Errorf("%w: unknown risk level %q", ErrModelArtifact, b.Level)
		}
		if b.Min >= b.Max {
			return nil, fmt.Errorf("%w: band %q has empty interval [%g, %g)", ErrModelArtifact, b.Level, b.Min, b.Max)
		}
		if i > 0 && b.Min != bands[i-1].Max {
			return nil, fmt.Errorf("%w: gap between bands %q and %q", ErrModelArtifact, bands[i-1].Level, b.Level)
		}
	}
	return bands, nil
}

// Label maps a clamped score to its risk band. Bands are lower inclusive
// and upper exclusive; the top band also includes its upper boundary.
func Label(bands []domain.RiskBand, score float64) string {
	last := len(bands) - 1
	for i, b := range bands {
		if score < b.Max || i == last {
			return b.Level
		}
	}
	return ""
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
