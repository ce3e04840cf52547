package rtp

import (
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/joelcab02/Lootea-Demo-sub001/internal/model"
)

const (
	DefaultTolerance      = 0.001
	DefaultMinProbability = 1e-6
	// MaxTolerance bounds the allowed |actual_rtp - target_rtp| of a successful solve.
	MaxTolerance = 0.005

	bisectIterations = 200
	maxLambda        = 1e6
)

// Band is a value band relative to the box price. An item belongs to the first band whose
// [MinRatio, MaxRatio) range contains value/box_price. MaxRatio <= 0 means unbounded.
type Band struct {
	Name        string  `yaml:"name" json:"name" validate:"required"`
	DisplayName string  `yaml:"display_name" json:"display_name" validate:"required"`
	Color       string  `yaml:"color" json:"color" validate:"required"`
	MinRatio    float64 `yaml:"min_ratio" json:"min_ratio" validate:"min=0"`
	MaxRatio    float64 `yaml:"max_ratio" json:"max_ratio" validate:"min=0"`
}

func (b Band) contains(ratio float64) bool {
	return ratio >= b.MinRatio && (b.MaxRatio <= 0 || ratio < b.MaxRatio)
}

type Config struct {
	Bands []Band
	// Tolerance is the allowed |actual_rtp - target_rtp|. Values outside (0, MaxTolerance)
	// fall back to DefaultTolerance.
	Tolerance float64
	// MinProbability is the floor for every non-empty tier.
	MinProbability float64
}

func DefaultBands() []Band {
	return []Band{
		{Name: "low", DisplayName: "Common", Color: "#9CA3AF", MinRatio: 0, MaxRatio: 0.5},
		{Name: "mid", DisplayName: "Rare", Color: "#3B82F6", MinRatio: 0.5, MaxRatio: 2},
		{Name: "high", DisplayName: "Epic", Color: "#A855F7", MinRatio: 2, MaxRatio: 10},
		{Name: "jackpot", DisplayName: "Jackpot", Color: "#F59E0B", MinRatio: 10},
	}
}

func DefaultConfig() Config {
	return Config{
		Bands:          DefaultBands(),
		Tolerance:      DefaultTolerance,
		MinProbability: DefaultMinProbability,
	}
}

// Solver assigns tier probabilities so a box pays back a target share of its price.
// It holds no mutable state and is safe for concurrent use.
type Solver struct {
	cfg Config
}

func NewSolver(cfg Config) *Solver {
	if len(cfg.Bands) == 0 {
		cfg.Bands = DefaultBands()
	}

	if cfg.Tolerance <= 0 || cfg.Tolerance >= MaxTolerance {
		cfg.Tolerance = DefaultTolerance
	}

	if cfg.MinProbability <= 0 {
		cfg.MinProbability = DefaultMinProbability
	}

	return &Solver{cfg: cfg}
}

type tier struct {
	band  Band
	items []model.ConfigItem
	sum   float64
	min   float64
	max   float64
}

func (t *tier) avg() float64 {
	return t.sum / float64(len(t.items))
}

// Solve partitions items into value bands and assigns every non-empty tier the probability
//
//	p_k = f + (1 - n·f)·q_k,   q_k ∝ (1 + x_k)^-λ,   x_k = avg_k / box_price,   λ >= 0
//
// where f is MinProbability. q is non-increasing in tier value for every λ, so jackpots stay
// rarer than cheaper tiers whatever the target. Expected value falls monotonically from the
// uniform mean (λ = 0) to f·Σx + (1 - n·f)·x_min (λ → ∞), and λ is bisected to hit the target.
func (s *Solver) Solve(items []model.ConfigItem, boxPrice decimal.Decimal, targetRTP float64) model.AutoConfigResult {
	if err := validate(items, boxPrice, targetRTP); err != nil {
		return failure(err)
	}

	price := boxPrice.InexactFloat64()

	tiers, err := s.bucket(items, boxPrice)
	if err != nil {
		return failure(err)
	}

	x := make([]float64, len(tiers))
	for i, t := range tiers {
		x[i] = t.avg() / price
	}

	tol := s.cfg.Tolerance

	lambda, err := s.solveLambda(x, targetRTP, tol)
	if err != nil {
		return failure(err)
	}

	probs := s.probabilities(x, lambda)

	result := model.AutoConfigResult{
		Success: true,
		Tiers:   make([]model.TierAllocation, 0, len(tiers)),
	}

	for i, t := range tiers {
		avg := t.avg()
		ev := probs[i] * avg

		result.Tiers = append(result.Tiers, model.TierAllocation{
			TierName:       t.band.Name,
			DisplayName:    t.band.DisplayName,
			Color:          t.band.Color,
			Probability:    probs[i],
			Items:          t.items,
			ItemCount:      len(t.items),
			AvgValue:       avg,
			MinValue:       t.min,
			MaxValue:       t.max,
			EVContribution: ev,
		})

		result.TotalEV += ev
	}

	result.ActualRTP = result.TotalEV / price
	result.HouseEdge = 1 - result.ActualRTP

	if math.Abs(result.ActualRTP-targetRTP) > tol {
		return failure(model.NewError(model.KindInfeasible,
			"solved rtp %.6f misses target %.6f by more than %.6f", result.ActualRTP, targetRTP, tol))
	}

	return result
}

func validate(items []model.ConfigItem, boxPrice decimal.Decimal, targetRTP float64) error {
	if len(items) == 0 {
		return model.NewError(model.KindInvalidInput, "item list is empty")
	}

	if !boxPrice.IsPositive() {
		return model.NewError(model.KindInvalidInput, "box price must be positive, got %s", boxPrice)
	}

	if math.IsNaN(targetRTP) || targetRTP <= 0 || targetRTP >= 1 {
		return model.NewError(model.KindInvalidInput, "target rtp must be in (0, 1), got %v", targetRTP)
	}

	for _, item := range items {
		if item.Value().IsNegative() {
			return model.NewError(model.KindInvalidInput, "item %q has negative value %s", item.ID, item.Value())
		}
	}

	return nil
}

// bucket groups items by band. Tiers come back in ascending average value; items inside a tier
// are ordered by value then id so identical inputs always give identical output.
func (s *Solver) bucket(items []model.ConfigItem, boxPrice decimal.Decimal) ([]*tier, error) {
	sorted := make([]model.ConfigItem, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		if c := sorted[i].Value().Cmp(sorted[j].Value()); c != 0 {
			return c < 0
		}

		return sorted[i].ID < sorted[j].ID
	})

	byBand := make(map[int]*tier)

	for _, item := range sorted {
		value := item.Value()
		ratio := value.Div(boxPrice).InexactFloat64()

		idx := -1
		for i, b := range s.cfg.Bands {
			if b.contains(ratio) {
				idx = i

				break
			}
		}

		if idx < 0 {
			return nil, model.NewError(model.KindInvalidInput,
				"item %q (value %s, %.4fx box price) matches no tier band", item.ID, value, ratio)
		}

		t, ok := byBand[idx]
		if !ok {
			t = &tier{band: s.cfg.Bands[idx], min: math.Inf(1), max: math.Inf(-1)}
			byBand[idx] = t
		}

		v := value.InexactFloat64()
		t.items = append(t.items, item)
		t.sum += v
		t.min = math.Min(t.min, v)
		t.max = math.Max(t.max, v)
	}

	indexes := make([]int, 0, len(byBand))
	for idx := range byBand {
		indexes = append(indexes, idx)
	}

	sort.Ints(indexes)

	tiers := make([]*tier, 0, len(indexes))
	for _, idx := range indexes {
		tiers = append(tiers, byBand[idx])
	}

	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].avg() < tiers[j].avg()
	})

	return tiers, nil
}

// probabilities evaluates the tier distribution for λ. x must be ascending.
func (s *Solver) probabilities(x []float64, lambda float64) []float64 {
	floor := s.cfg.MinProbability
	free := 1 - float64(len(x))*floor

	q := make([]float64, len(x))
	total := 0.0

	for i, v := range x {
		// Shifted by the cheapest tier so the largest term is exactly 1.
		q[i] = math.Exp(-lambda * (math.Log1p(v) - math.Log1p(x[0])))
		total += q[i]
	}

	for i := range q {
		q[i] = floor + free*q[i]/total
	}

	return q
}

func (s *Solver) expected(x []float64, lambda float64) float64 {
	ev := 0.0
	for i, p := range s.probabilities(x, lambda) {
		ev += p * x[i]
	}

	return ev
}

// solveLambda returns the exponent that brings the expected value, in box price units, to target.
func (s *Solver) solveLambda(x []float64, target, tol float64) (float64, error) {
	n := float64(len(x))
	floor := s.cfg.MinProbability

	if n*floor > 1 {
		return 0, model.NewError(model.KindInfeasible,
			"%d tiers cannot each hold the minimum probability %g", len(x), floor)
	}

	upper := s.expected(x, 0)

	if target > upper+tol {
		return 0, model.NewError(model.KindInfeasible,
			"target rtp %.6f exceeds %.6f, the highest rtp reachable while higher-value tiers stay no more likely than lower-value ones",
			target, upper)
	}

	if target >= upper {
		return 0, nil
	}

	sum := 0.0
	for _, v := range x {
		sum += v
	}

	lower := floor*sum + (1-n*floor)*x[0]

	if target < lower-tol {
		return 0, model.NewError(model.KindInfeasible,
			"target rtp %.6f is below %.6f, the lowest rtp reachable with every tier at probability >= %g (cheapest tier alone returns %.6f)",
			target, lower, floor, x[0])
	}

	if target <= lower {
		return maxLambda, nil
	}

	lo, hi := 0.0, maxLambda
	for i := 0; i < bisectIterations; i++ {
		mid := (lo + hi) / 2
		if s.expected(x, mid) > target {
			lo = mid
		} else {
			hi = mid
		}
	}

	return (lo + hi) / 2, nil
}

func failure(err error) model.AutoConfigResult {
	return model.AutoConfigResult{
		Success:   false,
		Error:     fmt.Sprint(err),
		ErrorKind: model.KindOf(err),
		Tiers:     []model.TierAllocation{},
	}
}
