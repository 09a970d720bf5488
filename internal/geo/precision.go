package geo

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/skywatch/internal/common"
)

const (
	// MinConfidence is the score a candidate must exceed to be considered.
	MinConfidence = 60
	// MaxConfidence caps heuristic scores and the postcode bonus.
	MaxConfidence = 95

	postcodeBonus      = 10
	postcodeConfidence = 8
)

// DetailScore rewards the address fields a candidate fills in.
func DetailScore(c Candidate) float64 {
	var score float64
	if c.Village != "" {
		score += 20
	}
	if c.Hamlet != "" {
		score += 15
	}
	if c.Neighborhood != "" {
		score += 15
	}
	if c.Street != "" {
		score += 10
	}
	if c.HouseNumber != "" {
		score += 10
	}
	if hasPostcode(c) {
		score += 10
	}
	if c.Locality != "" {
		score += 5
	}
	if c.Suburb != "" {
		score += 5
	}
	return score
}

func hasPostcode(c Candidate) bool {
	return strings.TrimSpace(c.Postcode) != ""
}

func rankScore(c Candidate) float64 {
	score := c.Confidence + DetailScore(c)
	if hasPostcode(c) {
		score += postcodeBonus
	}
	return score
}

// Rank picks the best candidate. Candidates at or below MinConfidence are
// dropped; those carrying a postcode outrank all others regardless of score.
// On equal scores the earlier candidate wins.
func Rank(candidates []Candidate) (Candidate, bool) {
	var valid, withPostcode []Candidate
	for _, c := range candidates {
		if c.Confidence <= MinConfidence {
			continue
		}
		valid = append(valid, c)
		if hasPostcode(c) {
			withPostcode = append(withPostcode, c)
		}
	}

	pool := valid
	if len(withPostcode) > 0 {
		pool = withPostcode
	}
	if len(pool) == 0 {
		return Candidate{}, false
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if rankScore(c) > rankScore(best) {
			best = c
		}
	}
	return best, true
}

// BackfillCity fills City and State from the most specific populated fields.
func BackfillCity(c Candidate) Candidate {
	c.City = common.FirstNonEmpty(c.City, c.Locality, c.Village, c.Hamlet, c.Neighborhood, c.Suburb, common.FirstSegment(c.FullAddress))
	c.State = common.FirstNonEmpty(c.State, c.District)
	return c
}

// PrecisionResolver queries every reverse geocoder concurrently and keeps the
// most complete answer, then fills a missing postcode from the postal cascade.
type PrecisionResolver struct {
	reversers []ReverseGeocoder
	postal    []PostalCoder
	logger    *zap.Logger
}

func NewPrecisionResolver(reversers []ReverseGeocoder, postal []PostalCoder, logger *zap.Logger) *PrecisionResolver {
	return &PrecisionResolver{
		reversers: reversers,
		postal:    postal,
		logger:    logger.Named("precision"),
	}
}

// ResolvePrecise describes (lat, lon). The returned candidate carries the
// input coordinates, not the provider's snapped ones.
func (r *PrecisionResolver) ResolvePrecise(ctx context.Context, lat, lon float64) (Candidate, error) {
	candidates := make([]*Candidate, len(r.reversers))

	var wg sync.WaitGroup
	for i, rev := range r.reversers {
		wg.Add(1)
		go func(i int, rev ReverseGeocoder) {
			defer wg.Done()
			c, err := rev.Reverse(ctx, lat, lon)
			if err != nil {
				r.logger.Info("reverse geocoder failed",
					zap.String("provider", rev.Name()),
					zap.Error(err))
				return
			}
			candidates[i] = &c
		}(i, rev)
	}
	wg.Wait()

	// Keep provider order so ties resolve deterministically.
	usable := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c != nil {
			usable = append(usable, *c)
		}
	}

	best, ok := Rank(usable)
	if !ok {
		return Candidate{}, fmt.Errorf("%w: no provider described %.6f,%.6f", ErrLocationNotFound, lat, lon)
	}

	best.Lat, best.Lon = lat, lon
	best = BackfillCity(best)

	if !hasPostcode(best) {
		if pc := r.LookupPostcode(ctx, lat, lon); pc != "" {
			best.Postcode = pc
			confidence := best.Confidence
			if confidence <= 0 {
				confidence = 70
			}
			best.Confidence = math.Min(MaxConfidence, confidence+postcodeConfidence)
		}
	}

	r.logger.Debug("location resolved",
		zap.String("source", best.Source),
		zap.Float64("confidence", best.Confidence),
		zap.Int("candidates", len(usable)))
	return best, nil
}

// LookupPostcode tries the postal providers in order and returns the first
// non-empty postcode, or "" when none had one.
func (r *PrecisionResolver) LookupPostcode(ctx context.Context, lat, lon float64) string {
	for _, p := range r.postal {
		pc, err := p.Postcode(ctx, lat, lon)
		if err != nil {
			r.logger.Info("postcode source failed", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if pc = strings.TrimSpace(pc); pc != "" {
			return pc
		}
	}
	return ""
}
