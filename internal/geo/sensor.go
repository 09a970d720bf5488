package geo

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UnknownAccuracy stands in for samples that report no accuracy.
const UnknownAccuracy = 999

// RefineOptions bounds the sampling loop of AcquireFix.
type RefineOptions struct {
	Budget      time.Duration
	MaxSamples  int
	MinAccuracy float64
}

// DefaultRefineOptions collects up to 5 samples for at most 30 s and stops
// early at 20 m accuracy.
var DefaultRefineOptions = RefineOptions{
	Budget:      30 * time.Second,
	MaxSamples:  5,
	MinAccuracy: 20,
}

// AcquireFix watches sensor and returns its most accurate sample. It stops
// once a sample is within MinAccuracy, after MaxSamples samples, or when the
// budget runs out. If the sensor fails before producing anything a single
// Current read is attempted instead.
func AcquireFix(ctx context.Context, sensor Sensor, opts RefineOptions) (Fix, error) {
	if opts.Budget <= 0 {
		opts.Budget = DefaultRefineOptions.Budget
	}
	if opts.MaxSamples <= 0 {
		opts.MaxSamples = DefaultRefineOptions.MaxSamples
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Budget)
	defer cancel()

	fixes, errs := sensor.Watch(ctx)

	var (
		best    *Fix
		samples int
	)
	for fixes != nil || errs != nil {
		select {
		case f, ok := <-fixes:
			if !ok {
				fixes = nil
				continue
			}
			samples++
			if f.Accuracy <= 0 {
				f.Accuracy = UnknownAccuracy
			}
			if best == nil || f.Accuracy < best.Accuracy {
				best = &f
				if best.Accuracy <= opts.MinAccuracy {
					return *best, nil
				}
			}
			if samples >= opts.MaxSamples {
				return *best, nil
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			if best != nil {
				return *best, nil
			}
			return currentFix(ctx, sensor, err)

		case <-ctx.Done():
			if best != nil {
				return *best, nil
			}
			return Fix{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, ctx.Err())
		}
	}

	if best != nil {
		return *best, nil
	}
	return Fix{}, fmt.Errorf("%w: sensor produced no samples", ErrLocationUnavailable)
}

func currentFix(ctx context.Context, sensor Sensor, watchErr error) (Fix, error) {
	f, err := sensor.Current(ctx)
	if err != nil {
		return Fix{}, fmt.Errorf("%w: %w", ErrLocationUnavailable, errors.Join(watchErr, err))
	}
	if f.Accuracy <= 0 {
		f.Accuracy = UnknownAccuracy
	}
	return f, nil
}

var errNoReportedFixes = errors.New("no position samples reported")

// ReportedSensor replays fixes a client measured on its own device and
// submitted with the request.
type ReportedSensor struct {
	fixes []Fix
}

func NewReportedSensor(fixes []Fix) *ReportedSensor {
	return &ReportedSensor{fixes: fixes}
}

func (s *ReportedSensor) Watch(ctx context.Context) (<-chan Fix, <-chan error) {
	out := make(chan Fix)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		if len(s.fixes) == 0 {
			errc <- errNoReportedFixes
			return
		}
		for _, f := range s.fixes {
			select {
			case out <- f:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, errc
}

// Current returns the most accurate reported fix.
func (s *ReportedSensor) Current(_ context.Context) (Fix, error) {
	if len(s.fixes) == 0 {
		return Fix{}, errNoReportedFixes
	}
	best := s.fixes[0]
	for _, f := range s.fixes[1:] {
		if f.Accuracy > 0 && (best.Accuracy <= 0 || f.Accuracy < best.Accuracy) {
			best = f
		}
	}
	return best, nil
}
