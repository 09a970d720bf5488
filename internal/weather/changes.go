package weather

import (
	"fmt"
	"math"
)

// ChangeKind classifies a notable difference between two snapshots.
type ChangeKind string

const (
	ChangeConditions  ChangeKind = "conditions"
	ChangeTemperature ChangeKind = "temperature"
	ChangeRain        ChangeKind = "rain"
)

// TemperatureJump is the change in degrees that is reported.
const TemperatureJump = 5

// rainLookahead is how many hourly entries are checked for rain.
const rainLookahead = 3

// Change is a single human-readable notification.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	Message string     `json:"message"`
}

// DetectChanges compares the previous snapshot (nil on first fetch) with the
// current one.
func DetectChanges(prev *Snapshot, curr Snapshot) []Change {
	var changes []Change

	if prev != nil {
		before, after := prev.Current.Conditions.Description, curr.Current.Conditions.Description
		if before != "" && after != "" && before != after {
			changes = append(changes, Change{
				Kind:    ChangeConditions,
				Message: fmt.Sprintf("Conditions changed from %s to %s", before, after),
			})
		}

		if prev.Units == curr.Units {
			delta := curr.Current.Temperature - prev.Current.Temperature
			if math.Abs(delta) >= TemperatureJump {
				dir := "rose"
				if delta < 0 {
					dir = "dropped"
				}
				changes = append(changes, Change{
					Kind:    ChangeTemperature,
					Message: fmt.Sprintf("Temperature %s by %.0f°", dir, math.Abs(delta)),
				})
			}
		}
	}

	if soon := maxPop(curr.Hourly, rainLookahead); soon >= HeavyRainThreshold && (prev == nil || maxPop(prev.Hourly, rainLookahead) < HeavyRainThreshold) {
		changes = append(changes, Change{
			Kind:    ChangeRain,
			Message: fmt.Sprintf("Rain likely soon (%.0f%% chance)", soon*100),
		})
	}
	return changes
}

func maxPop(hourly []HourlyEntry, n int) float64 {
	var m float64
	for i, h := range hourly {
		if i == n {
			break
		}
		m = math.Max(m, h.PrecipitationProbability)
	}
	return m
}
