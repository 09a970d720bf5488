package weather

import (
	"math"
	"sort"
)

// Merge combines two snapshots of the same coordinates and unit system.
// A nil secondary returns primary unchanged. Numeric current fields are
// combined per field; hourly and daily entries are matched by timestamp and
// the primary wins every tie.
func Merge(primary Snapshot, secondary *Snapshot) Snapshot {
	if secondary == nil {
		return primary
	}

	out := primary
	out.Current = mergeCurrent(primary.Current, secondary.Current)
	out.Hourly = mergeHourly(primary.Hourly, secondary.Hourly)
	out.Daily = mergeDaily(primary.Daily, secondary.Daily)
	if out.TimezoneOffsetSeconds == 0 {
		out.TimezoneOffsetSeconds = secondary.TimezoneOffsetSeconds
	}
	return out
}

func mergeCurrent(p, s Current) Current {
	out := p
	out.Temperature = (p.Temperature + s.Temperature) / 2
	out.WindSpeed = math.Max(p.WindSpeed, s.WindSpeed)
	out.Humidity = math.Round((p.Humidity + s.Humidity) / 2)

	switch {
	case p.Pressure > 0:
		out.Pressure = p.Pressure
	case s.Pressure > 0:
		out.Pressure = s.Pressure
	default:
		out.Pressure = DefaultPressureHpa
	}

	if out.UVIndex <= 0 {
		out.UVIndex = s.UVIndex
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = s.Timestamp
	}
	out.Conditions = preferConditions(p.Conditions, s.Conditions)
	return out
}

func preferConditions(p, s Conditions) Conditions {
	if p.Description != "" {
		return p
	}
	return s
}

func mergeHourly(primary, secondary []HourlyEntry) []HourlyEntry {
	index := make(map[int64]int, len(primary))
	out := make([]HourlyEntry, 0, len(primary)+len(secondary))
	for _, e := range primary {
		index[e.Timestamp.Unix()] = len(out)
		out = append(out, e)
	}

	for _, e := range secondary {
		i, ok := index[e.Timestamp.Unix()]
		if !ok {
			out = append(out, e)
			continue
		}
		p := out[i]
		p.Temperature = math.Round((p.Temperature + e.Temperature) / 2)
		p.PrecipitationProbability = math.Max(p.PrecipitationProbability, e.PrecipitationProbability)
		p.Conditions = preferConditions(p.Conditions, e.Conditions)
		out[i] = p
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > MaxHourly {
		out = out[:MaxHourly]
	}
	return out
}

func mergeDaily(primary, secondary []DailyEntry) []DailyEntry {
	index := make(map[int64]int, len(primary))
	out := make([]DailyEntry, 0, len(primary)+len(secondary))
	for _, e := range primary {
		index[e.Timestamp.Unix()] = len(out)
		out = append(out, e)
	}

	for _, e := range secondary {
		i, ok := index[e.Timestamp.Unix()]
		if !ok {
			out = append(out, e)
			continue
		}
		p := out[i]
		p.TempMax = math.Round((p.TempMax + e.TempMax) / 2)
		p.TempMin = math.Round((p.TempMin + e.TempMin) / 2)
		p.Conditions = preferConditions(p.Conditions, e.Conditions)
		out[i] = p
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if len(out) > MaxDaily {
		out = out[:MaxDaily]
	}
	return out
}
