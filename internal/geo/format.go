package geo

import (
	"fmt"
	"slices"
	"strings"
)

const maxLabelParts = 5

// LocationDetected is the label for a candidate with no usable address parts.
const LocationDetected = "Location detected"

// FormatDisplayLabel renders the most specific parts of c, up to five, with
// the postcode as "PIN <code>".
func FormatDisplayLabel(c Candidate) string {
	var parts []string

	switch {
	case c.HouseNumber != "" && c.Street != "":
		parts = append(parts, c.HouseNumber+" "+c.Street)
	case c.Street != "":
		parts = append(parts, c.Street)
	}

	switch {
	case c.Village != "":
		parts = append(parts, c.Village)
	case c.Hamlet != "":
		parts = append(parts, c.Hamlet)
	case c.Neighborhood != "":
		parts = append(parts, c.Neighborhood)
	case c.Suburb != "":
		parts = append(parts, c.Suburb)
	}

	if c.Locality != "" && !slices.Contains(parts, c.Locality) {
		parts = append(parts, c.Locality)
	}

	if c.City != "" && !slices.ContainsFunc(parts, func(p string) bool {
		return strings.Contains(strings.ToLower(p), strings.ToLower(c.City))
	}) {
		parts = append(parts, c.City)
	}

	if c.District != "" && !slices.Contains(parts, c.District) {
		parts = append(parts, c.District)
	}
	if c.State != "" && !slices.Contains(parts, c.State) {
		parts = append(parts, c.State)
	}
	if c.Postcode != "" && !slices.Contains(parts, c.Postcode) {
		parts = append(parts, "PIN "+c.Postcode)
	}

	if len(parts) > maxLabelParts {
		parts = parts[:maxLabelParts]
	}
	switch {
	case len(parts) > 0:
		return strings.Join(parts, ", ")
	case c.FullAddress != "":
		return c.FullAddress
	default:
		return LocationDetected
	}
}

// AccuracyLevel describes a sensor accuracy radius in meters. Zero means the
// radius is unknown.
func AccuracyLevel(meters float64) string {
	switch {
	case meters <= 0:
		return "General area accuracy"
	case meters <= 5:
		return "Building-level accuracy (±5m)"
	case meters <= 10:
		return "Street-level accuracy (±10m)"
	case meters <= 50:
		return "Neighborhood accuracy (±50m)"
	case meters <= 100:
		return "Area-level accuracy (±100m)"
	default:
		return "General area accuracy"
	}
}

// AccuracyReport summarises how far c can be trusted.
func AccuracyReport(c Candidate) string {
	return fmt.Sprintf("%s • %g%% confident • Source: %s", AccuracyLevel(c.Accuracy), c.Confidence, c.Source)
}
