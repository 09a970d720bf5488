package weather

// DefaultConditions is returned for codes outside the lookup table.
var DefaultConditions = Conditions{Icon: "02d", Description: "Unknown weather"}

// WMO weather interpretation codes as reported by Open-Meteo.
var conditionCodes = map[int]Conditions{
	0:  {Icon: "01d", Description: "Clear sky"},
	1:  {Icon: "02d", Description: "Mainly clear"},
	2:  {Icon: "03d", Description: "Partly cloudy"},
	3:  {Icon: "04d", Description: "Overcast"},
	45: {Icon: "50d", Description: "Foggy"},
	48: {Icon: "50d", Description: "Depositing rime fog"},
	51: {Icon: "09d", Description: "Light drizzle"},
	53: {Icon: "09d", Description: "Moderate drizzle"},
	55: {Icon: "09d", Description: "Dense drizzle"},
	61: {Icon: "10d", Description: "Slight rain"},
	63: {Icon: "10d", Description: "Moderate rain"},
	65: {Icon: "10d", Description: "Heavy rain"},
	71: {Icon: "13d", Description: "Slight snow"},
	73: {Icon: "13d", Description: "Moderate snow"},
	75: {Icon: "13d", Description: "Heavy snow"},
	80: {Icon: "09d", Description: "Slight rain showers"},
	81: {Icon: "09d", Description: "Moderate rain showers"},
	82: {Icon: "09d", Description: "Violent rain showers"},
	95: {Icon: "11d", Description: "Thunderstorm"},
	96: {Icon: "11d", Description: "Thunderstorm with hail"},
	99: {Icon: "11d", Description: "Thunderstorm with heavy hail"},
}

// CodeToCondition maps a weather code to its icon and description.
func CodeToCondition(code int) Conditions {
	if c, ok := conditionCodes[code]; ok {
		return c
	}
	return DefaultConditions
}

// ConvertTemperature converts between the temperature scales of two unit systems.
func ConvertTemperature(value float64, from, to Units) float64 {
	switch {
	case from == to:
		return value
	case from == UnitsMetric && to == UnitsImperial:
		return value*9/5 + 32
	case from == UnitsImperial && to == UnitsMetric:
		return (value - 32) * 5 / 9
	default:
		return value
	}
}

// SpeedUnit is a wind speed unit as reported by providers.
type SpeedUnit string

const (
	KilometersPerHour SpeedUnit = "km/h"
	MilesPerHour      SpeedUnit = "mph"
	MetersPerSecond   SpeedUnit = "m/s"
)

// SpeedUnitFor returns the wind unit a snapshot in u carries.
func SpeedUnitFor(u Units) SpeedUnit {
	if u == UnitsImperial {
		return MilesPerHour
	}
	return KilometersPerHour
}

// ConvertWindSpeed converts value between wind speed units.
func ConvertWindSpeed(value float64, from, to SpeedUnit) float64 {
	if from == to {
		return value
	}
	var kmh float64
	switch from {
	case MilesPerHour:
		kmh = value * 1.609344
	case MetersPerSecond:
		kmh = value * 3.6
	default:
		kmh = value
	}
	switch to {
	case MilesPerHour:
		return kmh / 1.609344
	case MetersPerSecond:
		return kmh / 3.6
	default:
		return kmh
	}
}
