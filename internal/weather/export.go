package weather

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

var csvHeader = []string{"section", "dt", "temp", "humidity", "pressure", "wind_speed", "uvi", "description"}

// WriteCSV writes s as one "current" row followed by hourly and daily rows.
// Daily temperatures are written as "min-max".
func WriteCSV(w io.Writer, s Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	c := s.Current
	rows := [][]string{{
		"current",
		unixString(c.Timestamp.Unix()),
		formatNumber(c.Temperature),
		formatNumber(c.Humidity),
		formatNumber(c.Pressure),
		formatNumber(c.WindSpeed),
		formatNumber(c.UVIndex),
		c.Conditions.Description,
	}}
	for i, h := range s.Hourly {
		if i == MaxHourly {
			break
		}
		rows = append(rows, []string{"hourly", unixString(h.Timestamp.Unix()), formatNumber(h.Temperature), "", "", "", "", h.Conditions.Description})
	}
	for i, d := range s.Daily {
		if i == MaxDaily {
			break
		}
		temp := fmt.Sprintf("%s-%s", formatNumber(d.TempMin), formatNumber(d.TempMax))
		rows = append(rows, []string{"daily", unixString(d.Timestamp.Unix()), temp, "", "", "", "", d.Conditions.Description})
	}

	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func unixString(v int64) string { return strconv.FormatInt(v, 10) }

func formatNumber(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
