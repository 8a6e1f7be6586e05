package forecast

import "math"

// Summary is a compact view of a flattened table, kept on run records.
type Summary struct {
	Rows             int     `json:"rows"`
	Locations        int     `json:"locations"`
	FirstTime        string  `json:"firstTime,omitempty"`
	LastTime         string  `json:"lastTime,omitempty"`
	MinTemperatureC  float64 `json:"minTemperatureC"`
	MaxTemperatureC  float64 `json:"maxTemperatureC"`
	MeanTemperatureC float64 `json:"meanTemperatureC"`
	MeanHumidityPct  float64 `json:"meanHumidityPercent"`
}

// Summarize averages temperature and humidity over all rows and tracks the
// temperature range. Locations are counted by distinct (lat, lon) pairs.
// Times are compared as strings, which orders ISO-8601 values correctly.
func Summarize(table Table) Summary {
	if len(table) == 0 {
		return Summary{}
	}

	var (
		sumTemp     float64
		sumHumidity float64
		minTemp     = math.Inf(1)
		maxTemp     = math.Inf(-1)
	)

	type coord struct{ lat, lon float64 }
	seen := make(map[coord]struct{})

	first, last := table[0].Time, table[0].Time

	for _, r := range table {
		sumTemp += r.TemperatureC
		sumHumidity += r.HumidityPct

		if r.TemperatureC < minTemp {
			minTemp = r.TemperatureC
		}
		if r.TemperatureC > maxTemp {
			maxTemp = r.TemperatureC
		}
		if r.Time < first {
			first = r.Time
		}
		if r.Time > last {
			last = r.Time
		}

		seen[coord{r.Latitude, r.Longitude}] = struct{}{}
	}

	n := float64(len(table))

	return Summary{
		Rows:             len(table),
		Locations:        len(seen),
		FirstTime:        first,
		LastTime:         last,
		MinTemperatureC:  minTemp,
		MaxTemperatureC:  maxTemp,
		MeanTemperatureC: sumTemp / n,
		MeanHumidityPct:  sumHumidity / n,
	}
}
