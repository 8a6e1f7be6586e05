package forecast

import "fmt"

// Flatten walks the nested response into rows. Output order follows the
// response: outer location list first, then each location's forecasts.
func Flatten(resp Response) (Table, error) {
	if resp.WeatherForecasts == nil {
		return nil, missing("WeatherForecasts")
	}

	locations := *resp.WeatherForecasts

	n := 0
	for _, loc := range locations {
		if loc.Forecasts != nil {
			n += len(*loc.Forecasts)
		}
	}
	table := make(Table, 0, n)

	for i, loc := range locations {
		prefix := fmt.Sprintf("WeatherForecasts[%d]", i)
		if loc.Location == nil {
			return nil, missing(prefix + ".location")
		}
		if loc.Location.Lat == nil {
			return nil, missing(prefix + ".location.lat")
		}
		if loc.Location.Lon == nil {
			return nil, missing(prefix + ".location.lon")
		}
		if loc.Forecasts == nil {
			return nil, missing(prefix + ".forecasts")
		}

		for j, entry := range *loc.Forecasts {
			entryPath := fmt.Sprintf("%s.forecasts[%d]", prefix, j)
			if entry.Time == nil {
				return nil, missing(entryPath + ".time")
			}
			if entry.Data == nil {
				return nil, missing(entryPath + ".data")
			}
			if entry.Data.TC == nil {
				return nil, missing(entryPath + ".data.tc")
			}
			if entry.Data.RH == nil {
				return nil, missing(entryPath + ".data.rh")
			}

			table = append(table, Row{
				Latitude:     *loc.Location.Lat,
				Longitude:    *loc.Location.Lon,
				Time:         *entry.Time,
				TemperatureC: *entry.Data.TC,
				HumidityPct:  *entry.Data.RH,
			})
		}
	}

	return table, nil
}
