package forecast

import (
	"time"
)

// StartTimeLayout is the start-time format the TMD API accepts (no zone offset).
const StartTimeLayout = "2006-01-02T15:04:05"

// Fields selects temperature and relative humidity from the upstream schema.
const Fields = "tc,rh"

// Header is the fixed column order of the output artifact.
var Header = []string{"Latitude", "Longitude", "Time", "Temperature (°C)", "Humidity (%)"}

// Query scopes one forecast request. Province and Amphoe are fixed per
// deployment but any values are accepted.
type Query struct {
	Domain    string `json:"domain" validate:"required"`
	Province  string `json:"province" validate:"required"`
	Amphoe    string `json:"amphoe" validate:"required"`
	StartTime string `json:"starttime" validate:"required"`
}

// WithStartTime returns a copy of q with a different start time.
func (q Query) WithStartTime(start string) Query {
	q.StartTime = start
	return q
}

// StartAt renders a clock hour on the calendar date of t, in t's location.
func StartAt(t time.Time, hour int) string {
	start := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
	return start.Format(StartTimeLayout)
}

// Response is the decoded 200 body. Pointer fields let Flatten tell a
// missing key apart from a zero value.
type Response struct {
	WeatherForecasts *[]LocationForecast `json:"WeatherForecasts"`
}

// LocationForecast is one location and its forecast series.
type LocationForecast struct {
	Location  *Coordinates `json:"location"`
	Forecasts *[]Entry     `json:"forecasts"`
}

// Coordinates is a location's latitude and longitude.
type Coordinates struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// Entry is a single forecast time step.
type Entry struct {
	Time *string    `json:"time"`
	Data *EntryData `json:"data"`
}

// EntryData holds one forecast time step's temperature (tc) and relative humidity (rh).
type EntryData struct {
	TC *float64 `json:"tc"`
	RH *float64 `json:"rh"`
}

// Row is one flattened forecast entry.
type Row struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Time         string  `json:"time"`
	TemperatureC float64 `json:"temperatureC"`
	HumidityPct  float64 `json:"humidityPercent"`
}

// Table preserves the nesting order of the response: locations first, then
// each location's forecast entries.
type Table []Row
