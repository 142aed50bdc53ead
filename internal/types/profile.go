package types

import "fmt"

// DerateParameters are the line coefficients used to forecast derates for one
// unit type at one weather station. RatedTemperature is NaN for a line given
// by an explicit intercept rather than calibrated.
type DerateParameters struct {
	UnitType         string
	StationID        string
	Slope            float64
	Intercept        float64
	RatedTemperature float64
}

// ProfilePoint is the derate factor for one hour of a year. Hour is 1-based
// and counts from January 1 00:00.
type ProfilePoint struct {
	Hour   int
	Factor float64
}

// DerateProfile is an hourly derate series for a (unit type, station, year).
type DerateProfile struct {
	UnitType  string
	StationID string
	Year      int
	Points    []ProfilePoint
}

// WeatherName is the profile label used by production cost model inputs.
func (p DerateProfile) WeatherName() string {
	return fmt.Sprintf("%s %s", p.UnitType, p.StationID)
}

// FileStem is the conventional file name (without extension) for the profile.
func (p DerateProfile) FileStem() string {
	return fmt.Sprintf("%s-%s_%d", p.UnitType, p.StationID, p.Year)
}

// ProfileRow is one line of a production cost model derate profile file.
type ProfileRow struct {
	WeatherName      string
	Hour             int
	WeatherFactor    float64
	RandomizeProfile bool
}

// Rows flattens the profile into file rows.
func (p DerateProfile) Rows() []ProfileRow {
	name := p.WeatherName()
	rows := make([]ProfileRow, len(p.Points))
	for i, pt := range p.Points {
		rows[i] = ProfileRow{WeatherName: name, Hour: pt.Hour, WeatherFactor: pt.Factor}
	}
	return rows
}
