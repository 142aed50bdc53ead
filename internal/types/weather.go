package types

import (
	"time"
)

// RawWeatherRow is an undecoded hourly surface observation in NCEI Integrated
// Surface Dataset (ISD) form. TMP and DEW carry "+0123,1" style tokens and MA1
// carries the "10132,1,10098,1" altimeter/station pressure group.
type RawWeatherRow struct {
	Station   string // USAF-WBAN identifier
	CallSign  string
	Timestamp time.Time
	TMP       string
	DEW       string
	MA1       string
}

// WeatherReading is a decoded reading reduced to one per station-hour.
type WeatherReading struct {
	StationID   string
	Hour        time.Time
	DryBulbC    float64
	DewPointC   float64
	PressureKPa float64
}

// TemperatureSample is a single point of a temperature trajectory used for
// derate forecasting. Historical and climate scenario series both arrive in
// this form.
type TemperatureSample struct {
	StationID    string
	Timestamp    time.Time
	TemperatureC float64
}
