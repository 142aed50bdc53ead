package weather

import (
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chrissnell/ambientderate/internal/types"
)

// unknownCallSign is what ISD writes when a report carries no call sign.
const unknownCallSign = "99999"

// stationHour keys on Unix seconds so one instant matches across locations
type stationHour struct {
	station string
	hour    int64
}

// Joiner decodes raw ISD rows and reduces them to one reading per
// station-hour.
type Joiner struct {
	logger  *zap.SugaredLogger
	quality *types.QualityReport
}

// NewJoiner creates a Joiner. quality may be nil.
func NewJoiner(logger *zap.SugaredLogger, quality *types.QualityReport) *Joiner {
	return &Joiner{
		logger:  logger,
		quality: quality,
	}
}

// Reduce decodes rows, drops any reading missing dry bulb, dew point or
// pressure, and keeps the last remaining reading of each station-hour in input
// order. The result is sorted by station then hour.
func (j *Joiner) Reduce(rows []types.RawWeatherRow) []types.WeatherReading {
	callSigns := resolveCallSigns(rows)

	index := make(map[stationHour]int)
	var readings []types.WeatherReading

	for _, row := range rows {
		station := callSigns[row.Station]
		if station == "" {
			station = strings.TrimSpace(row.CallSign)
		}
		if station == "" || station == unknownCallSign {
			station = strings.TrimSpace(row.Station)
		}

		reading, ok := j.decode(station, row)
		if !ok {
			continue
		}

		key := stationHour{station: reading.StationID, hour: reading.Hour.Unix()}
		if i, seen := index[key]; seen {
			readings[i] = reading
			continue
		}
		index[key] = len(readings)
		readings = append(readings, reading)
	}

	sort.SliceStable(readings, func(a, b int) bool {
		if readings[a].StationID != readings[b].StationID {
			return readings[a].StationID < readings[b].StationID
		}
		return readings[a].Hour.Before(readings[b].Hour)
	})

	if j.logger != nil {
		j.logger.Infof("reduced %d raw weather rows to %d station-hours", len(rows), len(readings))
	}
	return readings
}

func (j *Joiner) decode(station string, row types.RawWeatherRow) (types.WeatherReading, bool) {
	dryBulb, errT := ParseTemperature("TMP", row.TMP)
	dewPoint, errD := ParseTemperature("DEW", row.DEW)
	pressure, errP := ParsePressure(row.MA1)

	ok := true
	for _, err := range []error{errT, errD, errP} {
		if err == nil {
			continue
		}
		ok = false
		if !errors.Is(err, ErrMissing) {
			j.quality.Record(err)
		}
	}
	if !ok {
		j.quality.Record(&types.DataQualityError{
			Stage:  "weather",
			Reason: "incomplete reading",
			Key:    station + " " + row.Timestamp.Format(time.RFC3339),
		})
		return types.WeatherReading{}, false
	}

	return types.WeatherReading{
		StationID:   station,
		Hour:        row.Timestamp.Truncate(time.Hour),
		DryBulbC:    dryBulb,
		DewPointC:   dewPoint,
		PressureKPa: pressure,
	}, true
}

// resolveCallSigns maps each USAF-WBAN station to the call sign reported on
// its complete rows, so rows written with the unknown call sign can be
// attributed to the right station.
func resolveCallSigns(rows []types.RawWeatherRow) map[string]string {
	signs := make(map[string]string)
	for _, row := range rows {
		cs := strings.TrimSpace(row.CallSign)
		if cs == "" || cs == unknownCallSign {
			continue
		}
		if _, ok := signs[row.Station]; !ok {
			signs[row.Station] = cs
		}
	}
	return signs
}
