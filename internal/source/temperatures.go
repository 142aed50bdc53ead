package source

import (
	"io"
	"math"
	"strconv"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Temperature trajectory columns
const (
	colTempStation  = "StationID"
	colTempDateTime = "DateTime"
	colTemp         = "Temp"
)

// Temperatures reads a historical or scenario temperature series in °C.
// Rows with no station, timestamp or temperature are dropped.
func (l *Loader) Temperatures(r io.Reader) ([]types.TemperatureSample, error) {
	t, err := readTable(r, colTempStation, colTempDateTime, colTemp)
	if err != nil {
		return nil, err
	}

	samples := make([]types.TemperatureSample, 0, len(t.rows))
	for i, row := range t.rows {
		key := "row " + strconv.Itoa(i+2)
		s := types.TemperatureSample{StationID: t.get(row, colTempStation)}

		var ok bool
		s.Timestamp, ok = l.time("temperatures", key, t.get(row, colTempDateTime), l.loc)
		s.TemperatureC = l.float("temperatures", key, t.get(row, colTemp))
		if !ok || s.StationID == "" || math.IsNaN(s.TemperatureC) {
			l.quality.Record(&types.DataQualityError{Stage: "temperatures", Reason: "incomplete sample", Key: key})
			continue
		}
		samples = append(samples, s)
	}

	l.logf("loaded %d temperature samples", len(samples))
	return samples, nil
}
