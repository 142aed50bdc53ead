package source

import (
	"io"
	"strconv"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

// ISD global hourly columns
const (
	colStation  = "STATION"
	colCallSign = "CALL_SIGN"
	colDate     = "DATE"
	colTMP      = "TMP"
	colDEW      = "DEW"
	colMA1      = "MA1"
)

// Weather reads ISD global hourly rows. Tokens are decoded later by the
// weather joiner; rows without a usable DATE are dropped here.
func (l *Loader) Weather(r io.Reader) ([]types.RawWeatherRow, error) {
	t, err := readTable(r, colStation, colDate, colTMP, colDEW)
	if err != nil {
		return nil, err
	}

	rows := make([]types.RawWeatherRow, 0, len(t.rows))
	for i, row := range t.rows {
		station := t.get(row, colStation)
		key := station + " row " + strconv.Itoa(i+2)
		cell := t.get(row, colDate)
		if cell == "" {
			l.quality.Record(&types.DataQualityError{Stage: "weather", Reason: "missing timestamp", Key: key})
			continue
		}
		ts, ok := l.time("weather", key, cell, time.UTC)
		if !ok {
			continue
		}
		rows = append(rows, types.RawWeatherRow{
			Station:   station,
			CallSign:  t.get(row, colCallSign),
			Timestamp: ts,
			TMP:       t.get(row, colTMP),
			DEW:       t.get(row, colDEW),
			MA1:       t.get(row, colMA1),
		})
	}

	l.logf("loaded %d ISD weather rows", len(rows))
	return rows, nil
}
