package source

import (
	"io"
	"strconv"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Resource to weather station map columns
const (
	colAssignResource = "ResourceID"
	colAssignUnitType = "UnitType"
	colAssignStation  = "WeatherStationID"
)

// Assignments reads the resource to unit type and weather station map.
// Rows missing any of the three fields are dropped.
func (l *Loader) Assignments(r io.Reader) ([]types.ResourceAssignment, error) {
	t, err := readTable(r, colAssignResource, colAssignUnitType, colAssignStation)
	if err != nil {
		return nil, err
	}

	assignments := make([]types.ResourceAssignment, 0, len(t.rows))
	for i, row := range t.rows {
		a := types.ResourceAssignment{
			ResourceID: t.get(row, colAssignResource),
			UnitType:   t.get(row, colAssignUnitType),
			StationID:  t.get(row, colAssignStation),
		}
		if a.ResourceID == "" || a.UnitType == "" || a.StationID == "" {
			l.quality.Record(&types.DataQualityError{
				Stage:  "assignments",
				Reason: "incomplete assignment",
				Key:    "row " + strconv.Itoa(i+2),
			})
			continue
		}
		assignments = append(assignments, a)
	}

	l.logf("loaded %d resource assignments", len(assignments))
	return assignments, nil
}
