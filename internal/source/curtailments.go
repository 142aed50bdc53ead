package source

import (
	"io"
	"strconv"

	"github.com/chrissnell/ambientderate/internal/types"
)

// Prior trade day curtailment report columns
const (
	colMRID         = "OUTAGE MRID"
	colResourceID   = "RESOURCE ID"
	colResourceName = "RESOURCE NAME"
	colOutageType   = "OUTAGE TYPE"
	colNatureOfWork = "NATURE OF WORK"
	colStart        = "CURTAILMENT START DATE TIME"
	colEnd          = "CURTAILMENT END DATE TIME"
	colCurtailment  = "CURTAILMENT MW"
	colPmax         = "RESOURCE PMAX MW"
	colReportDate   = "REPORT DATE"
	colReportedAt   = "REPORTED AT"
)

// Curtailments reads extracted curtailment report rows. REPORT DATE and
// REPORTED AT are optional; without them day clipping is disabled and
// revisions are ordered by position. Blank or malformed cells are left empty
// for the event normalizer to reject.
func (l *Loader) Curtailments(r io.Reader) ([]types.RawCurtailment, error) {
	t, err := readTable(r, colMRID, colResourceID, colStart, colEnd, colCurtailment, colPmax)
	if err != nil {
		return nil, err
	}

	rows := make([]types.RawCurtailment, 0, len(t.rows))
	for i, row := range t.rows {
		key := "row " + strconv.Itoa(i+2)
		c := types.RawCurtailment{
			MRID:          t.get(row, colMRID),
			ResourceID:    t.get(row, colResourceID),
			ResourceName:  t.get(row, colResourceName),
			OutageType:    t.get(row, colOutageType),
			NatureOfWork:  t.get(row, colNatureOfWork),
			CurtailmentMW: l.float("source", key, t.get(row, colCurtailment)),
			PmaxMW:        l.float("source", key, t.get(row, colPmax)),
		}
		c.Start, _ = l.time("source", key, t.get(row, colStart), l.loc)
		if end, ok := l.time("source", key, t.get(row, colEnd), l.loc); ok {
			c.End = &end
		}
		if t.has(colReportDate) {
			c.ReportDate, _ = l.time("source", key, t.get(row, colReportDate), l.loc)
		}
		if t.has(colReportedAt) {
			c.ReportedAt, _ = l.time("source", key, t.get(row, colReportedAt), l.loc)
		}
		rows = append(rows, c)
	}

	l.logf("loaded %d curtailment report rows", len(rows))
	return rows, nil
}
