// Package types holds the record types shared by every stage of the curtailment
// modelling pipeline.
package types

import (
	"math"
	"time"
)

// Outage classifications the modelling pipeline cares about. Curtailment
// reports carry many more, but only forced outages attributed to ambient
// temperature are ever fitted.
const (
	OutageTypeForced          = "FORCED"
	NatureOfWorkAmbientTemp   = "AMBIENT_DUE_TO_TEMP"
	ExploratoryCurtailmentCap = 0.3
)

// RawCurtailment is one row of an extracted prior trade day curtailment report.
type RawCurtailment struct {
	MRID          string
	ResourceID    string
	ResourceName  string
	OutageType    string
	NatureOfWork  string
	Start         time.Time
	End           *time.Time // nil when the report leaves the end open
	CurtailmentMW float64
	PmaxMW        float64

	// ReportDate is the trade day the report covers. Zero disables day clipping.
	ReportDate time.Time

	// ReportedAt is the submission time of the report the row came from. Rows
	// without one fall back to their position in the input.
	ReportedAt time.Time
}

// CurtailmentEvent is a clipped, deduplicated curtailment report row.
type CurtailmentEvent struct {
	MRID          string
	ResourceID    string
	ResourceName  string
	OutageType    string
	NatureOfWork  string
	Start         time.Time
	End           time.Time
	CurtailmentMW float64
	PmaxMW        float64
}

// Duration returns the clipped length of the event.
func (e CurtailmentEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsAmbientForced reports whether the event is a forced outage attributed to
// ambient temperature.
func (e CurtailmentEvent) IsAmbientForced() bool {
	return e.OutageType == OutageTypeForced && e.NatureOfWork == NatureOfWorkAmbientTemp
}

// HourlyEvent is a curtailment event expanded onto a single hour.
type HourlyEvent struct {
	MRID          string
	ResourceID    string
	ResourceName  string
	Hour          time.Time
	CurtailmentMW float64
	PmaxMW        float64
	OutageType    string
	NatureOfWork  string
}

// ResourceAssignment pairs a resource with its unit type and nearest weather station.
type ResourceAssignment struct {
	ResourceID string
	UnitType   string
	StationID  string
}

// HourlyObservation is one resource-hour of the merged curtailment and weather
// dataset. After imputation there is exactly one per (ResourceID, Hour).
type HourlyObservation struct {
	ResourceID    string
	ResourceName  string
	UnitType      string
	StationID     string
	Hour          time.Time
	CurtailmentMW float64
	PmaxMW        float64
	OutageType    string
	NatureOfWork  string
	Imputed       bool

	DryBulbC    float64
	DewPointC   float64
	PressureKPa float64
}

// PercentCurtailment returns curtailment as a fraction of pmax. The second
// return value is false when pmax is not positive or either value is missing.
func (o HourlyObservation) PercentCurtailment() (float64, bool) {
	if !(o.PmaxMW > 0) || math.IsNaN(o.CurtailmentMW) {
		return math.NaN(), false
	}
	return o.CurtailmentMW / o.PmaxMW, true
}

// IsAmbientForced reports whether the observation is a forced outage attributed
// to ambient temperature.
func (o HourlyObservation) IsAmbientForced() bool {
	return o.OutageType == OutageTypeForced && o.NatureOfWork == NatureOfWorkAmbientTemp
}

// OutageRate summarizes a resource's forced outages over one calendar month.
type OutageRate struct {
	ResourceID           string
	Month                time.Time
	CapacityMW           float64
	OutageHours          float64
	SumCurtailmentMW     float64
	OutageMWh            float64
	TimeWeightedMW       float64
	ForcedOutageRateTime float64
	ForcedOutageRateMWh  float64
}
