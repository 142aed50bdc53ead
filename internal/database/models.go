package database

import (
	"math"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

// RunRecord identifies one modelling run
type RunRecord struct {
	RunID     string    `gorm:"primaryKey;column:run_id" json:"run_id"`
	Command   string    `gorm:"column:command;not null" json:"command"`
	CreatedAt time.Time `gorm:"column:created_at;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for RunRecord
func (RunRecord) TableName() string {
	return "derate_runs"
}

// ModelRecord is a fitted regression model. Undefined parameters are NULL.
type ModelRecord struct {
	ID                 int      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RunID              string   `gorm:"column:run_id;index;not null" json:"run_id"`
	Scope              string   `gorm:"column:scope;not null" json:"scope"`
	ScopeID            string   `gorm:"column:scope_id;not null" json:"scope_id"`
	UnitType           string   `gorm:"column:unit_type" json:"unit_type"`
	Predictor          string   `gorm:"column:predictor" json:"predictor"`
	Mode               string   `gorm:"column:mode" json:"mode"`
	Slope              *float64 `gorm:"column:slope" json:"slope"`
	Intercept          *float64 `gorm:"column:intercept" json:"intercept"`
	RSquared           *float64 `gorm:"column:rsquared" json:"rsquared"`
	Correlation        *float64 `gorm:"column:correlation" json:"correlation"`
	Covariance         *float64 `gorm:"column:covariance" json:"covariance"`
	Samples            int      `gorm:"column:samples" json:"samples"`
	Observations       int      `gorm:"column:observations" json:"observations"`
	EntityKind         string   `gorm:"column:entity_kind" json:"entity_kind"`
	MaximumCurtailment float64  `gorm:"column:maximum_curtailment" json:"maximum_curtailment"`
	MinimumRSquared    float64  `gorm:"column:minimum_rsquared" json:"minimum_rsquared"`
	TargetCurtailment  float64  `gorm:"column:target_curtailment" json:"target_curtailment"`
}

// TableName specifies the table name for ModelRecord
func (ModelRecord) TableName() string {
	return "regression_models"
}

// EntityInterceptRecord is one fixed effect of a multilinear unit type model
type EntityInterceptRecord struct {
	ID        int      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RunID     string   `gorm:"column:run_id;index;not null" json:"run_id"`
	UnitType  string   `gorm:"column:unit_type;not null" json:"unit_type"`
	Kind      string   `gorm:"column:entity_kind" json:"entity_kind"`
	EntityID  string   `gorm:"column:entity_id;not null" json:"entity_id"`
	Intercept *float64 `gorm:"column:intercept" json:"intercept"`
}

// TableName specifies the table name for EntityInterceptRecord
func (EntityInterceptRecord) TableName() string {
	return "entity_intercepts"
}

// OutageRateRecord is a monthly forced outage rate
type OutageRateRecord struct {
	ID                   int       `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	RunID                string    `gorm:"column:run_id;index;not null" json:"run_id"`
	ResourceID           string    `gorm:"column:resource_id;not null" json:"resource_id"`
	Month                time.Time `gorm:"column:month;not null" json:"month"`
	CapacityMW           *float64  `gorm:"column:capacity_mw" json:"capacity_mw"`
	OutageHours          float64   `gorm:"column:outage_hours" json:"outage_hours"`
	SumCurtailmentMW     float64   `gorm:"column:sum_curtailment_mw" json:"sum_curtailment_mw"`
	OutageMWh            float64   `gorm:"column:outage_mwh" json:"outage_mwh"`
	TimeWeightedMW       *float64  `gorm:"column:time_weighted_mw" json:"time_weighted_mw"`
	ForcedOutageRateTime *float64  `gorm:"column:forced_outage_rate_time" json:"forced_outage_rate_time"`
	ForcedOutageRateMWh  *float64  `gorm:"column:forced_outage_rate_mwh" json:"forced_outage_rate_mwh"`
}

// TableName specifies the table name for OutageRateRecord
func (OutageRateRecord) TableName() string {
	return "outage_rates"
}

// ProfileRecord is one hour of a derate profile
type ProfileRecord struct {
	RunID     string  `gorm:"primaryKey;column:run_id" json:"run_id"`
	UnitType  string  `gorm:"primaryKey;column:unit_type" json:"unit_type"`
	StationID string  `gorm:"primaryKey;column:station_id" json:"station_id"`
	Year      int     `gorm:"primaryKey;column:year" json:"year"`
	Hour      int     `gorm:"primaryKey;column:hour" json:"hour"`
	Factor    float64 `gorm:"column:factor" json:"factor"`
}

// TableName specifies the table name for ProfileRecord
func (ProfileRecord) TableName() string {
	return "derate_profiles"
}

// NewModelRecords converts models, and their fixed effects, to records
func NewModelRecords(runID string, models []types.RegressionModel) ([]ModelRecord, []EntityInterceptRecord) {
	records := make([]ModelRecord, 0, len(models))
	var intercepts []EntityInterceptRecord

	for _, m := range models {
		records = append(records, ModelRecord{
			RunID:              runID,
			Scope:              string(m.Scope),
			ScopeID:            m.ScopeID,
			UnitType:           m.UnitType,
			Predictor:          m.Predictor,
			Mode:               string(m.Mode),
			Slope:              nullable(m.Slope),
			Intercept:          nullable(m.Intercept),
			RSquared:           nullable(m.RSquared),
			Correlation:        nullable(m.Correlation),
			Covariance:         nullable(m.Covariance),
			Samples:            m.Samples,
			Observations:       m.Observations,
			EntityKind:         m.EntityKind,
			MaximumCurtailment: m.MaximumCurtailment,
			MinimumRSquared:    m.MinimumRSquared,
			TargetCurtailment:  m.TargetCurtailment,
		})
		for _, id := range m.EntityIDs() {
			intercepts = append(intercepts, EntityInterceptRecord{
				RunID:     runID,
				UnitType:  m.ScopeID,
				Kind:      m.EntityKind,
				EntityID:  id,
				Intercept: nullable(m.EntityIntercepts[id]),
			})
		}
	}
	return records, intercepts
}

// NewOutageRateRecords converts monthly outage rates to records
func NewOutageRateRecords(runID string, rates []types.OutageRate) []OutageRateRecord {
	records := make([]OutageRateRecord, len(rates))
	for i, r := range rates {
		records[i] = OutageRateRecord{
			RunID:                runID,
			ResourceID:           r.ResourceID,
			Month:                r.Month,
			CapacityMW:           nullable(r.CapacityMW),
			OutageHours:          r.OutageHours,
			SumCurtailmentMW:     r.SumCurtailmentMW,
			OutageMWh:            r.OutageMWh,
			TimeWeightedMW:       nullable(r.TimeWeightedMW),
			ForcedOutageRateTime: nullable(r.ForcedOutageRateTime),
			ForcedOutageRateMWh:  nullable(r.ForcedOutageRateMWh),
		}
	}
	return records
}

// NewProfileRecords flattens profiles to one record per hour
func NewProfileRecords(runID string, profiles []types.DerateProfile) []ProfileRecord {
	var records []ProfileRecord
	for _, p := range profiles {
		for _, pt := range p.Points {
			records = append(records, ProfileRecord{
				RunID:     runID,
				UnitType:  p.UnitType,
				StationID: p.StationID,
				Year:      p.Year,
				Hour:      pt.Hour,
				Factor:    pt.Factor,
			})
		}
	}
	return records
}

// nullable maps undefined values to NULL
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
