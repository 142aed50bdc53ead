package database

import (
	"math"
	"testing"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

func TestNullable(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		null bool
	}{
		{"finite", 0.25, false},
		{"zero", 0, false},
		{"nan", math.NaN(), true},
		{"positive infinity", math.Inf(1), true},
		{"negative infinity", math.Inf(-1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nullable(tt.in)
			if (got == nil) != tt.null {
				t.Fatalf("nullable(%v) = %v, want null=%v", tt.in, got, tt.null)
			}
			if got != nil && *got != tt.in {
				t.Errorf("nullable(%v) = %v", tt.in, *got)
			}
		})
	}
}

func TestNewModelRecords(t *testing.T) {
	models := []types.RegressionModel{
		{
			Scope: types.ScopeUnitType, ScopeID: "combined_cycle", Mode: types.FitModeFixedEffects,
			Slope: 0.002, Intercept: 0.05, RSquared: 0.7, Correlation: math.NaN(), Covariance: math.NaN(),
			EntityKind:       "resource",
			EntityIntercepts: map[string]float64{"R2": 0.04, "R1": 0.06},
			Samples:          30,
		},
		types.NewDegenerateModel(types.ScopeResource, "R9"),
	}

	records, intercepts := NewModelRecords("run-1", models)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Slope == nil || *records[0].Slope != 0.002 || records[0].Correlation != nil {
		t.Errorf("unexpected fixed effects record %+v", records[0])
	}
	if records[1].Slope != nil || records[1].Scope != "resource" || records[1].ScopeID != "R9" {
		t.Errorf("expected a NULL slope for the degenerate model, got %+v", records[1])
	}

	if len(intercepts) != 2 {
		t.Fatalf("expected 2 intercepts, got %+v", intercepts)
	}
	if intercepts[0].EntityID != "R1" || *intercepts[0].Intercept != 0.06 || intercepts[0].UnitType != "combined_cycle" {
		t.Errorf("intercepts are not in entity order: %+v", intercepts)
	}
	for _, r := range intercepts {
		if r.RunID != "run-1" || r.Kind != "resource" {
			t.Errorf("unexpected intercept record %+v", r)
		}
	}
}

func TestNewOutageRateRecords(t *testing.T) {
	month := time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC)
	records := NewOutageRateRecords("run-1", []types.OutageRate{{
		ResourceID: "R1", Month: month, CapacityMW: math.NaN(),
		OutageHours: 10, OutageMWh: 150, TimeWeightedMW: 15,
		ForcedOutageRateTime: 10.0 / 744, ForcedOutageRateMWh: math.NaN(),
	}})

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.CapacityMW != nil || r.ForcedOutageRateMWh != nil {
		t.Errorf("expected undefined rates to be NULL, got %+v", r)
	}
	if r.ForcedOutageRateTime == nil || *r.ForcedOutageRateTime != 10.0/744 || !r.Month.Equal(month) {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestNewProfileRecords(t *testing.T) {
	profiles := []types.DerateProfile{
		{UnitType: "combined_cycle", StationID: "KSAC", Year: 2024, Points: []types.ProfilePoint{{Hour: 1, Factor: 1}, {Hour: 2, Factor: 0.98}}},
		{UnitType: "combined_cycle", StationID: "KFAT", Year: 2024},
	}
	records := NewProfileRecords("run-1", profiles)
	if len(records) != 2 {
		t.Fatalf("expected one record per hour, got %d", len(records))
	}
	if records[1].Hour != 2 || records[1].Factor != 0.98 || records[1].StationID != "KSAC" {
		t.Errorf("unexpected record %+v", records[1])
	}
}
