package source

import (
	"context"
	"math"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chrissnell/ambientderate/internal/storage"
	"github.com/chrissnell/ambientderate/internal/storage/csvsink"
	"github.com/chrissnell/ambientderate/internal/types"
	"go.uber.org/zap"
)

func TestCurtailments(t *testing.T) {
	pacific := time.FixedZone("PST", -8*3600)
	quality := types.NewQualityReport()
	loader := NewLoader(pacific, nil, quality)

	input := strings.Join([]string{
		"OUTAGE MRID,RESOURCE ID,RESOURCE NAME,OUTAGE TYPE,NATURE OF WORK,CURTAILMENT START DATE TIME,CURTAILMENT END DATE TIME,CURTAILMENT MW,RESOURCE PMAX MW,REPORT DATE",
		"M1,R1,Sutter,FORCED,AMBIENT_DUE_TO_TEMP,2023-07-01 14:30:00,2023-07-01 17:00:00,12,\"1,050\",2023-07-01",
		"M2, R2 ,Delta,PLANNED,TRANSMISSION,2023-07-01 08:00,,5,100,2023-07-01",
		"M3,R3,Bad,FORCED,AMBIENT_DUE_TO_TEMP,yesterday,2023-07-01 09:00:00,abc,,2023-07-01",
	}, "\n")

	rows, err := loader.Curtailments(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Curtailments: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	r1 := rows[0]
	wantStart := time.Date(2023, 7, 1, 14, 30, 0, 0, pacific)
	if !r1.Start.Equal(wantStart) || r1.End == nil || r1.End.Sub(r1.Start) != 150*time.Minute {
		t.Errorf("unexpected times for R1: %v - %v", r1.Start, r1.End)
	}
	if r1.PmaxMW != 1050 || r1.CurtailmentMW != 12 {
		t.Errorf("unexpected values for R1: %+v", r1)
	}
	if !r1.ReportDate.Equal(time.Date(2023, 7, 1, 0, 0, 0, 0, pacific)) {
		t.Errorf("unexpected report date %v", r1.ReportDate)
	}

	if rows[1].ResourceID != "R2" || rows[1].End != nil {
		t.Errorf("expected a trimmed id and an open end, got %+v", rows[1])
	}

	r3 := rows[2]
	if !r3.Start.IsZero() || !math.IsNaN(r3.CurtailmentMW) || !math.IsNaN(r3.PmaxMW) {
		t.Errorf("expected malformed cells to be left empty, got %+v", r3)
	}
	if got := quality.Count("source: malformed timestamp"); got != 1 {
		t.Errorf("expected 1 malformed timestamp, got %d", got)
	}
	if got := quality.Count("source: malformed number"); got != 1 {
		t.Errorf("expected 1 malformed number, got %d", got)
	}
}

func TestCurtailmentsMissingColumns(t *testing.T) {
	loader := NewLoader(nil, nil, nil)
	_, err := loader.Curtailments(strings.NewReader("OUTAGE MRID,RESOURCE ID\nM1,R1\n"))
	if err == nil || !strings.Contains(err.Error(), "CURTAILMENT MW") {
		t.Errorf("expected missing columns to be reported, got %v", err)
	}

	if _, err := loader.Curtailments(strings.NewReader("")); err == nil {
		t.Errorf("expected an empty file to be rejected")
	}
}

func TestWeather(t *testing.T) {
	quality := types.NewQualityReport()
	loader := NewLoader(time.FixedZone("PST", -8*3600), nil, quality)

	input := "\ufeffSTATION,DATE,CALL_SIGN,TMP,DEW,MA1\n" +
		"72483023232,2023-07-01T14:53:00,KSAC ,\"+0356,1\",\"+0094,1\",\"10132,1,10098,1\"\n" +
		"72483023232,,KSAC,\"+0356,1\",\"+0094,1\",\"10132,1,10098,1\"\n" +
		"72483023232,07/01/2023 15:53,99999,\"+0361,1\",\"+0090,1\",\n"

	rows, err := loader.Weather(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Weather: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Timestamp != time.Date(2023, 7, 1, 14, 53, 0, 0, time.UTC) {
		t.Errorf("ISD timestamps must be read as UTC, got %v", rows[0].Timestamp)
	}
	if rows[0].TMP != "+0356,1" || rows[0].CallSign != "KSAC" || rows[1].MA1 != "" {
		t.Errorf("unexpected tokens %+v", rows)
	}
	if got := quality.Count("weather: missing timestamp"); got != 1 {
		t.Errorf("expected 1 missing timestamp, got %d", got)
	}
}

func TestAssignments(t *testing.T) {
	quality := types.NewQualityReport()
	loader := NewLoader(nil, nil, quality)

	input := "ResourceID,UnitType,WeatherStationID,Dist\n" +
		"R1,combined_cycle,KSAC,4.2\n" +
		"R2,,KFAT,10\n" +
		"R3,combustion_turbine,KFAT,1.1\n"

	got, err := loader.Assignments(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	want := []types.ResourceAssignment{
		{ResourceID: "R1", UnitType: "combined_cycle", StationID: "KSAC"},
		{ResourceID: "R3", UnitType: "combustion_turbine", StationID: "KFAT"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d assignments, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("assignment %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if quality.Count("assignments: incomplete assignment") != 1 {
		t.Errorf("expected the incomplete row to be counted")
	}
}

func TestTemperatures(t *testing.T) {
	quality := types.NewQualityReport()
	loader := NewLoader(nil, nil, quality)

	input := "StationID,DateTime,Temp\n" +
		"KSAC,2024-01-01 00:00:00,7.5\n" +
		"KSAC,2024-01-01 01:00:00,\n" +
		"KSAC,2024-01-01T02:00:00Z,6.25\n"

	samples, err := loader.Temperatures(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Temperatures: %v", err)
	}
	if len(samples) != 2 || samples[1].TemperatureC != 6.25 {
		t.Errorf("unexpected samples %+v", samples)
	}
	if quality.Count("temperatures: incomplete sample") != 1 {
		t.Errorf("expected the blank temperature to be counted")
	}
}

func TestModelsReadWhatTheCSVSinkWrites(t *testing.T) {
	dir := t.TempDir()
	sink, err := csvsink.New(dir, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("csvsink.New: %v", err)
	}

	models := []types.RegressionModel{
		{Scope: types.ScopeUnitType, ScopeID: "combined_cycle", UnitType: "combined_cycle", Predictor: "dry_bulb",
			Mode: types.FitModePooled, Slope: 0.0011, Intercept: 0.02, RSquared: 0.64, Samples: 420, Observations: 500,
			Correlation: math.NaN(), Covariance: math.NaN(), MaximumCurtailment: 0.3, TargetCurtailment: 0.07},
		{Scope: types.ScopeUnitType, ScopeID: "steam", Mode: types.FitModePooled,
			Slope: math.NaN(), Intercept: math.NaN(), RSquared: math.NaN(), Correlation: math.NaN(), Covariance: math.NaN()},
	}
	if err := sink.Write(context.Background(), &storage.Results{RunID: "r", UnitTypeModels: models}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loader := NewLoader(nil, nil, nil)
	got, err := ReadFile(filepath.Join(dir, csvsink.UnitTypeModelsFile), loader.Models)
	if err != nil {
		t.Fatalf("Models: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 models, got %d", len(got))
	}

	m := got[0]
	if m.Scope != types.ScopeUnitType || m.ScopeID != "combined_cycle" || m.Mode != types.FitModePooled {
		t.Errorf("unexpected identity %+v", m)
	}
	if m.Slope != 0.0011 || m.Intercept != 0.02 || m.Samples != 420 || m.Observations != 500 || m.TargetCurtailment != 0.07 {
		t.Errorf("unexpected parameters %+v", m)
	}
	if !math.IsNaN(m.Correlation) || !got[1].Degenerate() {
		t.Errorf("expected undefined values to read back as NaN")
	}
}

func TestReadFileMissing(t *testing.T) {
	loader := NewLoader(nil, nil, nil)
	if _, err := ReadFile(filepath.Join(t.TempDir(), "nope.csv"), loader.Assignments); err == nil {
		t.Errorf("expected an error for a missing file")
	}
}

func TestFahrenheitToCelsius(t *testing.T) {
	tests := []struct {
		f, c float64
	}{
		{32, 0},
		{212, 100},
		{-40, -40},
		{98.6, 37},
	}
	for _, tt := range tests {
		if got := FahrenheitToCelsius(tt.f); math.Abs(got-tt.c) > 1e-9 {
			t.Errorf("FahrenheitToCelsius(%v) = %v, want %v", tt.f, got, tt.c)
		}
	}
}
