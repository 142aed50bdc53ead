package forecast

import (
	"errors"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

func sample(station string, ts time.Time, temperature float64) types.TemperatureSample {
	return types.TemperatureSample{StationID: station, Timestamp: ts, TemperatureC: temperature}
}

// series returns hourly samples for the given days, with each day's
// temperature constant at temps[d].
func series(station string, from time.Time, temps []float64) []types.TemperatureSample {
	var out []types.TemperatureSample
	for d, temp := range temps {
		for h := 0; h < 24; h++ {
			out = append(out, sample(station, from.AddDate(0, 0, d).Add(time.Duration(h)*time.Hour), temp))
		}
	}
	return out
}

func TestDerateClamp(t *testing.T) {
	p := types.DerateParameters{Slope: -0.0011, Intercept: 1.02, RatedTemperature: math.NaN()}

	tests := []struct {
		name        string
		temperature float64
		expected    float64
	}{
		{name: "cold clamps to one", temperature: -40, expected: 1},
		{name: "mid range", temperature: 30, expected: 1.02 - 0.033},
		{name: "absurd heat clamps to zero", temperature: 2000, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derate(p, tt.temperature)
			if math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
			if got < 0 || got > 1 {
				t.Errorf("derate %v outside [0, 1]", got)
			}
		})
	}
}

func TestRatedTemperature(t *testing.T) {
	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	s := series("KSAC", jan1, []float64{4, 1.5, 3})
	// a colder day in the following year does not count
	s = append(s, series("KSAC", jan1.AddDate(1, 0, 0), []float64{-8})...)
	// a day with a warm afternoon averages out above 1.5
	s = append(s, sample("KSAC", jan1.AddDate(0, 5, 0), -2), sample("KSAC", jan1.AddDate(0, 5, 0).Add(12*time.Hour), 10))
	s = append(s, sample("KSAC", jan1.AddDate(0, 6, 0), math.NaN()))

	rated, err := RatedTemperature(s)
	if err != nil {
		t.Fatalf("RatedTemperature: %v", err)
	}
	if rated != 1.5 {
		t.Errorf("expected rated temperature 1.5, got %v", rated)
	}

	if _, err := RatedTemperature(nil); err == nil {
		t.Errorf("expected an error for an empty series")
	}
}

func TestCalibratePinsRatedTemperature(t *testing.T) {
	f := NewForecaster(map[string]float64{"combined_cycle": -0.0011, "combustion_turbine": -0.0014}, nil)

	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := f.Calibrate("KFAT", series("KFAT", jan1, []float64{8, 2.125, 6})); err != nil {
		t.Fatalf("Calibrate: %v", err)
	}

	for _, unitType := range f.UnitTypes() {
		p, err := f.Parameters(unitType, "KFAT")
		if err != nil {
			t.Fatalf("Parameters(%s): %v", unitType, err)
		}
		if p.RatedTemperature != 2.125 {
			t.Errorf("%s: expected rated temperature 2.125, got %v", unitType, p.RatedTemperature)
		}
		if got := Derate(p, p.RatedTemperature); math.Abs(got-1) > 1e-12 {
			t.Errorf("%s: expected derate 1.0 at rated temperature, got %v", unitType, got)
		}
		if got := Derate(p, 40); got >= 1 {
			t.Errorf("%s: expected derate below 1.0 at 40C, got %v", unitType, got)
		}
	}
}

func TestDerateIsOneAtRatedTemperature(t *testing.T) {
	rng := rand.New(rand.NewPCG(2024, 7))

	for i := 0; i < 100000; i++ {
		p := types.DerateParameters{
			Slope:            -0.01 + 0.02*rng.Float64(),
			RatedTemperature: -40 + 90*rng.Float64(),
		}
		p.Intercept = 1 - p.Slope*p.RatedTemperature
		if got := Derate(p, p.RatedTemperature); got != 1 {
			t.Fatalf("slope %v rated %v: derate %v at rated temperature", p.Slope, p.RatedTemperature, got)
		}
	}

	// the pair that misses 1.0 when evaluated through the stored intercept
	p := types.DerateParameters{Slope: 0.0020470830177127283, RatedTemperature: -20.252287565884576}
	p.Intercept = 1 - p.Slope*p.RatedTemperature
	if got := Derate(p, p.RatedTemperature); got != 1 {
		t.Errorf("expected exactly 1.0, got %v", got)
	}
}

func TestCalibrateIsOneAtRatedTemperature(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	jan1 := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 200; i++ {
		slope := -0.01 + 0.02*rng.Float64()
		f := NewForecaster(map[string]float64{"steam": slope}, nil)
		temps := []float64{-30 + 60*rng.Float64(), -30 + 60*rng.Float64(), -30 + 60*rng.Float64()}
		if err := f.Calibrate("KSAC", series("KSAC", jan1, temps)); err != nil {
			t.Fatalf("Calibrate: %v", err)
		}
		p, err := f.Parameters("steam", "KSAC")
		if err != nil {
			t.Fatalf("Parameters: %v", err)
		}
		if got := Derate(p, p.RatedTemperature); got != 1 {
			t.Fatalf("slope %v rated %v: derate %v at rated temperature", slope, p.RatedTemperature, got)
		}
	}
}

func TestParametersErrors(t *testing.T) {
	f := NewForecaster(map[string]float64{"steam": -0.001}, nil)

	_, err := f.Parameters("hydro", "KSAC")
	var ce *types.ConfigurationError
	if !errors.As(err, &ce) {
		t.Errorf("expected ConfigurationError for unknown unit type, got %v", err)
	}

	if _, err := f.Parameters("steam", "KSAC"); err == nil || errors.As(err, &ce) {
		t.Errorf("expected a calibration error for an uncalibrated station, got %v", err)
	}

	f.SetParameters(types.DerateParameters{UnitType: "steam", StationID: "KSAC", Slope: -0.001, Intercept: 1, RatedTemperature: math.NaN()})
	if _, err := f.Parameters("steam", "KSAC"); err != nil {
		t.Errorf("expected explicit parameters to be used, got %v", err)
	}
}

func TestProfile(t *testing.T) {
	f := NewForecaster(map[string]float64{"combined_cycle": -0.01}, nil)
	f.SetParameters(types.DerateParameters{UnitType: "combined_cycle", StationID: "KSAC", Slope: -0.01, Intercept: 1.1, RatedTemperature: math.NaN()})

	jan1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	input := []types.TemperatureSample{
		sample("KSAC", jan1.Add(2*time.Hour), 20),
		sample("KSAC", jan1, 0),
		sample("KSAC", jan1.Add(time.Hour), 10),
		sample("KSAC", time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC), 30),
		sample("KSAC", jan1.Add(-time.Hour), 15),
		sample("KSJC", jan1, 15),
	}
	snapshot := append([]types.TemperatureSample(nil), input...)

	profile, err := f.Profile("combined_cycle", "KSAC", 2023, input)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}

	expected := []types.ProfilePoint{
		{Hour: 1, Factor: 1},
		{Hour: 2, Factor: 1},
		{Hour: 3, Factor: 0.9},
		{Hour: 8760, Factor: 0.8},
	}
	if len(profile.Points) != len(expected) {
		t.Fatalf("expected %d points, got %d", len(expected), len(profile.Points))
	}
	for i, pt := range profile.Points {
		if pt.Hour != expected[i].Hour || math.Abs(pt.Factor-expected[i].Factor) > 1e-12 {
			t.Errorf("point %d: expected %+v, got %+v", i, expected[i], pt)
		}
	}

	if !reflect.DeepEqual(input, snapshot) {
		t.Errorf("Profile modified its input series")
	}

	again, _ := f.Profile("combined_cycle", "KSAC", 2023, input)
	if !reflect.DeepEqual(profile, again) {
		t.Errorf("Profile is not deterministic")
	}

	rows := profile.Rows()
	if rows[0].WeatherName != "combined_cycle KSAC" || rows[0].RandomizeProfile {
		t.Errorf("unexpected profile row %+v", rows[0])
	}
	if profile.FileStem() != "combined_cycle-KSAC_2023" {
		t.Errorf("unexpected file stem %q", profile.FileStem())
	}
}

func TestSlopesFromModels(t *testing.T) {
	models := []types.RegressionModel{
		{Scope: types.ScopeUnitType, ScopeID: "combined_cycle", Slope: 0.0011},
		{Scope: types.ScopeUnitType, ScopeID: "steam", Slope: math.NaN()},
		{Scope: types.ScopeResource, ScopeID: "R1", Slope: 0.5},
	}

	slopes := SlopesFromModels(models)
	if len(slopes) != 1 || slopes["combined_cycle"] != -0.0011 {
		t.Errorf("expected only the negated combined_cycle slope, got %v", slopes)
	}
}
