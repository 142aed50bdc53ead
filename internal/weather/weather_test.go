package weather

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
)

func TestParseTemperature(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		expected  float64
		missing   bool
		malformed bool
	}{
		{name: "positive", token: "+0256,1", expected: 25.6},
		{name: "negative", token: "-0032,5", expected: -3.2},
		{name: "quality code A", token: "+0100,A", expected: 10.0},
		{name: "quality code M", token: "+0000,M", expected: 0.0},
		{name: "sentinel", token: "+9999,9", missing: true},
		{name: "rejected quality code", token: "+0256,2", malformed: true},
		{name: "three digits", token: "+256,1", malformed: true},
		{name: "no sign", token: "0256,1", malformed: true},
		{name: "empty", token: "", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseTemperature("TMP", tt.token)

			switch {
			case tt.missing:
				if !errors.Is(err, ErrMissing) {
					t.Fatalf("expected ErrMissing, got %v", err)
				}
			case tt.malformed:
				var pe *types.ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("expected ParseError, got %v", err)
				}
				if !math.IsNaN(v) {
					t.Errorf("expected NaN for malformed token, got %v", v)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if math.Abs(v-tt.expected) > 1e-9 {
					t.Errorf("expected %.2f, got %.2f", tt.expected, v)
				}
			}
		})
	}
}

func TestParsePressure(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		expected  float64
		missing   bool
		malformed bool
	}{
		{name: "typical", token: "10132,1,10098,1", expected: 101.0},
		{name: "rounds to tenth", token: "10132,1,09876,5", expected: 98.8},
		{name: "alphanumeric first quality", token: "10132,A,10098,9", expected: 101.0},
		{name: "sentinel", token: "99999,9,99999,9", missing: true},
		{name: "rejected second quality", token: "10132,1,10098,A", malformed: true},
		{name: "single group", token: "10132,1", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParsePressure(tt.token)

			switch {
			case tt.missing:
				if !errors.Is(err, ErrMissing) {
					t.Fatalf("expected ErrMissing, got %v", err)
				}
			case tt.malformed:
				var pe *types.ParseError
				if !errors.As(err, &pe) {
					t.Fatalf("expected ParseError, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if math.Abs(v-tt.expected) > 1e-9 {
					t.Errorf("expected %.2f, got %.2f", tt.expected, v)
				}
			}
		})
	}
}

func TestReduce(t *testing.T) {
	base := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	quality := types.NewQualityReport()
	j := NewJoiner(nil, quality)

	rows := []types.RawWeatherRow{
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(5 * time.Minute), TMP: "+0200,1", DEW: "+0100,1", MA1: "10132,1,10100,1"},
		// later reading in the same hour wins
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(56 * time.Minute), TMP: "+0210,1", DEW: "+0100,1", MA1: "10132,1,10100,1"},
		// incomplete reading in the same hour is dropped before reduction
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(58 * time.Minute), TMP: "+9999,9", DEW: "+0100,1", MA1: "10132,1,10100,1"},
		// unknown call sign is resolved from the station id
		{Station: "72494023234", CallSign: "99999", Timestamp: base.Add(time.Hour), TMP: "+0220,1", DEW: "+0100,1", MA1: "10132,1,10100,1"},
		// malformed pressure
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(2 * time.Hour), TMP: "+0220,1", DEW: "+0100,1", MA1: "garbage"},
		{Station: "72290023188", CallSign: "KSAN ", Timestamp: base, TMP: "+0250,1", DEW: "+0150,1", MA1: "10132,1,10110,1"},
	}

	readings := j.Reduce(rows)

	if len(readings) != 3 {
		t.Fatalf("expected 3 readings, got %d: %+v", len(readings), readings)
	}

	// sorted by station then hour
	if readings[0].StationID != "KSAN" {
		t.Errorf("expected first station KSAN, got %q", readings[0].StationID)
	}
	if readings[1].StationID != "KSFO" || !readings[1].Hour.Equal(base) {
		t.Errorf("unexpected second reading %+v", readings[1])
	}
	if readings[1].DryBulbC != 21.0 {
		t.Errorf("expected the latest reading of the hour (21.0C), got %.1f", readings[1].DryBulbC)
	}
	if readings[2].StationID != "KSFO" || !readings[2].Hour.Equal(base.Add(time.Hour)) {
		t.Errorf("expected backfilled KSFO call sign, got %+v", readings[2])
	}

	if got := quality.Count("weather: malformed MA1"); got != 1 {
		t.Errorf("expected 1 malformed MA1, got %d", got)
	}
	if got := quality.Count("weather: incomplete reading"); got != 2 {
		t.Errorf("expected 2 incomplete readings, got %d", got)
	}
}

func TestReduceMatchesInstantsAcrossLocations(t *testing.T) {
	base := time.Date(2024, 7, 1, 14, 0, 0, 0, time.UTC)
	pacific := time.FixedZone("PST", -8*3600)

	rows := []types.RawWeatherRow{
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(5 * time.Minute), TMP: "+0200,1", DEW: "+0100,1", MA1: "10132,1,10100,1"},
		{Station: "72494023234", CallSign: "KSFO", Timestamp: base.Add(50 * time.Minute).In(pacific), TMP: "+0230,1", DEW: "+0100,1", MA1: "10132,1,10100,1"},
	}

	readings := NewJoiner(nil, types.NewQualityReport()).Reduce(rows)
	if len(readings) != 1 {
		t.Fatalf("expected one reading for the hour, got %d: %+v", len(readings), readings)
	}
	if readings[0].DryBulbC != 23.0 {
		t.Errorf("expected the later row to win, got %.1f", readings[0].DryBulbC)
	}
}

func TestWetBulbTemperature(t *testing.T) {
	tests := []struct {
		name     string
		dryBulb  float64
		dewPoint float64
		expected float64
		epsilon  float64
	}{
		// Stull (2011) reports 13.7C for 20C at 50% RH
		{name: "stull reference", dryBulb: 20, dewPoint: 9.3, expected: 13.7, epsilon: 0.3},
		{name: "saturated", dryBulb: 15, dewPoint: 15, expected: 15, epsilon: 1e-9},
		{name: "hot and dry", dryBulb: 40, dewPoint: 5, expected: 19.4, epsilon: 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WetBulbTemperature(tt.dryBulb, tt.dewPoint)
			if math.Abs(got-tt.expected) > tt.epsilon {
				t.Errorf("expected %.1f ± %.1f, got %.2f", tt.expected, tt.epsilon, got)
			}
			if got > tt.dryBulb {
				t.Errorf("wet bulb %.2f exceeds dry bulb %.2f", got, tt.dryBulb)
			}
		})
	}
}
