package source

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/chrissnell/ambientderate/internal/types"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Hourly mean outdoor temperature from a station weather table
const hourlyTemperatureQuery = `
	SELECT
		time_bucket('1 hour', time) AS hour,
		AVG(outtemp) AS temperature
	FROM weather
	WHERE stationname = $1
	  AND time >= $2
	  AND time < $3
	  AND outtemp IS NOT NULL
	GROUP BY hour
	ORDER BY hour
`

// TimescaleDBSource reads temperature series from a weather station database
type TimescaleDBSource struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// NewTimescaleDBSource connects to the database at connStr
func NewTimescaleDBSource(connStr string, logger *zap.SugaredLogger) (*TimescaleDBSource, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}

	return &TimescaleDBSource{db: db, logger: logger}, nil
}

// Close closes the database
func (s *TimescaleDBSource) Close() error {
	return s.db.Close()
}

// Temperatures returns the hourly mean temperature of station over
// [from, to), converted from °F to °C
func (s *TimescaleDBSource) Temperatures(ctx context.Context, station string, from, to time.Time) ([]types.TemperatureSample, error) {
	rows, err := s.db.QueryContext(ctx, hourlyTemperatureQuery, station, from, to)
	if err != nil {
		return nil, fmt.Errorf("error querying temperatures for %s: %w", station, err)
	}
	defer rows.Close()

	var samples []types.TemperatureSample
	for rows.Next() {
		var (
			hour time.Time
			temp float64
		)
		if err := rows.Scan(&hour, &temp); err != nil {
			return nil, fmt.Errorf("error scanning row: %w", err)
		}
		samples = append(samples, types.TemperatureSample{
			StationID:    station,
			Timestamp:    hour,
			TemperatureC: FahrenheitToCelsius(temp),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error reading temperatures for %s: %w", station, err)
	}

	s.logger.Infof("loaded %d hourly temperatures for %s from TimescaleDB", len(samples), station)
	return samples, nil
}

// FahrenheitToCelsius converts a weather station reading to °C
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}
