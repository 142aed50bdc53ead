// Package weather decodes ISD surface observations and reduces them to one
// reading per station-hour.
package weather

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/chrissnell/ambientderate/internal/types"
)

// ErrMissing is returned for well-formed tokens that carry the ISD missing
// value sentinel.
var ErrMissing = errors.New("missing value")

// Temperatures are signed, zero-padded tenths of a degree Celsius followed by
// a quality code. Codes 0,1,4,5,9,A,C,I and M are usable (ISD format document, p.11).
var temperatureToken = regexp.MustCompile(`^([+-]\d{4}),[01459ACIM]$`)

// The MA1 group is altimeter setting then station pressure, each in tenths of
// a hectopascal with its own quality code. Only station pressure is kept.
var pressureToken = regexp.MustCompile(`^\d{5},[0-9A-Za-z],(\d{5}),[01459]$`)

const (
	missingTemperature = 9999
	missingPressure    = 99999
)

// ParseTemperature decodes a TMP or DEW token to degrees Celsius.
func ParseTemperature(field, token string) (float64, error) {
	m := temperatureToken.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return math.NaN(), &types.ParseError{Field: field, Token: token}
	}

	tenths, err := strconv.Atoi(m[1])
	if err != nil {
		return math.NaN(), &types.ParseError{Field: field, Token: token}
	}
	if tenths == missingTemperature {
		return math.NaN(), ErrMissing
	}

	return float64(tenths) / 10, nil
}

// ParsePressure decodes an MA1 token to station pressure in kPa, rounded to
// 0.1 kPa.
func ParsePressure(token string) (float64, error) {
	m := pressureToken.FindStringSubmatch(strings.TrimSpace(token))
	if m == nil {
		return math.NaN(), &types.ParseError{Field: "MA1", Token: token}
	}

	raw, err := strconv.Atoi(m[1])
	if err != nil {
		return math.NaN(), &types.ParseError{Field: "MA1", Token: token}
	}
	if raw == missingPressure {
		return math.NaN(), ErrMissing
	}

	// tenths of hPa -> kPa is a factor of 100
	return math.Round(float64(raw)/10) / 10, nil
}
