package weather

import "math"

// RelativeHumidity derives relative humidity (percent) from dry bulb and dew
// point temperatures in Celsius using the Magnus approximation.
func RelativeHumidity(dryBulbC, dewPointC float64) float64 {
	const b, c = 17.625, 243.04

	rh := 100 * math.Exp(b*dewPointC/(c+dewPointC)) / math.Exp(b*dryBulbC/(c+dryBulbC))
	if rh > 100 {
		return 100
	}
	if rh < 0 {
		return 0
	}
	return rh
}

// WetBulbTemperature estimates the wet bulb temperature in Celsius with
// Stull's (2011) empirical fit, rounded to 0.1 degree. The fit is valid for
// RH between 5% and 99%; saturated air returns the dry bulb temperature and
// very dry air is evaluated at the 5% edge of the fit.
func WetBulbTemperature(dryBulbC, dewPointC float64) float64 {
	rh := RelativeHumidity(dryBulbC, dewPointC)
	if rh >= 99 {
		return dryBulbC
	}
	if rh < 5 {
		rh = 5
	}

	t := dryBulbC
	tw := t*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(t+rh) -
		math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035

	// wet bulb can never exceed dry bulb
	if tw > t {
		tw = t
	}
	return math.Round(tw*10) / 10
}
