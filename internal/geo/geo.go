package geo

import (
	"math"

	ierr "github.com/shenikar/relief_locator/internal/errors"
)

// EarthRadiusKm - средний радиус Земли (IUGG).
const EarthRadiusKm = 6371.0088

// Coordinate - точка WGS-84 в десятичных градусах.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return ierr.NewError("latitude out of range").
			WithHintf("latitude must be between -90 and 90, got %v", c.Latitude).
			Mark(ierr.ErrValidation)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return ierr.NewError("longitude out of range").
			WithHintf("longitude must be between -180 and 180, got %v", c.Longitude).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// DistanceKm возвращает расстояние по большому кругу между a и b (формула
// гаверсинуса). Результат симметричен и равен нулю для совпадающих точек.
func DistanceKm(a, b Coordinate) float64 {
	phi1 := radians(a.Latitude)
	phi2 := radians(b.Latitude)
	dPhi := phi2 - phi1
	dLambda := radians(b.Longitude) - radians(a.Longitude)

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	h := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda

	// rounding can push h just outside [0,1] near antipodes
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// RoundKm округляет расстояние до сотых. Только для отображения.
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
