package geo

import (
	"math"
	"math/rand"
	"testing"

	ierr "github.com/shenikar/relief_locator/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCoordinate(r *rand.Rand) Coordinate {
	return Coordinate{
		Latitude:  r.Float64()*180 - 90,
		Longitude: r.Float64()*360 - 180,
	}
}

func TestDistanceKm_SymmetricAndZeroOnSelf(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a, b := randomCoordinate(r), randomCoordinate(r)

		assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a))
		assert.Equal(t, 0.0, DistanceKm(a, a))
		assert.GreaterOrEqual(t, DistanceKm(a, b), 0.0)
	}
}

func TestDistanceKm_KnownValues(t *testing.T) {
	resource := Coordinate{Latitude: 12.3000, Longitude: 76.6500}
	center := Coordinate{Latitude: 12.3051, Longitude: 76.6550}

	d := DistanceKm(center, resource)
	assert.InDelta(t, 0.785, d, 0.005)
	assert.Equal(t, 0.79, RoundKm(d))

	// one degree of longitude on the equator
	oneDegree := EarthRadiusKm * math.Pi / 180
	assert.InDelta(t, oneDegree, DistanceKm(Coordinate{0, 0}, Coordinate{0, 1}), 1e-9)
}

func TestDistanceKm_StableAtEdges(t *testing.T) {
	halfCircumference := math.Pi * EarthRadiusKm

	antipodal := DistanceKm(Coordinate{0, 0}, Coordinate{0, 180})
	assert.InDelta(t, halfCircumference, antipodal, 1e-6)
	assert.False(t, math.IsNaN(antipodal))

	poles := DistanceKm(Coordinate{90, 0}, Coordinate{-90, 0})
	assert.InDelta(t, halfCircumference, poles, 1e-6)

	// across the date line the short way round
	across := DistanceKm(Coordinate{0, 179.5}, Coordinate{0, -179.5})
	assert.InDelta(t, 2*math.Pi*EarthRadiusKm/360, across, 1e-6)

	// same pole, different longitudes
	assert.InDelta(t, 0, DistanceKm(Coordinate{90, 10}, Coordinate{90, -170}), 1e-9)
}

func TestCoordinateValidate(t *testing.T) {
	require.NoError(t, Coordinate{Latitude: -90, Longitude: 180}.Validate())
	require.NoError(t, Coordinate{Latitude: 0, Longitude: 0}.Validate())

	for _, c := range []Coordinate{
		{Latitude: 90.0001, Longitude: 0},
		{Latitude: 0, Longitude: -180.5},
		{Latitude: math.NaN(), Longitude: 0},
	} {
		err := c.Validate()
		require.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	}
}
