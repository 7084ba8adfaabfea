package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/relief_locator/internal/geo"
	v1 "github.com/shenikar/relief_locator/internal/handler/http/v1"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func nearbyServer(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/resources/nearby", r.URL.Path)
		check(r)
		lat := r.URL.Query().Get("lat")
		assert.NotEmpty(t, lat)
		resp := v1.NearbyResponse{
			Latitude:      12.2958,
			Longitude:     76.6394,
			MaxDistanceKm: 10,
			Count:         1,
			Resources: []v1.NearbyResourceResponse{{
				ResourceResponse: v1.ResourceResponse{
					ID:                uuid.New(),
					Name:              "Town Hall Shelter",
					Type:              string(models.ResourceTypeShelter),
					Status:            string(models.ResourceStatusOpen),
					Capacity:          models.IntPtr(100),
					AvailableCapacity: models.IntPtr(40),
					Contact:           "+91 821 000",
					Address:           "Sayyaji Rao Rd",
				},
				DistanceKm: 0.79,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func queryFor(lat, lon float64) service.NearbyQuery {
	return service.NearbyQuery{Center: geo.Coordinate{Latitude: lat, Longitude: lon}}
}

func TestParseFlags_LatLonTogether(t *testing.T) {
	_, err := parseFlags([]string{"-lat", "12.3"})
	assert.Error(t, err)

	o, err := parseFlags([]string{"-lat", "0", "-lon", "0"})
	require.NoError(t, err)
	assert.True(t, o.hasPosition)

	o, err = parseFlags(nil)
	require.NoError(t, err)
	assert.False(t, o.hasPosition)
	assert.Equal(t, 12.2958, o.fallback.Latitude)
}

func TestRun_FallsBackWithoutPosition(t *testing.T) {
	srv := nearbyServer(t, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "12.2958", q.Get("lat"))
		assert.Equal(t, "76.6394", q.Get("lon"))
		assert.Equal(t, "shelter", q.Get("type"))
		_, hasMax := q["max_distance"]
		assert.False(t, hasMax)
	})
	defer srv.Close()

	o, err := parseFlags([]string{"-api", srv.URL + "/api/v1", "-type", "shelter", "-timeout", "2s", "-retries", "0"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), o, quietLogger(), &out))

	assert.Contains(t, out.String(), "[fallback (unsupported)]")
	assert.Contains(t, out.String(), "Town Hall Shelter")
	assert.Contains(t, out.String(), "40/100")
}

func TestRun_UsesGivenPosition(t *testing.T) {
	srv := nearbyServer(t, func(r *http.Request) {
		assert.Equal(t, "12.3", r.URL.Query().Get("lat"))
		assert.Equal(t, "76.65", r.URL.Query().Get("lon"))
		assert.Equal(t, "2.5", r.URL.Query().Get("max_distance"))
	})
	defer srv.Close()

	o, err := parseFlags([]string{"-api", srv.URL + "/api/v1", "-lat", "12.3", "-lon", "76.65", "-max", "2.5", "-timeout", "2s"})
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), o, quietLogger(), &out))
	assert.Contains(t, out.String(), "[detected]")
}

func TestAPIClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(v1.NearbyResponse{Count: 0})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL, time.Second, 2, quietLogger())

	resp, err := client.nearby(context.Background(), queryFor(1, 2))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Count)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAPIClient_DecodesErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(v1.ErrorResponse{Error: v1.ErrorBody{Code: "validation_error", Message: "Unknown resource type \"boat\""}})
	}))
	defer srv.Close()

	client := newAPIClient(srv.URL, time.Second, 0, quietLogger())
	_, err := client.nearby(context.Background(), queryFor(1, 2))

	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "validation_error", apiErr.Code)
}
