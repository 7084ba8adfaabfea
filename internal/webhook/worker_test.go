package webhook

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
	"github.com/shenikar/relief_locator/internal/config"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(cfg *config.Config) *WebhookWorker {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	return NewWebhookWorker(nil, logger, cfg, nil)
}

func testEvent() WebhookEvent {
	resource := &models.Resource{
		ID:                uuid.New(),
		Name:              "City Shelter",
		Type:              models.ResourceTypeShelter,
		Region:            "Mysuru",
		Capacity:          models.IntPtr(5),
		AvailableCapacity: models.IntPtr(0),
	}
	update := &models.CapacityUpdate{
		ID:               "01JABCDEF00000000000000000",
		ResourceID:       resource.ID,
		ActorID:          uuid.New(),
		PreviousCapacity: 2,
		NewCapacity:      0,
		ChangeLog:        models.DefaultChangeLog,
		Timestamp:        time.Now().UTC(),
	}
	return NewCapacityEvent(resource, update)
}

func TestNewCapacityEvent_CarriesDerivedStatus(t *testing.T) {
	event := testEvent()
	assert.Equal(t, EventCapacityUpdated, event.Type)
	assert.Equal(t, models.ResourceStatusFull, event.Status)
	assert.Equal(t, 2, event.PreviousCapacity)
	assert.Equal(t, 0, event.AvailableCapacity)
}

func TestProcessWebhookEvent_SignsPayload(t *testing.T) {
	var gotSignature string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(signatureHeader)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        server.URL,
		WebhookSecret:     "secret",
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
	})

	payload, err := json.Marshal(testEvent())
	require.NoError(t, err)

	ok := worker.processWebhookEvent(context.Background(), testEvent(), string(payload))
	require.True(t, ok)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, generateHMACSHA256(string(payload), "secret"), gotSignature)
}

func TestProcessWebhookEvent_RetriesUntilSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 3,
		WebhookBaseDelay:  time.Millisecond,
	})

	assert.True(t, worker.processWebhookEvent(context.Background(), testEvent(), "{}"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestProcessWebhookEvent_GivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 2,
		WebhookBaseDelay:  time.Millisecond,
	})

	assert.False(t, worker.processWebhookEvent(context.Background(), testEvent(), "{}"))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestProcessWebhookEvent_SkipsWithoutURL(t *testing.T) {
	worker := newTestWorker(&config.Config{WebhookTimeout: time.Second})
	assert.False(t, worker.processWebhookEvent(context.Background(), testEvent(), "{}"))
}

func TestProcessWebhookEvent_StopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	worker := newTestWorker(&config.Config{
		WebhookURL:        server.URL,
		WebhookTimeout:    time.Second,
		WebhookMaxRetries: 5,
		WebhookBaseDelay:  time.Hour,
	})

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	assert.False(t, worker.processWebhookEvent(ctx, testEvent(), "{}"))
	assert.Less(t, time.Since(start), 5*time.Second)
}
