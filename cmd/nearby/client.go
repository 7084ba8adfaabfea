package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	v1 "github.com/shenikar/relief_locator/internal/handler/http/v1"
	"github.com/shenikar/relief_locator/internal/service"
	"github.com/sirupsen/logrus"
)

// apiClient talks to the public search endpoint. Only idempotent GETs go
// through it, so transport errors and 5xx answers are retried.
type apiClient struct {
	baseURL string
	http    *retryablehttp.Client
}

func newAPIClient(baseURL string, timeout time.Duration, retries int, log *logrus.Logger) *apiClient {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 200 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = timeout
	client.Logger = leveledLogrus{log.WithField("component", "api_client")}
	// hand the last response back so the error envelope can be decoded
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    client,
	}
}

// apiError is a non-2xx answer decoded from the error envelope.
type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.Status, e.Code, e.Message)
}

func (c *apiClient) nearby(ctx context.Context, q service.NearbyQuery) (*v1.NearbyResponse, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(q.Center.Latitude, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(q.Center.Longitude, 'f', -1, 64))
	if q.MaxDistanceKm > 0 {
		params.Set("max_distance", strconv.FormatFloat(q.MaxDistanceKm, 'f', -1, 64))
	}
	if q.Filters.Type != "" {
		params.Set("type", string(q.Filters.Type))
	}
	if q.Filters.Status != "" {
		params.Set("status", string(q.Filters.Status))
	}
	if q.Filters.SearchText != "" {
		params.Set("search", q.Filters.SearchText)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/resources/nearby?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope v1.ErrorResponse
		if jsonErr := json.Unmarshal(body, &envelope); jsonErr != nil || envelope.Error.Code == "" {
			return nil, &apiError{Status: resp.StatusCode, Code: "unexpected_response", Message: strings.TrimSpace(string(body))}
		}
		return nil, &apiError{Status: resp.StatusCode, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	var out v1.NearbyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// leveledLogrus adapts logrus to retryablehttp.LeveledLogger.
type leveledLogrus struct {
	entry *logrus.Entry
}

func (l leveledLogrus) Error(msg string, kv ...interface{}) { l.with(kv).Error(msg) }
func (l leveledLogrus) Info(msg string, kv ...interface{}) { l.with(kv).Info(msg) }
func (l leveledLogrus) Debug(msg string, kv ...interface{}) { l.with(kv).Debug(msg) }
func (l leveledLogrus) Warn(msg string, kv ...interface{}) { l.with(kv).Warn(msg) }

func (l leveledLogrus) with(kv []interface{}) *logrus.Entry {
	fields := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return l.entry.WithFields(fields)
}
