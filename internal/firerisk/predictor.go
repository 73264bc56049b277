package firerisk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrPrediction is returned when the prediction service fails or is not configured.
var ErrPrediction = errors.New("prediction failed")

// Predictor computes fire risk for a coordinate pair.
type Predictor interface {
	ComputeNow(ctx context.Context, c Coordinates, obsDelta time.Duration) (*Prediction, error)
	ComputePeriod(ctx context.Context, c Coordinates, start, end time.Time) (*Prediction, error)
}

type computeNowRequest struct {
	Coordinates
	ObsDeltaSeconds int64 `json:"obs_delta_seconds"`
}

type computePeriodRequest struct {
	Coordinates
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// HTTPPredictor calls the external prediction service over JSON.
type HTTPPredictor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPPredictor creates a predictor for the service at baseURL.
func NewHTTPPredictor(baseURL string, httpClient *http.Client) *HTTPPredictor {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPPredictor{baseURL: strings.TrimRight(baseURL, "/"), httpClient: httpClient}
}

// ComputeNow requests a prediction from current weather with obsDelta of observations.
func (p *HTTPPredictor) ComputeNow(ctx context.Context, c Coordinates, obsDelta time.Duration) (*Prediction, error) {
	return p.post(ctx, "/compute/now", computeNowRequest{
		Coordinates:     c,
		ObsDeltaSeconds: int64(obsDelta / time.Second),
	})
}

// ComputePeriod requests a prediction over [start, end].
func (p *HTTPPredictor) ComputePeriod(ctx context.Context, c Coordinates, start, end time.Time) (*Prediction, error) {
	return p.post(ctx, "/compute/period", computePeriodRequest{
		Coordinates: c,
		Start:       start.UTC(),
		End:         end.UTC(),
	})
}

func (p *HTTPPredictor) post(ctx context.Context, path string, body any) (*Prediction, error) {
	if p.baseURL == "" {
		return nil, fmt.Errorf("%w: prediction service not configured", ErrPrediction)
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding prediction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("building prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPrediction, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrPrediction, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var pred Prediction
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&pred); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrPrediction, err)
	}
	if pred.FireRisks == nil {
		pred.FireRisks = []RiskPoint{}
	}
	return &pred, nil
}
