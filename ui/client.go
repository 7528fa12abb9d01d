package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
)

// DefaultTimeout is the single timeout applied to every prediction call.
const DefaultTimeout = 10 * time.Second

// ErrUnavailable marks transport failures (refused, timeout, DNS).
var ErrUnavailable = errors.New("prediction service is not available")

// ClassProbability is one entry of the API's probabilities object.
type ClassProbability struct {
	Class string
	Value float64
}

// Outcome is the parsed API response. For non-200 responses only
// StatusCode and RawBody are set.
type Outcome struct {
	StatusCode    int
	RawBody       string
	Prediction    string
	Confidence    *float64
	Probabilities []ClassProbability
}

// Client posts feature vectors to the prediction endpoint.
type Client struct {
	url  string
	http *http.Client
}

// NewClient creates a client for url. timeout <= 0 uses DefaultTimeout.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

// URL returns the configured endpoint.
func (c *Client) URL() string { return c.url }

// Predict sends {"features": [...]} and parses the reply. Transport errors
// wrap ErrUnavailable; HTTP error statuses are not Go errors.
func (c *Client) Predict(ctx context.Context, features []float64) (*Outcome, error) {
	if features == nil {
		features = []float64{}
	}
	body, err := json.Marshal(map[string][]float64{"features": features})
	if err != nil {
		return nil, errors.Wrap(err, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "%v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(ErrUnavailable, "read response: %v", err)
	}

	out := &Outcome{StatusCode: resp.StatusCode, RawBody: string(raw)}
	if resp.StatusCode != http.StatusOK {
		return out, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, errors.Newf("invalid JSON from prediction service: %q", raw)
	}

	parsed := gjson.ParseBytes(raw)
	pred := parsed.Get("prediction")
	if !pred.Exists() {
		return nil, errors.Newf("prediction missing from response: %q", raw)
	}
	out.Prediction = pred.String()

	if p := parsed.Get("predicted_probability"); p.Exists() {
		v := p.Float()
		out.Confidence = &v
	}
	parsed.Get("probabilities").ForEach(func(key, value gjson.Result) bool {
		out.Probabilities = append(out.Probabilities, ClassProbability{Class: key.String(), Value: value.Float()})
		return true
	})
	return out, nil
}
