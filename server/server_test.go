package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/tree"
)

const (
	simpleExport   = "|--- feature1 <= 2.00\n|   |--- class: False\n|--- feature1 >  2.00\n|   |--- class: True\n"
	weightedExport = "|--- x <= 1.00\n|   |--- weights: [3, 1] class: 0\n|--- x >  1.00\n|   |--- weights: [0, 4] class: 1\n"
	otherExport    = "|--- x <= 2.00\n|   |--- weights: [1, 1] class: 0\n|--- x >  2.00\n|   |--- weights: [1, 3] class: 1\n"
)

func newTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	simple, err := tree.ParseString(simpleExport, tree.Bool)
	require.NoError(t, err)
	t1, err := tree.ParseString(weightedExport, tree.Int)
	require.NoError(t, err)
	t2, err := tree.ParseString(otherExport, tree.Int)
	require.NoError(t, err)
	f, err := forest.New([]*tree.Tree[int]{t1, t2})
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	s, err := New(map[string]Model{
		"simple": TreeModel(simple),
		"pair":   ForestModel(f),
	}, WithRegistry(registry), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func do(t *testing.T, method, url, body string) (int, map[string]interface{}) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	result := map[string]interface{}{}
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(data, &result), string(data))
	}
	return resp.StatusCode, result
}

func TestHealthAndModels(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, http.MethodGet, ts.URL+"/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])

	status, body = do(t, http.MethodGet, ts.URL+"/models", "")
	assert.Equal(t, http.StatusOK, status)
	models := body["models"].([]interface{})
	require.Len(t, models, 2)
	assert.Equal(t, "pair", models[0].(map[string]interface{})["name"])
	assert.Equal(t, "forest", models[0].(map[string]interface{})["kind"])
	assert.Equal(t, "simple", models[1].(map[string]interface{})["name"])

	status, body = do(t, http.MethodGet, ts.URL+"/models/simple/features", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{"feature1"}, body["features"])

	status, _ = do(t, http.MethodGet, ts.URL+"/models/unknown/features", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPredict(t *testing.T) {
	ts, s := newTestServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/models/simple/predict", `{"samples":[{"feature1":1.2},{"feature1":2.4}]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{false, true}, body["predictions"])

	status, body = do(t, http.MethodPost, ts.URL+"/models/pair/predict", `{"samples":[{"x":0},{"x":3}]}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []interface{}{0.0, 1.0}, body["predictions"])

	assert.Equal(t, 1.0, testutil.ToFloat64(s.predictions.WithLabelValues("simple", "ok")))
	assert.Equal(t, 2, testutil.CollectAndCount(s.duration))
}

func TestPredictProbabilities(t *testing.T) {
	ts, _ := newTestServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/models/pair/predict_proba", `{"samples":[{"x":0}]}`)
	assert.Equal(t, http.StatusOK, status)
	probs := body["probabilities"].([]interface{})
	require.Len(t, probs, 1)
	p := probs[0].([]interface{})
	assert.InDelta(t, 0.625, p[0], 1e-12)
	assert.InDelta(t, 0.375, p[1], 1e-12)

	status, body = do(t, http.MethodPost, ts.URL+"/models/simple/predict_proba", `{"samples":[{"feature1":0}]}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body["error"], "weights")
}

func TestPredictErrors(t *testing.T) {
	ts, s := newTestServer(t)

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"unknown model", "/models/nope/predict", `{"samples":[{"x":1}]}`, http.StatusNotFound},
		{"malformed body", "/models/simple/predict", `{"samples":`, http.StatusBadRequest},
		{"no samples", "/models/simple/predict", `{"samples":[]}`, http.StatusBadRequest},
		{"invalid value", "/models/simple/predict", `{"samples":[{"feature1":"blue"}]}`, http.StatusBadRequest},
		{"missing feature", "/models/simple/predict", `{"samples":[{"feature2":1}]}`, http.StatusUnprocessableEntity},
		{"undefined value", "/models/simple/predict", `{"samples":[{"feature1":null}]}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(t, http.MethodPost, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.NotEmpty(t, body["error"])
		})
	}
	assert.Equal(t, 3.0, testutil.ToFloat64(s.predictions.WithLabelValues("simple", outcomeBadRequest)))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.predictions.WithLabelValues("simple", outcomeInvalid)))

	status, body := do(t, http.MethodPost, ts.URL+"/models/simple/predict", `{"samples":[{"feature2":1}]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "expected feature named 'feature1' but none provided", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)
	do(t, http.MethodPost, ts.URL+"/models/simple/predict", `{"samples":[{"feature1":1}]}`)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `grove_predictions_total{model="simple",outcome="ok"} 1`)
	assert.Contains(t, string(data), "grove_prediction_duration_seconds")
}

func TestNewRejectsSharedRegistry(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New(nil, WithRegistry(registry))
	require.NoError(t, err)
	_, err = New(nil, WithRegistry(registry))
	assert.Error(t, err)
}
