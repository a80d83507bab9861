/*
Package server exposes grove models over an HTTP JSON API, with
Prometheus metrics on the predictions served.
*/
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pbanos/grove/dataset"
	"github.com/pbanos/grove/feature"
	"github.com/pbanos/grove/forest"
	"github.com/pbanos/grove/tree"
)

// Outcomes of a prediction request, as labelled on metrics
const (
	outcomeOK          = "ok"
	outcomeBadRequest  = "bad_request"
	outcomeInvalid     = "invalid_sample"
	outcomeUnavailable = "unavailable"
	outcomeError       = "error"
)

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger of the server, a no-op logger by default
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

/*
WithRegistry sets the registry the metrics of the server are
registered on and served from. A new registry is used by default.
*/
func WithRegistry(r *prometheus.Registry) Option {
	return func(s *Server) {
		if r != nil {
			s.registry = r
		}
	}
}

// Server serves predictions of a set of named models
type Server struct {
	models   map[string]Model
	names    []string
	logger   *zap.Logger
	registry *prometheus.Registry

	predictions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

/*
New takes a map of models by name and options and returns a Server
for them, or an error if its metrics cannot be registered.
*/
func New(models map[string]Model, opts ...Option) (*Server, error) {
	s := &Server{
		models:   make(map[string]Model, len(models)),
		logger:   zap.NewNop(),
		registry: prometheus.NewRegistry(),
		predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grove_predictions_total",
				Help: "Total number of prediction requests by model and outcome",
			},
			[]string{"model", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "grove_prediction_duration_seconds",
				Help: "Duration of prediction requests by model",
			},
			[]string{"model"},
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	for name, m := range models {
		s.models[name] = m
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	for _, c := range []prometheus.Collector{s.predictions, s.duration} {
		if err := s.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Handler returns the http.Handler routing requests to the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	r.Get("/models", s.listModels)
	r.Route("/models/{name}", func(r chi.Router) {
		r.Get("/features", s.features)
		r.Post("/predict", s.predict)
		r.Post("/predict_proba", s.predictProbabilities)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type modelInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Features []string `json:"features"`
}

type predictRequest struct {
	Samples []map[string]interface{} `json:"samples"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	infos := make([]modelInfo, 0, len(s.names))
	for _, name := range s.names {
		infos = append(infos, info(name, s.models[name]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"models": infos})
}

func (s *Server) features(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	m, ok := s.models[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown model "+name)
		return
	}
	writeJSON(w, http.StatusOK, info(name, m))
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, func(m Model, samples []feature.Sample) (interface{}, error) {
		values, err := m.Predict(r.Context(), samples)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"predictions": values}, nil
	})
}

func (s *Server) predictProbabilities(w http.ResponseWriter, r *http.Request) {
	s.serve(w, r, func(m Model, samples []feature.Sample) (interface{}, error) {
		probs, err := m.PredictProbabilities(r.Context(), samples)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"probabilities": probs}, nil
	})
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request, f func(Model, []feature.Sample) (interface{}, error)) {
	name := chi.URLParam(r, "name")
	m, ok := s.models[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown model "+name)
		return
	}
	start := time.Now()
	defer func() {
		s.duration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	samples, err := decodeSamples(r)
	if err != nil {
		s.predictions.WithLabelValues(name, outcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := f(m, samples)
	if err != nil {
		status, outcome := classifyError(err)
		s.predictions.WithLabelValues(name, outcome).Inc()
		if status == http.StatusInternalServerError {
			s.logger.Error("prediction failed", zap.String("model", name), zap.Error(err))
		} else {
			s.logger.Debug("prediction rejected", zap.String("model", name), zap.Error(err))
		}
		writeError(w, status, err.Error())
		return
	}
	s.predictions.WithLabelValues(name, outcomeOK).Inc()
	writeJSON(w, http.StatusOK, result)
}

func decodeSamples(r *http.Request) ([]feature.Sample, error) {
	body := &predictRequest{}
	if err := json.NewDecoder(r.Body).Decode(body); err != nil {
		return nil, errors.New("invalid request body: " + err.Error())
	}
	if len(body.Samples) == 0 {
		return nil, errors.New("invalid request body: no samples")
	}
	samples := make([]feature.Sample, len(body.Samples))
	for i, raw := range body.Samples {
		sample := feature.Map{}
		for name, v := range raw {
			value, err := dataset.Value(v)
			if err != nil {
				return nil, errors.New("invalid request body: sample " + name + ": " + err.Error())
			}
			sample[name] = value
		}
		samples[i] = sample
	}
	return samples, nil
}

func classifyError(err error) (int, string) {
	var mfe *tree.MissingFeatureError
	var nbm *tree.NoBranchMatchedError
	switch {
	case errors.As(err, &mfe), errors.As(err, &nbm):
		return http.StatusUnprocessableEntity, outcomeInvalid
	case errors.Is(err, tree.ErrProbabilityUnavailable), errors.Is(err, tree.ErrEmptyWeights), errors.Is(err, forest.ErrProbabilityShape):
		return http.StatusConflict, outcomeUnavailable
	}
	return http.StatusInternalServerError, outcomeError
}

func info(name string, m Model) modelInfo {
	features := m.FeatureNames()
	if features == nil {
		features = []string{}
	}
	return modelInfo{Name: name, Kind: m.Kind(), Features: features}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
