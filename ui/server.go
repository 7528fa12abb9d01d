package ui

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
	"github.com/YuminosukeSato/scigo-serve/serving"
)

const (
	// Title is the page heading.
	Title = "🚀 My Machine Learning Model Predictor"
	// UnavailableMessage is shown when the prediction API cannot be reached.
	UnavailableMessage = "Prediction service is not available."

	defaultColumns = 3
	defaultValue   = "0.0000"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// Options configure the UI server.
type Options struct {
	Columns int
	Locale  string
	Logger  log.Logger
}

// Server renders the prediction form.
type Server struct {
	assets  *Assets
	client  *Client
	columns int
	format  numberFormat
	logger  log.Logger

	chartOnce sync.Once
	chart     []byte
	chartErr  error
}

// NewServer creates the UI for assets, sending predictions through client.
func NewServer(assets *Assets, client *Client, opts Options) (*Server, error) {
	if assets == nil || assets.Performance == nil || len(assets.FeatureNames) == 0 {
		return nil, errors.New("ui: assets are required")
	}
	if client == nil {
		return nil, errors.New("ui: client is required")
	}
	if opts.Columns <= 0 {
		opts.Columns = defaultColumns
	}
	if opts.Logger == nil {
		opts.Logger = log.GetLoggerWithName("ui")
	}
	return &Server{
		assets:  assets,
		client:  client,
		columns: opts.Columns,
		format:  newNumberFormat(opts.Locale),
		logger:  opts.Logger,
	}, nil
}

// Routes returns the UI handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.Form)
	mux.HandleFunc("POST /{$}", s.Submit)
	mux.HandleFunc("GET /importance.png", s.ImportanceChart)

	return serving.Chain(serving.RequestID, serving.AccessLog(s.logger), serving.Recovery(s.logger))(mux)
}

type fieldView struct {
	Name  string
	Input string
	Value string
	Error string
}

type resultView struct {
	Prediction    string
	Confidence    string
	Probabilities []featureScoreView
}

type pageData struct {
	Title       string
	Sidebar     sidebarView
	HasChart    bool
	Columns     [][]fieldView
	FormError   string
	Result      *resultView
	APIError    string
	Unavailable string
}

// Form renders the empty form with every input at 0.0000.
func (s *Server) Form(w http.ResponseWriter, r *http.Request) {
	fields := make([]fieldView, len(s.assets.FeatureNames))
	for i, name := range s.assets.FeatureNames {
		fields[i] = fieldView{Name: name, Input: inputName(i), Value: defaultValue}
	}
	s.render(w, http.StatusOK, s.page(fields))
}

// Submit parses the form, calls the prediction API and renders the outcome.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	fields, features, ok := parseFields(s.assets.FeatureNames, r)
	data := s.page(fields)
	if !ok {
		data.FormError = "Please correct the highlighted values."
		s.render(w, http.StatusBadRequest, data)
		return
	}

	out, err := s.client.Predict(r.Context(), features)
	switch {
	case errors.Is(err, ErrUnavailable):
		s.logger.Warn("prediction service unavailable",
			log.RequestIDKey, serving.RequestIDFromContext(r.Context()),
			"error", err.Error(),
		)
		data.Unavailable = UnavailableMessage
	case err != nil:
		s.logger.Error("prediction response unreadable", err,
			log.RequestIDKey, serving.RequestIDFromContext(r.Context()),
		)
		data.APIError = err.Error()
	case out.StatusCode != http.StatusOK:
		data.APIError = out.RawBody
	default:
		data.Result = s.result(out)
	}
	s.render(w, http.StatusOK, data)
}

// ImportanceChart serves the top-feature bar chart as PNG.
func (s *Server) ImportanceChart(w http.ResponseWriter, r *http.Request) {
	if len(s.assets.Performance.TopFeatures) == 0 {
		http.NotFound(w, r)
		return
	}
	s.chartOnce.Do(func() {
		s.chart, s.chartErr = RenderImportanceChart(s.assets.Performance.TopFeatures)
	})
	if s.chartErr != nil {
		s.logger.Error("render importance chart", s.chartErr)
		http.Error(w, "chart unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	_, _ = w.Write(s.chart)
}

func (s *Server) page(fields []fieldView) pageData {
	cols := make([][]fieldView, s.columns)
	for i, f := range fields {
		cols[i%s.columns] = append(cols[i%s.columns], f)
	}
	return pageData{
		Title:    Title,
		Sidebar:  buildSidebar(s.assets.Performance, s.format),
		HasChart: len(s.assets.Performance.TopFeatures) > 0,
		Columns:  cols,
	}
}

func (s *Server) result(out *Outcome) *resultView {
	rv := &resultView{Prediction: out.Prediction}
	if out.Confidence != nil {
		rv.Confidence = s.format.metric(*out.Confidence)
	}
	for _, p := range out.Probabilities {
		rv.Probabilities = append(rv.Probabilities, featureScoreView{Name: p.Class, Score: s.format.metric(p.Value)})
	}
	return rv
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		s.logger.Error("render page", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func inputName(i int) string { return "f" + strconv.Itoa(i) }

// parseFields は入力値を保持したまま検証する（エラー時に再表示するため）
func parseFields(names []string, r *http.Request) ([]fieldView, []float64, bool) {
	fields := make([]fieldView, len(names))
	features := make([]float64, len(names))
	ok := true
	for i, name := range names {
		raw := strings.TrimSpace(r.PostFormValue(inputName(i)))
		fields[i] = fieldView{Name: name, Input: inputName(i), Value: raw}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			fields[i].Error = "enter a number"
			ok = false
			continue
		}
		features[i] = v
	}
	return fields, features, ok
}
