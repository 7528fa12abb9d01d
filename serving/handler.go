package serving

import (
	"encoding/json"
	"net/http"

	"github.com/YuminosukeSato/scigo-serve/pkg/errors"
	"github.com/YuminosukeSato/scigo-serve/pkg/log"
)

// RootMessage is returned by GET / whenever the process is up.
const RootMessage = "Model API is running!"

const maxBodyBytes = 1 << 20

// PredictRequest is the body of POST /predict.
type PredictRequest struct {
	Features []float64 `json:"features"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the prediction API.
type Handler struct {
	svc    *Service
	logger log.Logger
}

// NewHandler creates the API handlers for svc.
func NewHandler(svc *Service, logger log.Logger) *Handler {
	if logger == nil {
		logger = log.GetLoggerWithName("serving")
	}
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the API on a new mux wrapped with the standard middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("POST /predict", h.Predict)
	mux.HandleFunc("GET /model", h.Model)

	return Chain(RequestID, AccessLog(h.logger), Recovery(h.logger))(mux)
}

// Root is the liveness endpoint.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": RootMessage})
}

// Model reports the served model's metadata.
func (h *Handler) Model(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Metadata())
}

// Predict handles POST /predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	res, err := h.svc.Predict(r.Context(), req.Features)
	if err != nil {
		var fc *errors.FeatureCountError
		if errors.As(err, &fc) {
			writeError(w, http.StatusUnprocessableEntity, fc.Error())
			return
		}
		h.logger.Error("inference failed", err,
			log.RequestIDKey, RequestIDFromContext(r.Context()),
			log.ErrorCodeKey, log.ErrorInference,
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
