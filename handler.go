package ygggo_formsql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HandlerConfig configures the HTTP surface.
type HandlerConfig struct {
	SubmitPath     string
	MaxBodyBytes   int64
	RequestTimeout time.Duration
	ServiceName    string
	Telemetry      bool
	HealthCheck    HealthCheckConfig
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
}

type submitRequest struct {
	Schema      *FormSchema    `json:"schema"`
	Destination *Destination   `json:"destination"`
	Data        map[string]any `json:"data"`
}

// NewHandler serves POST <SubmitPath> and GET /healthz.
//
// A stored submission answers 204. Failures answer with {"error": "..."} holding
// at most the first two lines of the error; the Submitter logs the rest.
func NewHandler(s *Submitter, cfg HandlerConfig) http.Handler {
	if cfg.SubmitPath == "" {
		cfg.SubmitPath = "/submit"
	}
	h := &handler{s: s, cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+cfg.SubmitPath, h.submit)
	mux.HandleFunc("GET /healthz", h.health)
	if !cfg.Telemetry {
		return mux
	}
	name := cfg.ServiceName
	if name == "" {
		name = "ygggo_formsql"
	}
	var opts []otelhttp.Option
	if s.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(s.tracerProvider))
	}
	if s.meterProvider != nil {
		opts = append(opts, otelhttp.WithMeterProvider(s.meterProvider))
	}
	return otelhttp.NewHandler(mux, name, opts...)
}

type handler struct {
	s   *Submitter
	cfg HandlerConfig
}

func (h *handler) submit(w http.ResponseWriter, r *http.Request) {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mt != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return
	}
	if h.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes)
	}

	var req submitRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, Shorten("invalid request body: "+err.Error()))
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}
	err = h.s.Submit(ctx, Submission{Schema: *req.Schema, Destination: *req.Destination, Data: req.Data})
	if err != nil {
		writeError(w, statusFor(err), Shorten(err.Error()))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req *submitRequest) validate() string {
	switch {
	case req.Schema == nil:
		return "missing field: schema"
	case req.Destination == nil:
		return "missing field: destination"
	case req.Data == nil:
		return "missing field: data"
	case req.Destination.URL == "":
		return "missing field: destination.url"
	case req.Destination.Table == "":
		return "missing field: destination.table"
	}
	return ""
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	status := h.s.Destinations().HealthCheck(r.Context(), h.cfg.HealthCheck)
	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

// statusFor maps a Submit error to an HTTP status.
func statusFor(err error) int {
	switch {
	case IsRequestError(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	switch Classify(err) {
	case ErrClassConflict, ErrClassConstraint:
		return http.StatusConflict
	case ErrClassRetryable, ErrClassReadonly:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
