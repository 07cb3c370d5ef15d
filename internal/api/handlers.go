package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/features"
	"github.com/sucolo/hexfeat/internal/model"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error onto an HTTP status.
func statusFor(err error) int {
	var gw *model.GatewayError
	switch {
	case errors.Is(err, model.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrCityNotFound):
		return http.StatusNotFound
	case errors.As(err, &gw):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err),
		)
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.health.Status(r.Context())
	status := http.StatusOK
	if !st.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, st)
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.meta.ListCities(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"cities": cities})
}

// city resolves the {city} path parameter and confirms it exists.
func (s *Server) city(w http.ResponseWriter, r *http.Request) (string, bool) {
	city := model.NormalizeCity(chi.URLParam(r, "city"))
	exists, err := s.meta.CityExists(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return "", false
	}
	if !exists {
		s.writeError(w, r, eris.Wrapf(model.ErrCityNotFound, "city %q", city))
		return "", false
	}
	return city, true
}

func (s *Server) handleAmenities(w http.ResponseWriter, r *http.Request) {
	city, ok := s.city(w, r)
	if !ok {
		return
	}
	amenities, err := s.meta.ListAmenities(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "amenities": amenities})
}

func (s *Server) handleAttributes(w http.ResponseWriter, r *http.Request) {
	city, ok := s.city(w, r)
	if !ok {
		return
	}
	attrs, err := s.meta.ListStaticAttributes(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "attributes": attrs})
}

func (s *Server) handleAmenityCounts(w http.ResponseWriter, r *http.Request) {
	city, ok := s.city(w, r)
	if !ok {
		return
	}
	counts, err := s.meta.AmenityCounts(r.Context(), city)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"city": city, "counts": counts})
}

var contentTypes = map[string]string{
	features.FormatJSON: "application/json",
	features.FormatCSV:  "text/csv; charset=utf-8",
	features.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// handleFeatures computes a feature table. The body is a request in JSON;
// ?format= selects json (default), csv or xlsx.
func (s *Server) handleFeatures(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = features.FormatJSON
	}
	contentType, ok := contentTypes[format]
	if !ok {
		s.writeError(w, r, eris.Wrapf(model.ErrInvalidRequest, "unsupported format %q", format))
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.writeError(w, r, eris.Wrapf(model.ErrInvalidRequest, "read body: %v", err))
		return
	}
	req, err := features.ParseRequest(body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	table, err := s.engine.Compute(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Encode first so an encoding failure can still be reported as 500.
	var buf bytes.Buffer
	if err := features.Write(&buf, table, format); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
