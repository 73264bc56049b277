package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fireguard/fireguard/internal/api/middleware"
	"github.com/fireguard/fireguard/internal/api/response"
	"github.com/fireguard/fireguard/internal/api/validation"
	"github.com/fireguard/fireguard/internal/firerisk"
)

// FireRiskPredictor answers fire-risk queries.
type FireRiskPredictor interface {
	Predict(ctx context.Context, q firerisk.Query) (*firerisk.Result, error)
}

// FireRiskHandler handles GET /firerisks.
type FireRiskHandler struct {
	svc FireRiskPredictor
}

// NewFireRiskHandler creates a new FireRiskHandler.
func NewFireRiskHandler(svc FireRiskPredictor) *FireRiskHandler {
	return &FireRiskHandler{svc: svc}
}

// Predict handles GET /firerisks?location_name=&time=&start_time=&end_time=.
// A cached entry is returned as is; otherwise the computed prediction.
func (h *FireRiskHandler) Predict(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	name := strings.TrimSpace(q.Get("location_name"))
	if name == "" {
		writeValidationErrors(w, r, []validation.FieldError{{Field: "location_name", Message: "location_name is required"}})
		return
	}

	query := firerisk.Query{LocationName: name}
	for _, p := range []struct {
		param string
		dst   **time.Time
	}{
		{"time", &query.Time},
		{"start_time", &query.Start},
		{"end_time", &query.End},
	} {
		raw := q.Get(p.param)
		if raw == "" {
			continue
		}
		t, err := firerisk.ParseTime(raw)
		if err != nil {
			writeValidationErrors(w, r, []validation.FieldError{{Field: p.param, Message: "Invalid time format. Please use ISO format."}})
			return
		}
		*p.dst = &t
	}

	res, err := h.svc.Predict(r.Context(), query)
	if err != nil {
		writeError(w, r, err, "Failed to compute fire risk")
		return
	}

	requestID := middleware.GetRequestID(r.Context())
	if res.Cached != nil {
		response.Success(w, http.StatusOK, res.Cached, requestID)
		return
	}
	response.Success(w, http.StatusOK, res.Prediction, requestID)
}
