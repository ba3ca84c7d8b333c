// Package httpapi exposes the pipeline stages over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"etldemo/internal/logging"
	"etldemo/internal/pipeline"
	"etldemo/internal/record"
)

const (
	statusText = "ETL Demo API is running!"

	msgExtracted   = "Data extracted successfully!"
	msgTransformed = "Data transformed successfully!"
	msgLoaded      = "Data loaded successfully!"
	msgReset       = "Pipeline reset successfully!"
)

type messageResponse struct {
	Message string `json:"message"`
}

type dataResponse struct {
	Message string          `json:"message"`
	Data    []record.Record `json:"data"`
}

type Handler struct {
	state *pipeline.State
	log   *slog.Logger
}

func NewHandler(state *pipeline.State) *Handler {
	return &Handler{state: state, log: logging.Component("httpapi")}
}

func (h *Handler) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(statusText))
}

func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	rs, err := h.state.Extract(r.Context())
	if err != nil {
		h.log.Error("extract failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "extract failed"})
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: msgExtracted, Data: rs})
}

func (h *Handler) transform(w http.ResponseWriter, r *http.Request) {
	rs, err := h.state.Transform(r.Context())
	if err != nil {
		h.writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: msgTransformed, Data: rs})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	rs, err := h.state.Load(r.Context())
	if err != nil {
		h.writeStageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Message: msgLoaded, Data: rs})
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	h.state.Reset(r.Context())
	writeJSON(w, http.StatusOK, messageResponse{Message: msgReset})
}

func (h *Handler) snapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *Handler) writeStageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pipeline.ErrNoDataToTransform), errors.Is(err, pipeline.ErrNoDataToLoad):
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: err.Error()})
	default:
		h.log.Error("stage failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
