package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes bounds request bodies; post content is rarely above a few MB.
const maxBodyBytes = 16 << 20

// Pass is the part of *mdm.Transformer the handlers need.
type Pass interface {
	Transform(ctx context.Context, content string) string
	FilterPostData(ctx context.Context, data []byte) ([]byte, error)
}

// TransformRequest is the body of POST /api/transform.
type TransformRequest struct {
	Content *string `json:"content"`
}

// TransformResponse is returned by POST /api/transform.
type TransformResponse struct {
	Content string `json:"content"`
}

type Handler struct {
	pass Pass
	log  *slog.Logger
}

func NewHandler(pass Pass, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{pass: pass, log: log}
}

func (h *Handler) HandleTransform(w http.ResponseWriter, r *http.Request) {
	var req TransformRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Content == nil {
		h.writeJSONError(w, "content is required", http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, TransformResponse{Content: h.pass.Transform(r.Context(), *req.Content)})
}

// HandleFilterPost applies the save hook to a whole record and echoes it back.
func (h *Handler) HandleFilterPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	out, err := h.pass.FilterPostData(r.Context(), body)
	if err != nil {
		h.log.Debug("filter post rejected", "error", err)
		h.writeJSONError(w, "Invalid record", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.log.Error("Failed to write response", "error", err)
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
