package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jagcoaching/speechcoach/internal/server/models"
)

type createRecordingRequest struct {
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"omitempty,max=127"`
}

type createRecordingResponse struct {
	ID         string `json:"id"`
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

type recordingResponse struct {
	ID          string                 `json:"id"`
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"content_type,omitempty"`
	Status      models.RecordingStatus `json:"status"`
	Report      *models.Report         `json:"report,omitempty"`
	Error       string                 `json:"error,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func newRecordingResponse(rec *models.Recording) recordingResponse {
	return recordingResponse{
		ID:          rec.ID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Status:      rec.Status,
		Report:      rec.Report,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

func (h *handler) createRecording(w http.ResponseWriter, r *http.Request) {
	var req createRecordingRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.validateStruct(req); err != nil {
		h.writeError(w, r, err)
		return
	}

	claims := claimsFromContext(r.Context())
	up, err := h.recordings.CreateUpload(r.Context(), claims.UserID(), req.Filename, req.ContentType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createRecordingResponse{
		ID:         up.Recording.ID,
		UploadURL:  up.UploadURL,
		StorageKey: up.Recording.StorageKey,
	})
}

func (h *handler) listRecordings(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	recs, err := h.recordings.List(r.Context(), claims.UserID())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]recordingResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, newRecordingResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getRecording(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	rec, err := h.recordings.Get(r.Context(), claims.UserID(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newRecordingResponse(rec))
}

func (h *handler) analyzeRecording(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	rec, err := h.recordings.RequestAnalysis(r.Context(), claims.UserID(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, struct {
		ID     string                 `json:"id"`
		Status models.RecordingStatus `json:"status"`
	}{rec.ID, rec.Status})
}
