package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tenant-notes/models"
)

type noteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type noteListResponse struct {
	Items      []models.Note `json:"items"`
	TenantPlan models.Plan   `json:"tenantPlan"`
	CanCreate  bool          `json:"canCreate"`
	Limit      int           `json:"limit"`
}

func decodeNote(r *http.Request) (noteRequest, bool) {
	var req noteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, false
	}
	return req, true
}

func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListNotes(r.Context(), claims(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, noteListResponse{
		Items:      list.Items,
		TenantPlan: list.TenantPlan,
		CanCreate:  list.CanCreate,
		Limit:      list.Limit,
	})
}

func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), claims(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNote(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	note, err := h.svc.CreateNote(r.Context(), claims(r), req.Title, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNote(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), claims(r), chi.URLParam(r, "id"), req.Title, req.Content)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), claims(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
