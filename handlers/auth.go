package handlers

import (
	"encoding/json"
	"net/http"

	"tenant-notes/models"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string      `json:"id"`
		Email string      `json:"email"`
		Role  models.Role `json:"role"`
	} `json:"user"`
	Tenant models.Tenant `json:"tenant"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Email and password required")
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	var resp loginResponse
	resp.Token = sess.Token
	resp.User.ID = sess.User.ID
	resp.User.Email = sess.User.Email
	resp.User.Role = sess.User.Role
	resp.Tenant = sess.Tenant
	writeJSON(w, http.StatusOK, resp)
}
