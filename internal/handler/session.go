package handler

import (
	"net/http"

	"github.com/kdduha/image-edit/internal/models"
	"github.com/kdduha/image-edit/internal/session"
)

// Session godoc
// @Summary Current user
// @Description Reports whether an auth session cookie is present and the email it carries, without calling the auth provider. Display only: the token is not verified.
// @Tags auth
// @Produce json
// @Success 200 {object} models.SessionResponse
// @Router /api/session [get]
func Session(w http.ResponseWriter, r *http.Request) {
	email, signedIn := session.EmailFromRequest(r)
	resp := models.SessionResponse{Authenticated: signedIn}
	if email != "" {
		resp.Email = &email
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}
