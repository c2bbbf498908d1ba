package httpapi

import (
	"net/http"

	"github.com/CalHacks12USF/fregister-backend/apperr"
	"github.com/CalHacks12USF/fregister-backend/auth"
)

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	idToken, err := bearerToken(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	resp, err := s.services.Auth.SignInWithGoogle(r.Context(), idToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	if err := s.services.Auth.SignOut(r.Context(), token); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil && !apperr.IsValidation(err) {
		writeError(w, s.logger, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, s.logger, apperr.Unauthorized("Refresh token is required"))
		return
	}

	resp, err := s.services.Auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	user, err := s.services.Auth.CurrentUser(r.Context(), token)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) updateProfile(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	var input auth.UpdateProfileInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, s.logger, err)
		return
	}

	profile, err := s.services.Auth.UpdateProfile(r.Context(), token, input)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := s.services.Auth.GetProfile(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
