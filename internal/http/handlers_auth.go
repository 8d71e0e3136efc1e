package http

import (
	"net/http"

	"dentalbudget/internal/core"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "email and password are required")
		return
	}

	token, _, err := s.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

type registerRequest struct {
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Password   string `json:"password"`
	Role       string `json:"role"`
	PracticeID *int64 `json:"practice_id"`
}

type userView struct {
	ID         int64  `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name"`
	Role       string `json:"role"`
	PracticeID *int64 `json:"practice_id,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	actor, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "password is required")
		return
	}

	created, err := s.authSvc.Register(r.Context(), actor, core.User{
		Email:      req.Email,
		FullName:   req.FullName,
		Role:       core.Role(req.Role),
		PracticeID: req.PracticeID,
	}, req.Password)
	if err != nil {
		errorToHTTP(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, userView{
		ID:         created.ID,
		Email:      created.Email,
		FullName:   created.FullName,
		Role:       string(created.Role),
		PracticeID: created.PracticeID,
	})
}
