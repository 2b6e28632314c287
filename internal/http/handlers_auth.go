package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tally/internal/core"
	"tally/internal/services"
	"tally/internal/storage"
)

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// writeAuthError maps the auth service's error set to status codes and
// client messages. Unmapped errors become a logged 500.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrEmailExists):
		writeMessage(w, http.StatusBadRequest, "Email already exists")
	case errors.Is(err, storage.ErrUsernameExists):
		writeMessage(w, http.StatusBadRequest, "Username already exists")
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
	case errors.Is(err, services.ErrWrongPassword):
		writeMessage(w, http.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, services.ErrUserNotFound):
		writeMessage(w, http.StatusNotFound, "User not found")
	case errors.Is(err, core.ErrEmptyUsername),
		errors.Is(err, core.ErrEmptyEmail),
		errors.Is(err, core.ErrEmptyPassword),
		errors.Is(err, core.ErrEmptyName):
		writeMessage(w, http.StatusBadRequest, "All fields are required")
	default:
		writeServerError(w, r, err)
	}
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.authSvc.Signup(r.Context(), core.SignupInput{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{User: res.User, Token: res.Token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmailOrUsername string `json:"emailOrUsername"`
		Password        string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := s.authSvc.Login(r.Context(), req.EmailOrUsername, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{User: res.User, Token: res.Token})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.authSvc.GetProfile(r.Context(), UserID(r.Context()))
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	// Pointer fields distinguish an omitted field from a blank one.
	var req struct {
		Username *string `json:"username"`
		Name     *string `json:"name"`
		Email    *string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authSvc.UpdateProfile(r.Context(), UserID(r.Context()), core.ProfileUpdate{
		Username: req.Username,
		Name:     req.Name,
		Email:    req.Email,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	err := s.authSvc.UpdatePassword(r.Context(), UserID(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Password updated successfully")
}

func (s *Server) handleUpdatePicture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfilePicture *string `json:"profilePicture"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authSvc.UpdateProfilePicture(r.Context(), UserID(r.Context()), req.ProfilePicture)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
