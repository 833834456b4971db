package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/server/services"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// resetPasswordRequest carries the 6-digit code in "token".
type resetPasswordRequest struct {
	Email    string `json:"email" validate:"required"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

type userSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type sessionResponse struct {
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    userSummary `json:"user"`
}

func newSessionResponse(msg string, s *services.Session) sessionResponse {
	return sessionResponse{
		Message: msg,
		Token:   s.Token,
		User:    userSummary{ID: s.User.ID, Name: s.User.Name, Email: s.User.Email},
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	session, err := s.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrorAlreadyExists):
			writeMessage(w, http.StatusBadRequest, "User already exists")
		case errors.Is(err, common.ErrorValidation):
			writeMessage(w, http.StatusBadRequest, "Validation failed")
		default:
			s.logger.Error(r.Context(), "register failed", "error", err)
			writeServerError(w)
		}
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse("User created successfully", session))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	session, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			writeMessage(w, http.StatusBadRequest, "Invalid credentials")
			return
		}
		s.logger.Error(r.Context(), "login failed", "error", err)
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse("Login successful", session))
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := s.users.RequestReset(r.Context(), req.Email); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.Error(r.Context(), "forgot-password failed", "error", err)
		writeServerError(w)
		return
	}

	writeMessage(w, http.StatusOK, "An e-mail has been sent to "+req.Email+" with further instructions.")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if err := s.users.RedeemReset(r.Context(), req.Email, req.Token, req.Password); err != nil {
		switch {
		case errors.Is(err, common.ErrResetCodeInvalid):
			writeMessage(w, http.StatusBadRequest, "Password reset token is invalid or has expired.")
		case errors.Is(err, common.ErrorValidation):
			writeMessage(w, http.StatusBadRequest, "Validation failed")
		default:
			s.logger.Error(r.Context(), "reset-password failed", "error", err)
			writeServerError(w)
		}
		return
	}

	writeMessage(w, http.StatusOK, "Password has been reset.")
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.users.Profile(r.Context(), identity(r).UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			writeMessage(w, http.StatusNotFound, "User not found")
			return
		}
		s.logger.Error(r.Context(), "profile failed", "error", err)
		writeServerError(w)
		return
	}

	writeJSON(w, http.StatusOK, p)
}
