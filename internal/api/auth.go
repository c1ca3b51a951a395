package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Masterjii/CodesForTomorrow/internal/auth"
)

// registerRequest is the request body for POST /register.
type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Email    string `json:"email"    validate:"required,email"`
	Role     string `json:"role"     validate:"omitempty,oneof=user admin"`
}

// loginRequest is the request body for POST /login.
type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// loginResponse is the response body for POST /login. The token is also
// set as an HttpOnly cookie; the body copy serves non-browser clients.
type loginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// handleRegister creates a new user account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	_, err := s.authService.Register(r.Context(), req.Username, req.Email, req.Password, auth.Role(req.Role))
	if err != nil {
		if errors.Is(err, auth.ErrEmailExists) {
			writeBadRequest(w, "email already registered")
			return
		}
		s.logger.Error("registration failed", "error", err)
		writeInternalError(w, "failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"message": "user registered successfully",
	})
}

// handleLogin verifies credentials and starts a new session.
//
// On success the token is set as an HttpOnly SameSite=Strict cookie and
// returned in the body. Logging in here supersedes any earlier session
// for the same user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeValidationError(w, err)
		return
	}

	_, token, err := s.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeBadRequest(w, "invalid credentials")
			return
		}
		s.logger.Error("login failed", "error", err)
		writeInternalError(w, "failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.authService.TokenTTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "login successful",
		Token:   token,
	})
}

// handleLogout clears the token cookie.
//
// It does not touch the user's stored session: a copy of the token held
// elsewhere keeps working until it expires or a new login supersedes it.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// handleProfile returns the authenticated user's account details.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "not authorized")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleAdminOnly is the admin-gated probe route.
func (s *Server) handleAdminOnly(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "not authorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "welcome, " + user.Username,
	})
}

// handleCommon is reachable by any authenticated user regardless of role.
func (s *Server) handleCommon(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		writeUnauthorized(w, "not authorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "this route is available to all authenticated users",
	})
}

// writeValidationError maps a validator error to a 400 response naming
// the first failing field.
func writeValidationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation,
			"invalid field: "+verrs[0].Field())
		return
	}
	writeError(w, http.StatusBadRequest, ErrCodeValidation, "invalid request")
}
