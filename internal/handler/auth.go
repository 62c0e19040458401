package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/tripwise/internal/domain"
	"github.com/pkordes/tripwise/internal/service"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signUp handles POST /auth/signup.
func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	s.credentials(w, r, http.StatusCreated, s.auth.SignUp)
}

// signIn handles POST /auth/signin.
func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	s.credentials(w, r, http.StatusOK, s.auth.SignIn)
}

func (s *Server) credentials(w http.ResponseWriter, r *http.Request, status int,
	call func(ctx context.Context, email, password string) (service.AuthResult, error),
) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	res, err := call(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeError(w, http.StatusBadRequest, unwrapMessage(err, domain.ErrValidation))
			return
		}
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, res)
}

// signOut handles POST /auth/signout. The presented token stops working
// immediately; other sessions of the same user are unaffected.
func (s *Server) signOut(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.SignOut(r.Context(), session(r)); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
