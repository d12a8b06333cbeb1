package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	"github.com/gartstein/jobboard/internal/jobboard/controller"
	"github.com/gartstein/jobboard/internal/jobboard/validation"
)

// register creates an account and signs it in.
func (a *API) register(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registerRequest
	if err := a.decodeJSON(w, r, validation.Register, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, session, err := a.users.Register(r.Context(), controller.Registration{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: string(req.PhoneNumber),
		Role:        req.Role,
	})
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.Token, session.ExpiresAt, a.cookieSecure)
	writeSuccess(w, http.StatusCreated, payload{
		"message": "User registered successfully",
		"user":    user,
		"token":   session.Token,
	})
}

// login verifies credentials and role and issues a fresh session.
func (a *API) login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := a.decodeJSON(w, r, validation.Login, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	user, session, err := a.users.Login(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	auth.SetSessionCookie(w, session.Token, session.ExpiresAt, a.cookieSecure)
	writeSuccess(w, http.StatusOK, payload{
		"message": "User logged in successfully",
		"user":    user,
		"token":   session.Token,
	})
}

// logout clears the session cookie. Tokens are not revoked.
func (a *API) logout(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	auth.ClearSessionCookie(w, a.cookieSecure)
	writeSuccess(w, http.StatusOK, payload{"message": "User logged out successfully"})
}

func (a *API) profile(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	user, err := a.users.Profile(r.Context(), caller(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload{"user": user})
}
