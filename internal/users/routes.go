package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts /auth.
func RegisterRoutes(r chi.Router, auth *Auth) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", handleLogin(auth))
		r.Post("/register", handleRegister(auth))
		r.With(RequireUser(auth)).Get("/me", handleMe)
	})
}

func handleLogin(auth *Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c Credentials
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
		token, err := auth.Login(r.Context(), c)
		if errors.Is(err, ErrInvalidCredentials) {
			unauthorized(w, "Invalid credentials")
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, LoginResponse{Token: token, Message: "Login successful"})
	}
}

func handleRegister(auth *Auth) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c Credentials
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
			return
		}
		u, err := auth.Register(r.Context(), c)
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		case errors.Is(err, ErrUsernameTaken):
			writeJSON(w, http.StatusConflict, map[string]string{"message": err.Error()})
			return
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, UserFromContext(r.Context()))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
