package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"p1gateway/internal/auth"
)

// NewLoginHandler handles POST /api/login. The gateway has a single
// operator; a correct password yields a bearer token for the history API.
func NewLoginHandler(passwords *auth.PasswordVerifier, tokens *auth.TokenService) http.HandlerFunc {
	type request struct {
		Password string `json:"password"`
	}
	type response struct {
		Token     string `json:"token"`
		TokenType string `json:"token_type"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		req.Password = strings.TrimSpace(req.Password)
		if req.Password == "" {
			writeError(w, http.StatusBadRequest, "password is required")
			return
		}

		if err := passwords.Verify(req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			writeError(w, http.StatusInternalServerError, "failed to login")
			return
		}

		token, err := tokens.Generate()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		writeJSON(w, http.StatusOK, response{
			Token:     token,
			TokenType: "Bearer",
		})
	}
}
