package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Courtside/internal/api/authz"
)

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RequireUser writes 401 and returns nil when no authenticated user is in
// the request context.
func RequireUser(w http.ResponseWriter, r *http.Request) *authz.AuthUser {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Msg("Request rejected: unauthenticated")
		WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return nil
	}
	return user
}

// RequireOwner writes the appropriate status and returns false unless the
// context user holds the owner role.
func RequireOwner(w http.ResponseWriter, r *http.Request) bool {
	logger := log.Ctx(r.Context())
	if err := authz.RequireRole(r.Context(), authz.RoleOwner); err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Msg("Owner access denied: unauthenticated")
			WriteJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		case errors.Is(err, authz.ErrForbidden):
			logger.Warn().Msg("Owner access denied: forbidden")
			WriteJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
		default:
			logger.Error().Err(err).Msg("Owner access denied: error")
			WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to authorize request"})
		}
		return false
	}
	return true
}
