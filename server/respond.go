package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-hr-tenancy/internal/errors"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    errors.Kind `json:"kind"`
	Message string      `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

// writeError renders err as the JSON error envelope. Unclassified errors
// are logged and reported as a bare internal error.
func writeError(w http.ResponseWriter, err error) {
	kind := errors.KindOf(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: errors.Public(err)}})
}

func statusForKind(kind errors.Kind) int {
	switch kind {
	case errors.KindInvalidCredentials, errors.KindUnauthenticated:
		return http.StatusUnauthorized
	case errors.KindAccountInactive, errors.KindTenantInactive, errors.KindPendingApproval, errors.KindForbidden:
		return http.StatusForbidden
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindDuplicateEmail, errors.KindInvariantViolation:
		return http.StatusConflict
	case errors.KindInvalidRequest:
		return http.StatusBadRequest
	case errors.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return errors.Invalid("malformed JSON body: %s", err.Error())
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.Invalid("%s must be a non-negative integer", name)
	}
	return n, nil
}
