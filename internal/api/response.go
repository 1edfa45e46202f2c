package api

import (
	"encoding/json"
	"errors"
	"net/http"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/nativestake/custody-ledger/internal/types"
)

// principalHeader carries the caller identity. Authentication is out of
// scope; the deployment fronts this service with an authenticating proxy.
const principalHeader = "X-Ledger-Principal"

type errorBody struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response body")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is an internal error.
func writeError(w http.ResponseWriter, err error) {
	category := types.Internal
	var typed *types.Error
	if errors.As(err, &typed) {
		category = typed.Category()
	}

	status := http.StatusInternalServerError
	switch category {
	case types.Validation:
		status = http.StatusBadRequest
	case types.Authorization:
		status = http.StatusForbidden
	case types.State:
		status = http.StatusConflict
	case types.InsufficientFunds:
		status = http.StatusUnprocessableEntity
	case types.ExternalEffect:
		status = http.StatusBadGateway
	case types.Oracle:
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, errorResponse{Error: errorBody{
		Category: category.String(),
		Message:  err.Error(),
	}})
}

func principal(r *http.Request) (string, error) {
	p := r.Header.Get(principalHeader)
	if p == "" {
		return "", types.NewAuthorizationError(errors.New("missing " + principalHeader + " header"))
	}
	return p, nil
}

func decodeBody(r *http.Request, into any) error {
	defer r.Body.Close() //nolint:errcheck
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return types.NewValidationError(errors.New("malformed request body"))
	}
	return nil
}

func parseAmount(raw string) (sdkmath.Int, error) {
	amount, ok := sdkmath.NewIntFromString(raw)
	if !ok {
		return sdkmath.Int{}, types.NewValidationError(errors.New("amount must be a base-10 integer"))
	}
	return amount, nil
}
