package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"giveaway/service"

	log "github.com/sirupsen/logrus"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fundsErr *service.InsufficientFundsError
	if errors.As(err, &fundsErr) {
		respondJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":     "insufficient funds",
			"available": fundsErr.Available.StringFixed(2),
			"required":  fundsErr.Required.StringFixed(2),
			"shortfall": fundsErr.Shortfall().StringFixed(2),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrWalletNotFound),
		errors.Is(err, service.ErrGiveawayNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotAdmin):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGiveawayClosed),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrGiveawayAlreadyFinalized),
		errors.Is(err, service.ErrNoDraftWinner),
		errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, service.ErrConcurrentUpdateConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidSplitConfiguration),
		errors.Is(err, service.ErrInvalidRole),
		errors.Is(err, service.ErrInvalidGiveaway),
		errors.Is(err, service.ErrMissingReferenceID),
		errors.Is(err, service.ErrInvalidUserID),
		errors.Is(err, service.ErrNoEligibleHolders):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("Request failed")
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
