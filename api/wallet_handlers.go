package api

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type depositRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	ExternalRef string          `json:"external_ref"`
}

func (s *Server) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	balance, err := s.services.Wallets.GetBalance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, balance)
}

func (s *Server) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.services.Wallets.Deposit(r.Context(), userID, req.Amount, req.ExternalRef)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLedgerEntryResponse(entry))
}

func (s *Server) ListLedger(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	entries, err := s.services.Wallets.ListLedger(r.Context(), userID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	response := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		response = append(response, toLedgerEntryResponse(entry))
	}
	respondJSON(w, http.StatusOK, response)
}
