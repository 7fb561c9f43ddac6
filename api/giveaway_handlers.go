package api

import (
	"net/http"
	"strconv"
	"time"

	"giveaway/models"
	"giveaway/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type createGiveawayRequest struct {
	Title         string                   `json:"title"`
	TicketPrice   decimal.Decimal          `json:"ticket_price"`
	MaxTickets    *int64                   `json:"max_tickets"`
	EndsAt        time.Time                `json:"ends_at"`
	PrizeAmount   decimal.Decimal          `json:"prize_amount"`
	DonationSplit *models.SplitPercentages `json:"donation_split"`
}

type donateRequest struct {
	Amount decimal.Decimal          `json:"amount"`
	Split  *models.SplitPercentages `json:"split"`
}

type buyTicketsRequest struct {
	Quantity int64 `json:"quantity"`
}

func giveawayIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid giveaway id")
		return 0, false
	}
	return id, true
}

func (s *Server) CreateGiveaway(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req createGiveawayRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	giveaway, err := s.services.Giveaways.Create(r.Context(), service.CreateGiveawayRequest{
		CreatorID:     userID,
		Title:         req.Title,
		TicketPrice:   req.TicketPrice,
		MaxTickets:    req.MaxTickets,
		EndsAt:        req.EndsAt,
		PrizeAmount:   req.PrizeAmount,
		DonationSplit: req.DonationSplit,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toGiveawayResponse(giveaway))
}

func (s *Server) GetGiveaway(w http.ResponseWriter, r *http.Request) {
	id, ok := giveawayIDParam(w, r)
	if !ok {
		return
	}

	giveaway, err := s.services.Giveaways.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toGiveawayResponse(giveaway))
}

func (s *Server) ListContributions(w http.ResponseWriter, r *http.Request) {
	id, ok := giveawayIDParam(w, r)
	if !ok {
		return
	}

	contributions, err := s.services.Contributions.ListContributions(r.Context(), id, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	response := make([]contributionResponse, 0, len(contributions))
	for _, c := range contributions {
		response = append(response, toContributionResponse(c))
	}
	respondJSON(w, http.StatusOK, response)
}

func (s *Server) Donate(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id, ok := giveawayIDParam(w, r)
	if !ok {
		return
	}

	var req donateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.services.Contributions.Donate(r.Context(), service.DonateRequest{
		GiveawayID:    id,
		UserID:        userID,
		Amount:        req.Amount,
		SplitOverride: req.Split,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) BuyTickets(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id, ok := giveawayIDParam(w, r)
	if !ok {
		return
	}

	var req buyTicketsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.services.Contributions.BuyTickets(r.Context(), service.BuyTicketsRequest{
		GiveawayID: id,
		UserID:     userID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
