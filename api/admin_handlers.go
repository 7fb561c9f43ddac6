package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"giveaway/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type adjustBalanceRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

type adjustTicketsRequest struct {
	Delta int64  `json:"delta"`
	Note  string `json:"note"`
}

type setRoleRequest struct {
	Role models.Role `json:"role"`
}

type giveawayActionFunc func(r *http.Request, id int64, actorID string) (*models.Giveaway, error)

func (s *Server) giveawayAction(action giveawayActionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID, _ := UserIDFromContext(r.Context())
		id, ok := giveawayIDParam(w, r)
		if !ok {
			return
		}

		giveaway, err := action(r, id, actorID)
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, toGiveawayResponse(giveaway))
	}
}

func (s *Server) CloseGiveaway(w http.ResponseWriter, r *http.Request) {
	s.giveawayAction(func(r *http.Request, id int64, actorID string) (*models.Giveaway, error) {
		return s.services.Giveaways.Close(r.Context(), id, actorID)
	})(w, r)
}

func (s *Server) StartReview(w http.ResponseWriter, r *http.Request) {
	s.giveawayAction(func(r *http.Request, id int64, actorID string) (*models.Giveaway, error) {
		return s.services.Giveaways.StartReview(r.Context(), id, actorID)
	})(w, r)
}

func (s *Server) PickWinner(w http.ResponseWriter, r *http.Request) {
	s.giveawayAction(func(r *http.Request, id int64, actorID string) (*models.Giveaway, error) {
		return s.services.Winners.PickWinner(r.Context(), id, actorID)
	})(w, r)
}

func (s *Server) RepickWinner(w http.ResponseWriter, r *http.Request) {
	s.giveawayAction(func(r *http.Request, id int64, actorID string) (*models.Giveaway, error) {
		return s.services.Winners.RepickWinner(r.Context(), id, actorID)
	})(w, r)
}

func (s *Server) FinalizeWinner(w http.ResponseWriter, r *http.Request) {
	s.giveawayAction(func(r *http.Request, id int64, actorID string) (*models.Giveaway, error) {
		return s.services.Winners.FinalizeWinner(r.Context(), id, actorID)
	})(w, r)
}

func parseAuditFilter(r *http.Request) (models.AuditFilter, error) {
	query := r.URL.Query()
	filter := models.AuditFilter{
		UserID: query.Get("user_id"),
		Action: models.AuditAction(query.Get("action")),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}

	if value := query.Get("giveaway_id"); value != "" {
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid giveaway_id")
		}
		filter.GiveawayID = &id
	}
	if value := query.Get("from"); value != "" {
		from, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return filter, fmt.Errorf("invalid from, expected RFC3339")
		}
		filter.From = &from
	}
	if value := query.Get("to"); value != "" {
		to, err := time.Parse(time.RFC3339, value)
		if err != nil {
			return filter, fmt.Errorf("invalid to, expected RFC3339")
		}
		filter.To = &to
	}
	return filter, nil
}

func (s *Server) ListAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.services.Audit.List(r.Context(), filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) ExportAudit(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="giveaway-audit.csv"`)

	rows, err := s.services.Audit.ExportCSV(r.Context(), w, filter)
	if err != nil {
		// headers are already on the wire
		log.WithError(err).WithField("rows", rows).Error("Audit export aborted")
		return
	}
	log.WithField("rows", rows).Info("Exported audit log")
}

func (s *Server) AdminCredit(w http.ResponseWriter, r *http.Request) {
	actorID, _ := UserIDFromContext(r.Context())

	var req adjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.services.Wallets.AdminCredit(r.Context(), actorID, chi.URLParam(r, "userId"), req.Amount, req.Note)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLedgerEntryResponse(entry))
}

func (s *Server) AdminDebit(w http.ResponseWriter, r *http.Request) {
	actorID, _ := UserIDFromContext(r.Context())

	var req adjustBalanceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.services.Wallets.AdminDebit(r.Context(), actorID, chi.URLParam(r, "userId"), req.Amount, req.Note)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLedgerEntryResponse(entry))
}

func (s *Server) AdminAdjustTickets(w http.ResponseWriter, r *http.Request) {
	actorID, _ := UserIDFromContext(r.Context())

	var req adjustTicketsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := s.services.Wallets.AdminAdjustTickets(r.Context(), actorID, chi.URLParam(r, "userId"), req.Delta, req.Note)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toLedgerEntryResponse(entry))
}

func (s *Server) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := s.services.Wallets.Reconcile(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, _ := UserIDFromContext(r.Context())
	userID := chi.URLParam(r, "userId")

	var req setRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	changed, err := s.services.Access.SetUserRole(r.Context(), actorID, userID, req.Role)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"role":    req.Role,
		"changed": changed,
	})
}
