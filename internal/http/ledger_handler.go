package api

import (
	"encoding/json"
	"net/http"

	"tontine-api/internal/domain/ledger"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/platform/apperr"
	"tontine-api/internal/worker"
)

type createTransactionRequest struct {
	UserID      int64   `json:"user_id"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

func (h *Handler) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	callerID := userIDFromCtx(r)
	t := &ledger.Transaction{
		GroupID:     groupID,
		UserID:      req.UserID,
		Type:        req.Type,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Category:    req.Category,
		Description: req.Description,
	}
	if t.Currency == "" {
		if g, err := h.groupSvc.Get(r.Context(), groupID); err == nil {
			t.Currency = g.Currency
		}
	}

	if err := h.ledgerSvc.Record(r.Context(), callerID, t); err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.Event{
		Type:           notification.TypeTransaction,
		GroupID:        groupID,
		ActorID:        callerID,
		Title:          "New " + t.Type + " recorded",
		ExcludeUserIDs: []int64{callerID},
	})

	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	var txType *string
	if v := r.URL.Query().Get("type"); v != "" {
		txType = &v
	}

	txs, err := h.ledgerSvc.ListByGroup(r.Context(), userIDFromCtx(r), groupID, txType)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}
