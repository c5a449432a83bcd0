package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tontine-api/internal/domain/decision"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/metrics"
	"tontine-api/internal/platform/apperr"
	"tontine-api/internal/worker"
)

type createDecisionRequest struct {
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Amount      *float64 `json:"amount"`
	Currency    *string  `json:"currency"`
	Options     []string `json:"options"`

	AllowChangeVote    bool `json:"allow_change_vote"`
	AnonymousVoting    bool `json:"anonymous_voting"`
	ShowInterimResults bool `json:"show_interim_results"`
	QuorumPercent      int  `json:"quorum_percent"`
	ApprovalPercent    int  `json:"approval_percent"`

	StartsAt *string `json:"starts_at"`
	EndsAt   *string `json:"ends_at"`
}

// @Summary     Create a group decision
// @Tags        decisions
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       id       path      int64                  true  "Group ID"
// @Param       request  body      createDecisionRequest  true  "Decision payload"
// @Success     201      {object}  decision.Decision
// @Failure     400      {object}  map[string]string  "invalid payload"
// @Failure     403      {object}  map[string]string  "not a member or wrong role"
// @Failure     404      {object}  map[string]string  "group not found"
// @Router      /api/v1/groups/{id}/decisions [post]
func (h *Handler) handleCreateDecision(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	var req createDecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	startsAt, err := parseTimePtr(req.StartsAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "starts_at must be RFC3339", err))
		return
	}
	endsAt, err := parseTimePtr(req.EndsAt)
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "ends_at must be RFC3339", err))
		return
	}

	callerID := userIDFromCtx(r)
	d, err := h.decisionSvc.Create(r.Context(), callerID, decision.CreateInput{
		GroupID:            groupID,
		Kind:               decision.Kind(req.Kind),
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Amount:             req.Amount,
		Currency:           req.Currency,
		Options:            req.Options,
		AllowChangeVote:    req.AllowChangeVote,
		AnonymousVoting:    req.AnonymousVoting,
		ShowInterimResults: req.ShowInterimResults,
		QuorumPercent:      req.QuorumPercent,
		ApprovalPercent:    req.ApprovalPercent,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
	})
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.Event{
		Type:           notification.TypeDecisionCreated,
		GroupID:        groupID,
		ActorID:        callerID,
		DecisionID:     d.ID,
		Title:          "New decision: " + d.Title,
		Body:           fmt.Sprintf("Voting is open until %s", d.EndsAt.Format(time.RFC3339)),
		ExcludeUserIDs: []int64{callerID},
	})

	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleListDecisions(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	decisions, err := h.decisionSvc.ListByGroup(r.Context(), userIDFromCtx(r), groupID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

func (h *Handler) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid decision id", err))
		return
	}

	d, ballots, err := h.decisionSvc.Get(r.Context(), userIDFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	resp := map[string]any{"decision": d}
	if ballots != nil {
		resp["ballots"] = ballots
		counts, total := decision.CountByOption(d.Options, ballots)
		resp["tally"] = map[string]any{"counts": counts, "total_votes": total}
	}
	writeJSON(w, http.StatusOK, resp)
}

type castRequest struct {
	OptionID int64   `json:"option_id"`
	Comment  *string `json:"comment"`
}

// @Summary     Cast a ballot on a decision
// @Tags        decisions
// @Security    BearerAuth
// @Accept      json
// @Param       id       path      int64        true  "Decision ID"
// @Param       request  body      castRequest  true  "Ballot payload"
// @Success     200      {object}  decision.Decision
// @Failure     400      {object}  map[string]string  "closed, expired or invalid option"
// @Failure     403      {object}  map[string]string  "not a member"
// @Failure     409      {object}  map[string]string  "already voted"
// @Router      /api/v1/decisions/{id}/votes [post]
func (h *Handler) handleCastBallot(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid decision id", err))
		return
	}

	var req castRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.OptionID == 0 {
		errorResponse(w, apperr.BadRequest("invalid_input", "option_id is required", nil))
		return
	}

	d, err := h.decisionSvc.Cast(r.Context(), userIDFromCtx(r), id, req.OptionID, req.Comment)
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncBallotCast()

	writeJSON(w, http.StatusOK, d)
}

// @Summary     Close a decision and compute its result
// @Tags        decisions
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Decision ID"
// @Success     200  {object}  decision.Decision
// @Failure     400  {object}  map[string]string  "already closed"
// @Failure     403  {object}  map[string]string  "not creator or admin"
// @Router      /api/v1/decisions/{id}/close [put]
func (h *Handler) handleCloseDecision(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid decision id", err))
		return
	}

	callerID := userIDFromCtx(r)
	d, err := h.decisionSvc.Close(r.Context(), callerID, id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	metrics.IncDecisionDecided(string(d.Status))

	h.publish(worker.Event{
		Type:       notification.TypeDecisionClosed,
		GroupID:    d.GroupID,
		ActorID:    callerID,
		DecisionID: d.ID,
		Title:      fmt.Sprintf("Decision %q is %s", d.Title, d.Status),
	})

	writeJSON(w, http.StatusOK, d)
}

// @Summary     Execute an approved monetary decision
// @Tags        decisions
// @Security    BearerAuth
// @Produce     json
// @Param       id   path      int64  true  "Decision ID"
// @Success     200  {object}  decision.Decision
// @Failure     400  {object}  map[string]string  "not approved"
// @Failure     403  {object}  map[string]string  "not an officer"
// @Failure     409  {object}  map[string]string  "already executed"
// @Router      /api/v1/decisions/{id}/execute [post]
func (h *Handler) handleExecuteDecision(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid decision id", err))
		return
	}

	callerID := userIDFromCtx(r)
	d, err := h.decisionSvc.Execute(r.Context(), callerID, id)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.Event{
		Type:       notification.TypeDecisionExecuted,
		GroupID:    d.GroupID,
		ActorID:    callerID,
		DecisionID: d.ID,
		Title:      fmt.Sprintf("Decision %q was executed", d.Title),
	})

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDeleteDecision(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid decision id", err))
		return
	}

	if err := h.decisionSvc.Delete(r.Context(), userIDFromCtx(r), id); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
