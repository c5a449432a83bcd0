package api

import (
	"encoding/json"
	"net/http"
	"time"

	"tontine-api/internal/domain/group"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/platform/apperr"
	"tontine-api/internal/worker"
)

type createGroupRequest struct {
	Name               string  `json:"name"`
	Description        *string `json:"description"`
	Currency           string  `json:"currency"`
	ContributionAmount float64 `json:"contribution_amount"`
	ProposalPolicy     string  `json:"proposal_policy"`
	VoteDurationHours  int     `json:"vote_duration_hours"`
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	g := &group.Group{
		Name:               req.Name,
		Description:        req.Description,
		Currency:           req.Currency,
		ContributionAmount: req.ContributionAmount,
		ProposalPolicy:     req.ProposalPolicy,
		VoteDurationHours:  req.VoteDurationHours,
	}
	id, err := h.groupSvc.Create(r.Context(), g, userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}

	created, err := h.groupSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.groupSvc.ListForUser(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	if _, err := h.groupSvc.Membership(r.Context(), id, userIDFromCtx(r)); err != nil {
		errorResponse(w, err)
		return
	}
	g, err := h.groupSvc.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	members, err := h.groupSvc.Members(r.Context(), userIDFromCtx(r), id)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

type inviteRequest struct {
	Email    *string `json:"email"`
	TTLHours int     `json:"ttl_hours"`
}

func (h *Handler) handleInvite(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	var req inviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}

	inv, err := h.groupSvc.Invite(r.Context(), userIDFromCtx(r), id, req.Email,
		time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

type acceptInvitationRequest struct {
	Code string `json:"code"`
}

func (h *Handler) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req acceptInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Code == "" {
		errorResponse(w, apperr.BadRequest("invalid_input", "code is required", nil))
		return
	}

	userID := userIDFromCtx(r)
	g, err := h.groupSvc.AcceptInvitation(r.Context(), userID, req.Code)
	if err != nil {
		errorResponse(w, err)
		return
	}

	h.publish(worker.Event{
		Type:           notification.TypeMemberJoined,
		GroupID:        g.ID,
		ActorID:        userID,
		Title:          "New member joined " + g.Name,
		ExcludeUserIDs: []int64{userID},
	})

	writeJSON(w, http.StatusOK, g)
}

type updateMemberRequest struct {
	Role   *string `json:"role"`
	Status *string `json:"status"`
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid user id", err))
		return
	}

	var req updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid body", err))
		return
	}
	if req.Role == nil && req.Status == nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "role or status is required", nil))
		return
	}

	callerID := userIDFromCtx(r)
	if req.Role != nil {
		if err := h.groupSvc.UpdateMemberRole(r.Context(), callerID, groupID, userID, *req.Role); err != nil {
			errorResponse(w, err)
			return
		}
	}
	if req.Status != nil {
		if err := h.groupSvc.UpdateMemberStatus(r.Context(), callerID, groupID, userID, *req.Status); err != nil {
			errorResponse(w, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLeaveGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	if err := h.groupSvc.Leave(r.Context(), userIDFromCtx(r), groupID); err != nil {
		errorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGroupReport(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r, "id")
	if err != nil {
		errorResponse(w, apperr.BadRequest("invalid_input", "invalid group id", err))
		return
	}

	rep, err := h.reportSvc.Summary(r.Context(), userIDFromCtx(r), groupID)
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
