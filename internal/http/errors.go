package api

import (
	"database/sql"
	"errors"
	"net/http"

	"tontine-api/internal/domain/decision"
	"tontine-api/internal/domain/group"
	"tontine-api/internal/domain/ledger"
	"tontine-api/internal/domain/notification"
	"tontine-api/internal/domain/user"
	"tontine-api/internal/platform/apperr"
)

func errorResponse(w http.ResponseWriter, err error) {
	appErr := mapError(err)
	writeJSON(w, appErr.StatusCode(), map[string]string{
		"error":   appErr.Code,
		"message": appErr.Message,
	})
}

func mapError(err error) *apperr.AppError {
	if err == nil {
		return apperr.Internal("internal_error", "internal server error", nil)
	}

	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("not_found", "resource not found", err)

	case errors.Is(err, user.ErrInvalidCredentials):
		return apperr.Unauthorized("invalid_credentials", "invalid credentials", err)
	case errors.Is(err, user.ErrInactiveUser):
		return apperr.Unauthorized("inactive_user", "user is inactive", err)
	case errors.Is(err, user.ErrEmailTaken):
		return apperr.BadRequest("email_taken", "email already taken", err)
	case errors.Is(err, user.ErrMissingFields):
		return apperr.BadRequest("invalid_input", err.Error(), err)

	case errors.Is(err, group.ErrGroupNotFound):
		return apperr.NotFound("group_not_found", "group not found", err)
	case errors.Is(err, group.ErrNotMember):
		return apperr.Forbidden("not_member", "caller is not an active member of the group", err)
	case errors.Is(err, group.ErrMemberNotFound):
		return apperr.NotFound("member_not_found", "member not found", err)
	case errors.Is(err, group.ErrForbidden):
		return apperr.Forbidden("wrong_role", "caller's group role does not permit this", err)
	case errors.Is(err, group.ErrAlreadyMember):
		return apperr.Conflict("already_member", "user is already a member", err)
	case errors.Is(err, group.ErrInvitationInvalid):
		return apperr.BadRequest("invitation_invalid", "invitation is invalid or already used", err)
	case errors.Is(err, group.ErrInvitationExpired):
		return apperr.BadRequest("invitation_expired", "invitation has expired", err)
	case errors.Is(err, group.ErrNameRequired),
		errors.Is(err, group.ErrInvalidPolicy),
		errors.Is(err, group.ErrInvalidRole),
		errors.Is(err, group.ErrInvalidStatus):
		return apperr.BadRequest("invalid_input", err.Error(), err)

	case errors.Is(err, decision.ErrNotFound):
		return apperr.NotFound("decision_not_found", "decision not found", err)
	case errors.Is(err, decision.ErrPolicyForbids),
		errors.Is(err, decision.ErrNotCloser),
		errors.Is(err, decision.ErrNotExecutor),
		errors.Is(err, decision.ErrNotCreator):
		return apperr.Forbidden("wrong_role", err.Error(), err)
	case errors.Is(err, decision.ErrWrongStatus),
		errors.Is(err, decision.ErrVotingNotOpen),
		errors.Is(err, decision.ErrNotApproved),
		errors.Is(err, decision.ErrNotMonetary),
		errors.Is(err, decision.ErrHasBallots):
		return apperr.BadRequest("invalid_state", err.Error(), err)
	case errors.Is(err, decision.ErrDeadlinePassed):
		return apperr.BadRequest("deadline_passed", "voting deadline has passed", err)
	case errors.Is(err, decision.ErrUnknownOption):
		return apperr.BadRequest("invalid_option", "option does not belong to this decision", err)
	case errors.Is(err, decision.ErrTitleRequired),
		errors.Is(err, decision.ErrAmountRequired),
		errors.Is(err, decision.ErrEmptyOption),
		errors.Is(err, decision.ErrUnknownKind),
		errors.Is(err, decision.ErrTooFewOptions),
		errors.Is(err, decision.ErrInvalidPercent),
		errors.Is(err, decision.ErrInvalidWindow):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, decision.ErrAlreadyVoted):
		return apperr.Conflict("already_voted", "voter already cast a ballot", err)
	case errors.Is(err, decision.ErrAlreadyExecuted):
		return apperr.Conflict("already_executed", "decision was already executed", err)
	case errors.Is(err, decision.ErrVersionConflict):
		return apperr.Conflict("version_conflict", "decision was modified concurrently, retry", err)

	case errors.Is(err, ledger.ErrInvalidType),
		errors.Is(err, ledger.ErrInvalidAmount):
		return apperr.BadRequest("invalid_input", err.Error(), err)
	case errors.Is(err, ledger.ErrNotOwnEntry),
		errors.Is(err, ledger.ErrOfficerOnly):
		return apperr.Forbidden("wrong_role", err.Error(), err)

	case errors.Is(err, notification.ErrNotFound):
		return apperr.NotFound("notification_not_found", "notification not found", err)

	default:
		return apperr.Internal("internal_error", http.StatusText(http.StatusInternalServerError), err)
	}
}
