package decision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tontine-api/internal/domain/group"
)

var (
	ErrNotFound        = errors.New("decision not found")
	ErrTitleRequired   = errors.New("title is required")
	ErrAmountRequired  = errors.New("monetary decision requires a positive amount")
	ErrEmptyOption     = errors.New("option label must not be empty")
	ErrUnknownKind     = errors.New("kind must be monetary or poll")
	ErrTooFewOptions   = errors.New("poll must have at least 2 options")
	ErrInvalidPercent  = errors.New("quorum and approval percentages must be between 0 and 100")
	ErrInvalidWindow   = errors.New("voting deadline must be after the start")
	ErrPolicyForbids   = errors.New("group policy restricts decision creation to officers")
	ErrNotCloser       = errors.New("only the creator or a group admin may close the decision")
	ErrNotExecutor     = errors.New("only an admin or treasurer may execute the decision")
	ErrNotCreator      = errors.New("only the creator may delete the decision")
	ErrWrongStatus     = errors.New("decision status does not allow this transition")
	ErrVotingNotOpen   = errors.New("voting has not started yet")
	ErrDeadlinePassed  = errors.New("voting deadline has passed")
	ErrUnknownOption   = errors.New("option does not belong to this decision")
	ErrAlreadyVoted    = errors.New("voter already cast a ballot and changes are not allowed")
	ErrAlreadyExecuted = errors.New("decision was already executed")
	ErrNotApproved     = errors.New("only approved decisions can be executed")
	ErrNotMonetary     = errors.New("only monetary decisions can be executed")
	ErrHasBallots      = errors.New("decision with cast ballots cannot be deleted")
	ErrVersionConflict = errors.New("decision was modified concurrently, retry")
)

// MembershipGate answers "is this user an active member, with what role"
// and supplies the quorum base. Backed by the group service.
type MembershipGate interface {
	Membership(ctx context.Context, groupID, userID int64) (*group.Member, error)
	CountActiveMembers(ctx context.Context, groupID int64) (int64, error)
}

// LedgerRecorder realizes an approved monetary decision as a ledger
// transaction on execute.
type LedgerRecorder interface {
	RecordExecution(ctx context.Context, groupID, actorID, decisionID int64, amount float64, currency, category, description string) (int64, error)
}

// GroupPolicy is the slice of group configuration the engine needs at
// creation time.
type GroupPolicy interface {
	Get(ctx context.Context, groupID int64) (*group.Group, error)
}

type Service struct {
	repo   Repository
	gate   MembershipGate
	groups GroupPolicy
	ledger LedgerRecorder
	now    func() time.Time
}

func NewService(repo Repository, gate MembershipGate, groups GroupPolicy, ledger LedgerRecorder) *Service {
	return &Service{
		repo:   repo,
		gate:   gate,
		groups: groups,
		ledger: ledger,
		now:    time.Now,
	}
}

type CreateInput struct {
	GroupID     int64
	Kind        Kind
	Title       string
	Description *string
	Category    *string
	Amount      *float64
	Currency    *string

	Options []string // poll only; monetary gets for/against/abstain

	AllowChangeVote    bool
	AnonymousVoting    bool
	ShowInterimResults bool
	QuorumPercent      int
	ApprovalPercent    int

	StartsAt *time.Time
	EndsAt   *time.Time
}

func (s *Service) Create(ctx context.Context, callerID int64, in CreateInput) (*Decision, error) {
	m, err := s.gate.Membership(ctx, in.GroupID, callerID)
	if err != nil {
		return nil, err
	}

	g, err := s.groups.Get(ctx, in.GroupID)
	if err != nil {
		return nil, group.ErrGroupNotFound
	}
	if g.ProposalPolicy == group.PolicyOfficers && !m.IsOfficer() {
		return nil, ErrPolicyForbids
	}

	if in.Title == "" {
		return nil, ErrTitleRequired
	}
	if in.QuorumPercent < 0 || in.QuorumPercent > 100 ||
		in.ApprovalPercent < 0 || in.ApprovalPercent > 100 {
		return nil, ErrInvalidPercent
	}

	now := s.now()
	startsAt := now
	if in.StartsAt != nil {
		startsAt = *in.StartsAt
	}
	endsAt := startsAt.Add(time.Duration(g.VoteDurationHours) * time.Hour)
	if in.EndsAt != nil {
		endsAt = *in.EndsAt
	}
	if !endsAt.After(startsAt) {
		return nil, ErrInvalidWindow
	}

	d := &Decision{
		GroupID:            in.GroupID,
		CreatorID:          callerID,
		Kind:               in.Kind,
		Title:              in.Title,
		Description:        in.Description,
		Category:           in.Category,
		AllowChangeVote:    in.AllowChangeVote,
		AnonymousVoting:    in.AnonymousVoting,
		ShowInterimResults: in.ShowInterimResults,
		QuorumPercent:      in.QuorumPercent,
		ApprovalPercent:    in.ApprovalPercent,
		Status:             StatusActive,
		StartsAt:           startsAt,
		EndsAt:             endsAt,
	}

	var options []Option
	switch in.Kind {
	case KindMonetary:
		if in.Amount == nil || *in.Amount <= 0 {
			return nil, ErrAmountRequired
		}
		d.Amount = in.Amount
		currency := g.Currency
		if in.Currency != nil && *in.Currency != "" {
			currency = *in.Currency
		}
		d.Currency = &currency
		options = []Option{
			{Key: OptionFor, Label: "For", Position: 0},
			{Key: OptionAgainst, Label: "Against", Position: 1},
			{Key: OptionAbstain, Label: "Abstain", Position: 2},
		}
	case KindPoll:
		if len(in.Options) < 2 {
			return nil, ErrTooFewOptions
		}
		for i, label := range in.Options {
			if label == "" {
				return nil, fmt.Errorf("option %d: %w", i+1, ErrEmptyOption)
			}
			options = append(options, Option{Label: label, Position: i})
		}
	default:
		return nil, ErrUnknownKind
	}

	id, err := s.repo.Create(ctx, d, options)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByGroup(ctx context.Context, callerID, groupID int64) ([]Decision, error) {
	if _, err := s.gate.Membership(ctx, groupID, callerID); err != nil {
		return nil, err
	}
	return s.repo.ListByGroup(ctx, groupID)
}

// Get returns the decision and its ballots for a member of the owning
// group. Ballots are anonymized when the decision requires it, and
// withheld entirely while voting is open unless interim results are on.
func (s *Service) Get(ctx context.Context, callerID, id int64) (*Decision, []Ballot, error) {
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	if _, err := s.gate.Membership(ctx, d.GroupID, callerID); err != nil {
		return nil, nil, err
	}

	if !d.Terminal() && !d.ShowInterimResults && callerID != d.CreatorID {
		return d, nil, nil
	}

	ballots, err := s.repo.Ballots(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if d.AnonymousVoting {
		for i := range ballots {
			ballots[i].VoterID = 0
		}
	}
	return d, ballots, nil
}

// Cast records the caller's ballot. Permitted only while the decision is
// active and now is inside the voting window; a second ballot by the same
// voter replaces the first only when the decision allows changes.
func (s *Service) Cast(ctx context.Context, callerID, decisionID, optionID int64, comment *string) (*Decision, error) {
	d, err := s.repo.GetByID(ctx, decisionID)
	if err != nil {
		return nil, ErrNotFound
	}
	if _, err := s.gate.Membership(ctx, d.GroupID, callerID); err != nil {
		return nil, err
	}

	if d.Status != StatusActive {
		return nil, ErrWrongStatus
	}
	now := s.now()
	if now.Before(d.StartsAt) {
		return nil, ErrVotingNotOpen
	}
	if now.After(d.EndsAt) {
		return nil, ErrDeadlinePassed
	}
	if d.findOption(optionID) == nil {
		return nil, ErrUnknownOption
	}

	b := &Ballot{
		DecisionID: decisionID,
		OptionID:   optionID,
		VoterID:    callerID,
		Comment:    comment,
		CastAt:     now,
	}
	if err := s.repo.CastBallot(ctx, b, d.AllowChangeVote); err != nil {
		return nil, err
	}
	return d, nil
}

// Close tallies the ballot set and moves the decision to its terminal
// status. Only the creator or a group admin may close; the transition is
// guarded by a version check so a concurrent close loses cleanly.
func (s *Service) Close(ctx context.Context, callerID, decisionID int64) (*Decision, error) {
	d, err := s.repo.GetByID(ctx, decisionID)
	if err != nil {
		return nil, ErrNotFound
	}
	m, err := s.gate.Membership(ctx, d.GroupID, callerID)
	if err != nil {
		return nil, err
	}
	if callerID != d.CreatorID && m.Role != group.RoleAdmin {
		return nil, ErrNotCloser
	}
	if d.Status != StatusActive {
		return nil, ErrWrongStatus
	}

	ballots, err := s.repo.Ballots(ctx, decisionID)
	if err != nil {
		return nil, err
	}
	eligible, err := s.gate.CountActiveMembers(ctx, d.GroupID)
	if err != nil {
		return nil, err
	}

	res := ComputeResult(d, ballots, eligible, s.now())
	status := Outcome(d, res)

	if err := s.repo.CloseWithResult(ctx, d.ID, d.Version, status, res); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, decisionID)
}

// Execute realizes an approved monetary decision as a ledger transaction.
// Idempotent: a second call fails with ErrAlreadyExecuted and leaves the
// recorded execution untouched.
func (s *Service) Execute(ctx context.Context, callerID, decisionID int64) (*Decision, error) {
	d, err := s.repo.GetByID(ctx, decisionID)
	if err != nil {
		return nil, ErrNotFound
	}
	m, err := s.gate.Membership(ctx, d.GroupID, callerID)
	if err != nil {
		return nil, err
	}
	if !m.IsOfficer() {
		return nil, ErrNotExecutor
	}
	if d.Kind != KindMonetary {
		return nil, ErrNotMonetary
	}
	if d.Status == StatusExecuted || d.ExecutedAt != nil {
		return nil, ErrAlreadyExecuted
	}
	if d.Status != StatusApproved {
		return nil, ErrNotApproved
	}

	var txID *int64
	if s.ledger != nil && d.Amount != nil {
		category := "decision"
		if d.Category != nil {
			category = *d.Category
		}
		currency := ""
		if d.Currency != nil {
			currency = *d.Currency
		}
		id, err := s.ledger.RecordExecution(ctx, d.GroupID, callerID, d.ID, *d.Amount, currency, category, d.Title)
		if err != nil {
			return nil, err
		}
		txID = &id
	}

	if err := s.repo.MarkExecuted(ctx, d.ID, d.Version, s.now(), txID); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, decisionID)
}

// Delete removes a decision. Only the creator may delete, and only while
// no ballot has been cast.
func (s *Service) Delete(ctx context.Context, callerID, decisionID int64) error {
	d, err := s.repo.GetByID(ctx, decisionID)
	if err != nil {
		return ErrNotFound
	}
	if _, err := s.gate.Membership(ctx, d.GroupID, callerID); err != nil {
		return err
	}
	if callerID != d.CreatorID {
		return ErrNotCreator
	}

	n, err := s.repo.CountBallots(ctx, decisionID)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasBallots
	}
	return s.repo.Delete(ctx, decisionID)
}
