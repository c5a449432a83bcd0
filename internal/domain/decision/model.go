package decision

import (
	"context"
	"time"
)

// Kind discriminates the two decision families the group can run: a
// monetary proposal (fixed for/against/abstain choice set, quorum and
// approval threshold, executable into a ledger transaction) and a
// free-form poll (creator-defined options, highest count wins).
type Kind string

const (
	KindMonetary Kind = "monetary"
	KindPoll     Kind = "poll"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExecuted Status = "executed"
)

// Option keys for monetary decisions. Poll options carry no key.
const (
	OptionFor     = "for"
	OptionAgainst = "against"
	OptionAbstain = "abstain"
)

type Decision struct {
	ID          int64    `json:"id"`
	GroupID     int64    `json:"group_id"`
	CreatorID   int64    `json:"creator_id"`
	Kind        Kind     `json:"kind"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Currency    *string  `json:"currency,omitempty"`

	AllowChangeVote    bool `json:"allow_change_vote"`
	AnonymousVoting    bool `json:"anonymous_voting"`
	ShowInterimResults bool `json:"show_interim_results"`
	QuorumPercent      int  `json:"quorum_percent"`
	ApprovalPercent    int  `json:"approval_percent"`

	Status   Status    `json:"status"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	Version  int64     `json:"-"`

	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	TransactionID *int64     `json:"transaction_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []Option `json:"options,omitempty"`
	Result  *Result  `json:"result,omitempty"`
}

// Terminal reports whether the decision has reached a final status.
func (d *Decision) Terminal() bool {
	switch d.Status {
	case StatusClosed, StatusApproved, StatusRejected, StatusExecuted:
		return true
	}
	return false
}

func (d *Decision) findOption(optionID int64) *Option {
	for i := range d.Options {
		if d.Options[i].ID == optionID {
			return &d.Options[i]
		}
	}
	return nil
}

type Option struct {
	ID         int64  `json:"id"`
	DecisionID int64  `json:"decision_id"`
	Key        string `json:"key,omitempty"`
	Label      string `json:"label"`
	Position   int    `json:"position"`
}

// Ballot is one voter's record on a decision. At most one ballot exists
// per voter; a recast replaces it, never appends.
type Ballot struct {
	ID         int64     `json:"id"`
	DecisionID int64     `json:"decision_id"`
	OptionID   int64     `json:"option_id"`
	VoterID    int64     `json:"voter_id,omitempty"`
	Comment    *string   `json:"comment,omitempty"`
	CastAt     time.Time `json:"cast_at"`
}

type OptionCount struct {
	OptionID int64  `json:"option_id"`
	Key      string `json:"key,omitempty"`
	Label    string `json:"label"`
	Votes    int64  `json:"votes"`
}

// Result is computed once, at close, from the authoritative ballot set.
type Result struct {
	Counts            []OptionCount `json:"counts"`
	TotalVotes        int64         `json:"total_votes"`
	EligibleMembers   int64         `json:"eligible_members"`
	ParticipationRate float64       `json:"participation_rate"`

	// Monetary outcome.
	QuorumMet     bool    `json:"quorum_met,omitempty"`
	ForPercentage float64 `json:"for_percentage,omitempty"`

	// Poll outcome.
	WinningOptionID *int64 `json:"winning_option_id,omitempty"`
	Tie             bool   `json:"tie,omitempty"`

	DecidedAt time.Time `json:"decided_at"`
}

type Repository interface {
	Create(ctx context.Context, d *Decision, options []Option) (int64, error)
	GetByID(ctx context.Context, id int64) (*Decision, error)
	ListByGroup(ctx context.Context, groupID int64) ([]Decision, error)

	Ballots(ctx context.Context, decisionID int64) ([]Ballot, error)
	CountBallots(ctx context.Context, decisionID int64) (int64, error)
	// CastBallot atomically inserts the voter's ballot. When replace is
	// true an existing ballot for the same voter is overwritten;
	// otherwise the cast fails with ErrAlreadyVoted.
	CastBallot(ctx context.Context, b *Ballot, replace bool) error

	// CloseWithResult and MarkExecuted are compare-and-swap updates:
	// they fail with ErrVersionConflict unless the stored version still
	// matches the one read.
	CloseWithResult(ctx context.Context, id, version int64, status Status, res *Result) error
	MarkExecuted(ctx context.Context, id, version int64, executedAt time.Time, transactionID *int64) error

	Delete(ctx context.Context, id int64) error
}
