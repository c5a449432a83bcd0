package decision

import (
	"testing"
	"time"
)

func monetaryDecision(quorum, approval int) *Decision {
	return &Decision{
		ID:              1,
		Kind:            KindMonetary,
		QuorumPercent:   quorum,
		ApprovalPercent: approval,
		Options: []Option{
			{ID: 1, Key: OptionFor, Label: "For", Position: 0},
			{ID: 2, Key: OptionAgainst, Label: "Against", Position: 1},
			{ID: 3, Key: OptionAbstain, Label: "Abstain", Position: 2},
		},
	}
}

func ballotsFor(optionIDs ...int64) []Ballot {
	res := make([]Ballot, 0, len(optionIDs))
	for i, id := range optionIDs {
		res = append(res, Ballot{ID: int64(i + 1), OptionID: id, VoterID: int64(i + 1)})
	}
	return res
}

func TestCountByOption(t *testing.T) {
	d := monetaryDecision(50, 50)
	counts, total := CountByOption(d.Options, ballotsFor(1, 1, 2, 3, 1))

	if total != 5 {
		t.Fatalf("expected total 5, got %d", total)
	}
	want := map[int64]int64{1: 3, 2: 1, 3: 1}
	for _, c := range counts {
		if c.Votes != want[c.OptionID] {
			t.Errorf("option %d: expected %d votes, got %d", c.OptionID, want[c.OptionID], c.Votes)
		}
	}
	if len(counts) != 3 {
		t.Fatalf("expected all 3 options in counts, got %d", len(counts))
	}
}

func TestQuorumBoundary(t *testing.T) {
	d := monetaryDecision(50, 0)
	now := time.Now()

	// 10 active members, quorum 50%: 4 votes fail, 5 pass.
	res := ComputeResult(d, ballotsFor(1, 1, 1, 2), 10, now)
	if res.QuorumMet {
		t.Fatalf("expected quorum not met with 4/10 votes")
	}
	res = ComputeResult(d, ballotsFor(1, 1, 1, 2, 2), 10, now)
	if !res.QuorumMet {
		t.Fatalf("expected quorum met with 5/10 votes")
	}
}

func TestApprovalBoundary(t *testing.T) {
	d := monetaryDecision(0, 60)
	// 10 votes, 6 for: exactly 60% is approved.
	res := ComputeResult(d, ballotsFor(1, 1, 1, 1, 1, 1, 2, 2, 2, 2), 10, time.Now())
	if res.ForPercentage != 60 {
		t.Fatalf("expected for percentage 60, got %v", res.ForPercentage)
	}
	if Outcome(d, res) != StatusApproved {
		t.Fatalf("expected approved at the threshold boundary")
	}
}

func TestApprovedScenario(t *testing.T) {
	// 4 active members, quorum 50, threshold 50; votes: for, for, against.
	d := monetaryDecision(50, 50)
	res := ComputeResult(d, ballotsFor(1, 1, 2), 4, time.Now())

	if res.TotalVotes != 3 {
		t.Fatalf("expected 3 votes, got %d", res.TotalVotes)
	}
	if res.ParticipationRate != 75 {
		t.Fatalf("expected participation 75, got %v", res.ParticipationRate)
	}
	if !res.QuorumMet {
		t.Fatalf("expected quorum met (3 >= 2)")
	}
	if res.ForPercentage < 66.6 || res.ForPercentage > 66.7 {
		t.Fatalf("expected for percentage ~66.7, got %v", res.ForPercentage)
	}
	if Outcome(d, res) != StatusApproved {
		t.Fatalf("expected approved")
	}
}

func TestQuorumFailureRejectsDespiteUnanimity(t *testing.T) {
	// Same group, single unanimous vote: rejected because 1 < 2.
	d := monetaryDecision(50, 50)
	res := ComputeResult(d, ballotsFor(1), 4, time.Now())

	if res.QuorumMet {
		t.Fatalf("expected quorum not met (1 < 2)")
	}
	if res.ForPercentage != 100 {
		t.Fatalf("expected for percentage 100, got %v", res.ForPercentage)
	}
	if Outcome(d, res) != StatusRejected {
		t.Fatalf("expected rejected on quorum failure")
	}
}

func TestZeroVotesRejected(t *testing.T) {
	d := monetaryDecision(0, 50)
	res := ComputeResult(d, nil, 4, time.Now())
	if res.ForPercentage != 0 {
		t.Fatalf("expected 0 for percentage on empty vote set, got %v", res.ForPercentage)
	}
	if Outcome(d, res) != StatusRejected {
		t.Fatalf("expected rejected with zero votes")
	}
}

func pollDecision() *Decision {
	return &Decision{
		ID:   2,
		Kind: KindPoll,
		Options: []Option{
			{ID: 10, Label: "Friday", Position: 0},
			{ID: 11, Label: "Saturday", Position: 1},
			{ID: 12, Label: "Sunday", Position: 2},
		},
	}
}

func TestPollWinner(t *testing.T) {
	d := pollDecision()
	res := ComputeResult(d, ballotsFor(10, 11, 11, 12), 5, time.Now())

	if res.WinningOptionID == nil || *res.WinningOptionID != 11 {
		t.Fatalf("expected option 11 to win, got %+v", res.WinningOptionID)
	}
	if res.Tie {
		t.Fatalf("did not expect a tie")
	}
	if Outcome(d, res) != StatusClosed {
		t.Fatalf("polls terminate at closed")
	}
}

func TestPollTieHasNoWinner(t *testing.T) {
	d := pollDecision()
	res := ComputeResult(d, ballotsFor(10, 10, 11, 11), 5, time.Now())

	if res.WinningOptionID != nil {
		t.Fatalf("expected no winner on a tie, got %v", *res.WinningOptionID)
	}
	if !res.Tie {
		t.Fatalf("expected tie flag")
	}
}

func TestQuorumNeededRounding(t *testing.T) {
	cases := []struct {
		percent int
		members int64
		want    int64
	}{
		{50, 10, 5},
		{50, 3, 2},
		{0, 10, 0},
		{100, 7, 7},
		{33, 10, 4},
	}
	for _, c := range cases {
		if got := quorumNeeded(c.percent, c.members); got != c.want {
			t.Errorf("quorumNeeded(%d, %d) = %d, want %d", c.percent, c.members, got, c.want)
		}
	}
}
