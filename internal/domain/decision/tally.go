package decision

import "time"

// CountByOption tallies the ballot set against the option list. Every
// option appears in the output, zero-vote options included, in option
// position order.
func CountByOption(options []Option, ballots []Ballot) ([]OptionCount, int64) {
	byID := make(map[int64]int64, len(options))
	for _, b := range ballots {
		byID[b.OptionID]++
	}

	counts := make([]OptionCount, 0, len(options))
	var total int64
	for _, opt := range options {
		c := byID[opt.ID]
		counts = append(counts, OptionCount{
			OptionID: opt.ID,
			Key:      opt.Key,
			Label:    opt.Label,
			Votes:    c,
		})
		total += c
	}
	return counts, total
}

// quorumNeeded is ceil(quorumPercent/100 * eligibleMembers) in integer
// arithmetic. The boundary is inclusive: totalVotes >= quorumNeeded.
func quorumNeeded(quorumPercent int, eligibleMembers int64) int64 {
	if quorumPercent <= 0 {
		return 0
	}
	return (int64(quorumPercent)*eligibleMembers + 99) / 100
}

// ComputeResult derives the decision outcome from the current ballot set
// and the group's active member count at evaluation time. It is a pure
// function; close recomputes it fresh rather than patching cached counts.
func ComputeResult(d *Decision, ballots []Ballot, eligibleMembers int64, now time.Time) *Result {
	counts, total := CountByOption(d.Options, ballots)

	res := &Result{
		Counts:          counts,
		TotalVotes:      total,
		EligibleMembers: eligibleMembers,
		DecidedAt:       now,
	}
	if eligibleMembers > 0 {
		res.ParticipationRate = float64(total) * 100.0 / float64(eligibleMembers)
	}

	switch d.Kind {
	case KindMonetary:
		var votesFor int64
		for _, c := range counts {
			if c.Key == OptionFor {
				votesFor = c.Votes
			}
		}
		if total > 0 {
			res.ForPercentage = float64(votesFor) * 100.0 / float64(total)
		}
		res.QuorumMet = total >= quorumNeeded(d.QuorumPercent, eligibleMembers)

	case KindPoll:
		var best *OptionCount
		tie := false
		for i := range counts {
			c := &counts[i]
			switch {
			case best == nil || c.Votes > best.Votes:
				best = c
				tie = false
			case c.Votes == best.Votes:
				tie = true
			}
		}
		if best != nil && best.Votes > 0 && !tie {
			id := best.OptionID
			res.WinningOptionID = &id
		} else if total > 0 {
			res.Tie = tie
		}
	}

	return res
}

// Outcome maps a computed result to the decision's terminal status:
// approved/rejected for monetary decisions, closed for polls.
func Outcome(d *Decision, res *Result) Status {
	if d.Kind != KindMonetary {
		return StatusClosed
	}
	if res.QuorumMet && res.ForPercentage >= float64(d.ApprovalPercent) {
		return StatusApproved
	}
	return StatusRejected
}
