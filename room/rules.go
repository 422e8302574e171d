package room

import (
	"strings"

	"TC/configs"

	set "github.com/deckarep/golang-set"
)

// Pure decision rules. Nothing in this file mutates its inputs or touches
// the Context; the managers act on the returned values under the latch.

// Ballot is the outcome of tallying one cast vote.
type Ballot uint8

const (
	BallotContinue Ballot = iota
	BallotPassed
	BallotFailed
	BallotIneligible
	BallotDuplicate
)

// KickQuorum is the strict majority over the connection snapshot taken at
// vote start, target included.
func KickQuorum(total int) int {
	return total/2 + 1
}

// ClockIncrement gives the seconds credited to the side that just moved.
func ClockIncrement(remaining int) int {
	if remaining <= configs.LowTimeThreshold {
		return configs.LowTimeIncrement
	}
	return 0
}

// FinalizationReady reports whether the turn can be finalized: every online
// member of the active team has a proposal on file. Offline members' prior
// proposals stay in the candidate pool but do not hold up the turn.
func FinalizationReady(status uint8, activeIDs set.Set, connected set.Set, proposals map[string]*Proposal) bool {
	if status != AwaitingProposals {
		return false
	}
	online := activeIDs.Intersect(connected)
	if online.Cardinality() == 0 {
		return false
	}
	for _, pid := range online.ToSlice() {
		if _, ok := proposals[pid.(string)]; !ok {
			return false
		}
	}
	return true
}

// TeamAbandoned reports whether one team has emptied out mid-game, and who
// wins by abandonment.
func TeamAbandoned(whiteIDs, blackIDs set.Set) (winner string, abandoned bool) {
	if whiteIDs.Cardinality() == 0 && blackIDs.Cardinality() > 0 {
		return configs.Black, true
	}
	if blackIDs.Cardinality() == 0 && whiteIDs.Cardinality() > 0 {
		return configs.White, true
	}
	return "", false
}

// CastUnanimous tallies a vote that requires every eligible voter to agree
// (team votes, reset votes). A single no fails the vote. The returned set is
// a fresh copy; the input yes set is never mutated.
func CastUnanimous(eligible, yes set.Set, required int, voter string, approve bool) (set.Set, Ballot) {
	if !eligible.Contains(voter) {
		return yes, BallotIneligible
	}
	if !approve {
		return yes, BallotFailed
	}
	if yes.Contains(voter) {
		return yes, BallotDuplicate
	}
	next := yes.Clone()
	next.Add(voter)
	if next.Cardinality() >= required {
		return next, BallotPassed
	}
	return next, BallotContinue
}

// CastMajority tallies a strict-majority vote (kick votes). Voters may switch
// sides; a repeat of the same choice is a duplicate. Passing is detected as
// soon as the quorum is reached, failing as soon as it becomes unreachable.
func CastMajority(eligible, yes, no set.Set, required int, voter string, approve bool) (set.Set, set.Set, Ballot) {
	if !eligible.Contains(voter) {
		return yes, no, BallotIneligible
	}
	if approve && yes.Contains(voter) || !approve && no.Contains(voter) {
		return yes, no, BallotDuplicate
	}
	nextYes, nextNo := yes.Clone(), no.Clone()
	if approve {
		nextNo.Remove(voter)
		nextYes.Add(voter)
	} else {
		nextYes.Remove(voter)
		nextNo.Add(voter)
	}
	if nextYes.Cardinality() >= required {
		return nextYes, nextNo, BallotPassed
	}
	if eligible.Cardinality()-nextNo.Cardinality() < required {
		return nextYes, nextNo, BallotFailed
	}
	return nextYes, nextNo, BallotContinue
}

// TrimName normalizes a display name: surrounding whitespace stripped, capped
// at the configured length. Empty results are rejected by the caller.
func TrimName(name string) string {
	trimmed := []rune(strings.TrimSpace(name))
	if len(trimmed) > configs.MaxNameLength {
		trimmed = trimmed[:configs.MaxNameLength]
	}
	return string(trimmed)
}
