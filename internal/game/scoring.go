package game

import "sort"

// RankingEntry is one scoreboard row, derived on demand from player state.
// CharCount and SubmitTime are present only when the player has a
// submission this round; Code is present only in post-round payloads.
type RankingEntry struct {
	Position    int      `json:"position"`
	Name        string   `json:"name"`
	Solved      bool     `json:"solved"`
	TestsPassed int      `json:"tests_passed"`
	TestsTotal  int      `json:"tests_total"`
	CharCount   *int     `json:"char_count,omitempty"`
	SubmitTime  *float64 `json:"submit_time,omitempty"`
	LockedAt    *float64 `json:"locked_at,omitempty"`
	Error       string   `json:"error,omitempty"`
	Code        string   `json:"code,omitempty"`
}

// RankPlayers produces the scoreboard for one round. It is pure: players
// must be given in join order, and the result is deterministic for a given
// input.
//
// Sort order (best first):
//  1. solved (true before false)
//  2. fewer characters (solved entries only)
//  3. earlier submit time (solved entries only)
//  4. more tests passed
//  5. join order (stable tiebreak)
//
// Positions are assigned 1..N by final index, so they are always unique
// even when displayed stats tie.
//
// includeCode attaches each player's submitted source. Only set it for
// post-round payloads — live scoreboards must not leak opponent code.
func RankPlayers(players []*Player, includeCode bool) []RankingEntry {
	entries := make([]RankingEntry, 0, len(players))
	subs := make([]*Submission, 0, len(players))

	for _, p := range players {
		entry := RankingEntry{
			Name:     p.Name,
			LockedAt: p.lockedAt,
		}
		if sub := p.best; sub != nil {
			entry.Solved = sub.Solved
			entry.TestsPassed = sub.Passed
			entry.TestsTotal = sub.Total
			entry.Error = sub.Error
			charCount := sub.CharCount
			submitTime := sub.SubmitTime
			entry.CharCount = &charCount
			entry.SubmitTime = &submitTime
			if includeCode {
				entry.Code = sub.Code
			}
		}
		entries = append(entries, entry)
		subs = append(subs, p.best)
	}

	idx := make([]int, len(entries))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return outranks(subs[idx[a]], subs[idx[b]])
	})

	ranked := make([]RankingEntry, len(entries))
	for pos, i := range idx {
		ranked[pos] = entries[i]
		ranked[pos].Position = pos + 1
	}
	return ranked
}

// outranks reports whether a strictly outranks b; equal entries keep join
// order via the stable sort. A missing submission counts as unsolved with
// zero tests passed.
func outranks(a, b *Submission) bool {
	solvedA, solvedB := a != nil && a.Solved, b != nil && b.Solved
	if solvedA != solvedB {
		return solvedA
	}
	if solvedA && solvedB {
		if a.CharCount != b.CharCount {
			return a.CharCount < b.CharCount
		}
		if a.SubmitTime != b.SubmitTime {
			return a.SubmitTime < b.SubmitTime
		}
	}
	passedA, passedB := 0, 0
	if a != nil {
		passedA = a.Passed
	}
	if b != nil {
		passedB = b.Passed
	}
	return passedA > passedB
}
