package game

import "unicode"

// Conn is the narrow connection handle a room holds per player. The
// websocket layer implements it; tests use in-memory fakes.
type Conn interface {
	// Send delivers one outbound message. It must not block the caller;
	// slow consumers are the implementation's problem.
	Send(msg Outbound)
	// Close tears the connection down.
	Close()
}

// Submission is the immutable result of one executed submission.
type Submission struct {
	Code       string
	Solved     bool
	Passed     int
	Total      int
	CharCount  int
	SubmitTime float64 // seconds since round start
	Error      string
	Stdout     string
	Stderr     string
}

// betterThan reports whether s strictly outranks old per the ranking order:
// solved first, then fewer characters, then earlier submit, then more tests
// passed.
func (s *Submission) betterThan(old *Submission) bool {
	if old == nil {
		return true
	}
	if s.Solved != old.Solved {
		return s.Solved
	}
	if s.Solved {
		if s.CharCount != old.CharCount {
			return s.CharCount < old.CharCount
		}
		if s.SubmitTime != old.SubmitTime {
			return s.SubmitTime < old.SubmitTime
		}
	}
	return s.Passed > old.Passed
}

// Player is one participant's session in a room. All fields are owned by
// the room's event loop; nothing outside the loop touches them.
type Player struct {
	Name      string
	conn      Conn // nil while disconnected
	joinIndex int

	best     *Submission
	lockedAt *float64 // seconds since round start, nil until locked
}

// Connected reports whether the player currently holds a live connection.
func (p *Player) Connected() bool {
	return p.conn != nil
}

// Locked reports whether the player has finalized this round.
func (p *Player) Locked() bool {
	return p.lockedAt != nil
}

// resetRound clears per-round submission state.
func (p *Player) resetRound() {
	p.best = nil
	p.lockedAt = nil
}

func (p *Player) send(msg Outbound) {
	if p.conn != nil {
		p.conn.Send(msg)
	}
}

// CountSubmissionChars counts the characters of a submission with
// whitespace excluded.
func CountSubmissionChars(code string) int {
	count := 0
	for _, r := range code {
		if !unicode.IsSpace(r) {
			count++
		}
	}
	return count
}
