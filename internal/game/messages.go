package game

// Outbound is the closed set of messages a room sends to clients. Every
// message carries a "type" discriminator set by its constructor.
type Outbound interface {
	isOutbound()
}

// Message type discriminators (room → client).
const (
	TypeRoomState    = "room_state"
	TypeGameStart    = "game_start"
	TypeTick         = "tick"
	TypeSubmitResult = "submit_result"
	TypeLocked       = "locked"
	TypeScoreboard   = "scoreboard"
	TypeRoundOver    = "round_over"
	TypeBreakTick    = "break_tick"
	TypeGameOver     = "game_over"
	TypeChat         = "chat"
	TypeError        = "error"
)

// ProblemView is the client-visible slice of a problem. Hidden test cases
// are stripped.
type ProblemView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Difficulty  string `json:"difficulty"`
	Description string `json:"description"`
	EntryPoint  string `json:"entry_point"`
	StarterCode string `json:"starter_code"`
}

// RoomStateMsg describes lobby membership and configuration.
type RoomStateMsg struct {
	Type         string   `json:"type"`
	RoomID       string   `json:"room_id"`
	State        string   `json:"state"`
	Host         string   `json:"host"`
	Players      []string `json:"players"`
	TimeLimit    int      `json:"time_limit"`
	Difficulty   string   `json:"difficulty,omitempty"`
	CurrentRound int      `json:"current_round"`
	TotalRounds  int      `json:"total_rounds"`
}

// GameStartMsg announces a new round and its problem.
type GameStartMsg struct {
	Type         string      `json:"type"`
	Problem      ProblemView `json:"problem"`
	TimeLimit    int         `json:"time_limit"`
	CurrentRound int         `json:"current_round"`
	TotalRounds  int         `json:"total_rounds"`
}

// TickMsg is the periodic round countdown broadcast.
type TickMsg struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
	Elapsed   int    `json:"elapsed"`
}

// SubmitResultMsg is unicast to a submitter once execution finishes.
type SubmitResultMsg struct {
	Type       string  `json:"type"`
	Solved     bool    `json:"solved"`
	Passed     int     `json:"passed"`
	Total      int     `json:"total"`
	CharCount  int     `json:"char_count"`
	SubmitTime float64 `json:"submit_time"`
	Error      string  `json:"error,omitempty"`
	Stdout     string  `json:"stdout,omitempty"`
	Stderr     string  `json:"stderr,omitempty"`
}

// LockedMsg confirms a lock-in to the locking player.
type LockedMsg struct {
	Type string `json:"type"`
}

// ScoreboardMsg is the live ranking broadcast.
type ScoreboardMsg struct {
	Type     string         `json:"type"`
	Rankings []RankingEntry `json:"rankings"`
}

// RoundOverMsg closes a round that has more rounds after it.
type RoundOverMsg struct {
	Type         string         `json:"type"`
	Rankings     []RankingEntry `json:"rankings"`
	BreakSeconds int            `json:"break_seconds"`
	CurrentRound int            `json:"current_round"`
	TotalRounds  int            `json:"total_rounds"`
}

// BreakTickMsg is the between-rounds countdown broadcast.
type BreakTickMsg struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

// GameOverMsg closes the final round.
type GameOverMsg struct {
	Type     string         `json:"type"`
	Rankings []RankingEntry `json:"rankings"`
}

// ChatMsg relays a chat line verbatim.
type ChatMsg struct {
	Type    string `json:"type"`
	Sender  string `json:"sender"`
	Message string `json:"message"`
}

// ErrorMsg is a targeted error reply.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (RoomStateMsg) isOutbound()    {}
func (GameStartMsg) isOutbound()    {}
func (TickMsg) isOutbound()         {}
func (SubmitResultMsg) isOutbound() {}
func (LockedMsg) isOutbound()       {}
func (ScoreboardMsg) isOutbound()   {}
func (RoundOverMsg) isOutbound()    {}
func (BreakTickMsg) isOutbound()    {}
func (GameOverMsg) isOutbound()     {}
func (ChatMsg) isOutbound()         {}
func (ErrorMsg) isOutbound()        {}

// NewErrorMsg builds a targeted error reply.
func NewErrorMsg(message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, Message: message}
}
