// Package game implements the room session engine: per-room state
// machines, deterministic ranking and the registry that owns room
// lifecycles. Each room serializes every operation — client messages,
// timer firings, execution results — through a single event loop, so
// room state needs no locks and scoreboards are always consistent
// snapshots.
package game

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"coderace/internal/problem"
	"coderace/internal/sandbox"
	"coderace/pkg/errors"
	"coderace/pkg/utils/contextkey"
	"coderace/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State is a room's lifecycle state.
type State string

const (
	StateLobby    State = "lobby"
	StatePlaying  State = "playing"
	StateFinished State = "finished"
)

// Executor runs one untrusted submission against a test suite. Faults come
// back inside the outcome, never as panics or protocol errors.
type Executor interface {
	Execute(ctx context.Context, req sandbox.Request) sandbox.Outcome
}

// RoomConfig is fixed at creation time.
type RoomConfig struct {
	Host             string
	Difficulty       string
	TimeLimitSeconds int
	TotalRounds      int
}

// Pacing controls round cadence. Tests inject short durations.
type Pacing struct {
	RoundTick     time.Duration
	BreakDuration time.Duration
	BreakTick     time.Duration
}

// DefaultPacing matches the production cadence: a 5s round tick and a
// 30s break counted down every second.
func DefaultPacing() Pacing {
	return Pacing{
		RoundTick:     5 * time.Second,
		BreakDuration: 30 * time.Second,
		BreakTick:     time.Second,
	}
}

// RoomInfo is a consistent snapshot of a room for the HTTP surface.
type RoomInfo struct {
	ID           string   `json:"room_id"`
	State        string   `json:"state"`
	Host         string   `json:"host"`
	Players      []string `json:"players"`
	Difficulty   string   `json:"difficulty,omitempty"`
	TimeLimit    int      `json:"time_limit"`
	CurrentRound int      `json:"current_round"`
	TotalRounds  int      `json:"total_rounds"`
}

const maxNameLength = 20

// Room is the unit of concurrency isolation. All fields below the
// divider are owned by the run loop; the atomics mirror just enough for
// the registry's sweeper to judge reclamation without entering the loop.
type Room struct {
	id       string
	cfg      RoomConfig
	pacing   Pacing
	executor Executor
	problems problem.Source

	events chan event
	done   chan struct{}

	// sweeper-visible mirrors
	connected     atomic.Int32
	timersPending atomic.Int32
	stateMirror   atomic.Value // State
	lastActivity  atomic.Int64 // unix nanos
	createdAt     time.Time

	// loop-owned state
	state          State
	players        map[string]*Player
	order          []*Player
	problem        *problem.Problem
	usedProblems   map[string]bool
	roundStartedAt time.Time
	currentRound   int
	timerGen       uint64
	countdown      *countdown
	lastTick       int
}

func newRoom(id string, cfg RoomConfig, pacing Pacing, executor Executor, problems problem.Source) *Room {
	r := &Room{
		id:           id,
		cfg:          cfg,
		pacing:       pacing,
		executor:     executor,
		problems:     problems,
		events:       make(chan event, 64),
		done:         make(chan struct{}),
		createdAt:    time.Now(),
		state:        StateLobby,
		players:      make(map[string]*Player),
		usedProblems: make(map[string]bool),
	}
	r.stateMirror.Store(StateLobby)
	r.touch()
	go r.run()
	return r
}

// ID returns the room code.
func (r *Room) ID() string { return r.id }

// Join binds a connection to a player name. It blocks until the room has
// processed the join and returns the canonical name the player was
// registered under; callers must address every later operation with it.
func (r *Room) Join(conn Conn, name string) (string, error) {
	reply := make(chan joinResult, 1)
	if !r.post(joinEvent{name: name, conn: conn, reply: reply}) {
		return "", errors.New(errors.RoomNotFound)
	}
	select {
	case res := <-reply:
		return res.name, res.err
	case <-r.done:
		return "", errors.New(errors.RoomNotFound)
	}
}

// Leave clears the player's connection handle. The player stays in the
// room for ranking purposes.
func (r *Room) Leave(conn Conn, name string) {
	r.post(leaveEvent{name: name, conn: conn})
}

// Start begins the first round. Host only. conn receives the error reply
// when the name is not a registered player.
func (r *Room) Start(conn Conn, name string) {
	r.post(startEvent{conn: conn, name: name})
}

// Submit queues a submission for sandboxed execution.
func (r *Room) Submit(conn Conn, name, code string) {
	r.post(submitEvent{conn: conn, name: name, code: code})
}

// Lock irrevocably finalizes the player's best submission for the round.
func (r *Room) Lock(conn Conn, name string) {
	r.post(lockEvent{conn: conn, name: name})
}

// Restart returns a fully finished game to the lobby. Host only.
func (r *Room) Restart(conn Conn, name string) {
	r.post(restartEvent{conn: conn, name: name})
}

// Chat relays a chat line to every connected player.
func (r *Room) Chat(name, message string) {
	r.post(chatEvent{name: name, message: message})
}

// Info returns a consistent snapshot of the room.
func (r *Room) Info() RoomInfo {
	reply := make(chan RoomInfo, 1)
	if !r.post(infoEvent{reply: reply}) {
		return RoomInfo{ID: r.id, State: string(StateFinished)}
	}
	select {
	case info := <-reply:
		return info
	case <-r.done:
		return RoomInfo{ID: r.id, State: string(StateFinished)}
	}
}

// Close stops the room's loop and cancels its timers.
func (r *Room) Close() {
	r.post(stopEvent{})
}

// post delivers an event to the loop, reporting false if the room has
// already shut down.
func (r *Room) post(ev event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) run() {
	ctx := r.logCtx()
	for ev := range r.events {
		r.touch()
		switch ev := ev.(type) {
		case joinEvent:
			ev.reply <- r.handleJoin(ev.name, ev.conn)
		case leaveEvent:
			r.handleLeave(ev.name, ev.conn)
		case startEvent:
			r.handleStart(ev.conn, ev.name)
		case submitEvent:
			r.handleSubmit(ev.conn, ev.name, ev.code)
		case execDoneEvent:
			r.handleExecDone(ev)
		case lockEvent:
			r.handleLock(ev.conn, ev.name)
		case restartEvent:
			r.handleRestart(ev.conn, ev.name)
		case chatEvent:
			r.broadcast(ChatMsg{Type: TypeChat, Sender: ev.name, Message: ev.message})
		case roundTickEvent:
			r.handleRoundTick(ev)
		case roundExpireEvent:
			r.handleRoundExpire(ev)
		case breakTickEvent:
			r.handleBreakTick(ev)
		case breakExpireEvent:
			r.handleBreakExpire(ev)
		case infoEvent:
			ev.reply <- r.snapshotInfo()
		case stopEvent:
			r.stopTimers()
			close(r.done)
			logger.Info(ctx, "room closed")
			return
		}
	}
}

// ---- join / leave ----

func (r *Room) handleJoin(name string, conn Conn) joinResult {
	name = strings.TrimSpace(name)
	if name == "" {
		return joinResult{err: errors.New(errors.NameRequired)}
	}
	if len(name) > maxNameLength {
		return joinResult{err: errors.New(errors.NameTooLong)}
	}

	if existing, ok := r.players[name]; ok {
		if existing.conn != nil {
			return joinResult{err: errors.Newf(errors.NameTaken, "Name '%s' is already taken", name)}
		}
		// A disconnected seat may be reclaimed, but only before the game
		// starts; there is no mid-round reconnection.
		if r.state != StateLobby {
			return joinResult{err: errors.New(errors.GameInProgress)}
		}
		existing.conn = conn
		r.connected.Add(1)
		r.broadcast(r.roomStateMsg())
		return joinResult{name: name}
	}

	if r.state != StateLobby {
		return joinResult{err: errors.New(errors.GameInProgress)}
	}

	p := &Player{Name: name, conn: conn, joinIndex: len(r.order)}
	r.players[name] = p
	r.order = append(r.order, p)
	r.connected.Add(1)
	r.broadcast(r.roomStateMsg())
	return joinResult{name: name}
}

func (r *Room) handleLeave(name string, conn Conn) {
	p, ok := r.players[name]
	if !ok || p.conn != conn {
		// A reconnect already replaced this handle.
		return
	}
	p.conn = nil
	r.connected.Add(-1)
	r.broadcast(r.roomStateMsg())
}

// ---- round lifecycle ----

func (r *Room) handleStart(conn Conn, name string) {
	p := r.players[name]
	if p == nil {
		r.sendToConn(conn, errors.New(errors.PlayerUnknown))
		return
	}
	if name != r.cfg.Host {
		r.sendError(p, errors.New(errors.NotHost).WithMessage("Only the host can start the game"))
		return
	}
	if r.state != StateLobby {
		r.sendError(p, errors.New(errors.AlreadyStarted))
		return
	}
	if len(r.players) == 0 {
		r.sendError(p, errors.New(errors.RoomEmpty))
		return
	}
	r.startRound(p)
}

// startRound picks a fresh problem and transitions to Playing. On problem
// exhaustion the room stays in its current state and everyone hears about
// it.
func (r *Room) startRound(requester *Player) {
	prob, err := r.problems.Pick(r.cfg.Difficulty, r.usedProblems)
	if err != nil {
		logger.Warn(r.logCtx(), "problem selection failed", zap.Error(err))
		if requester != nil {
			r.sendError(requester, err)
		} else {
			r.broadcast(NewErrorMsg(errors.GetError(err).Error()))
		}
		return
	}

	for _, p := range r.order {
		p.resetRound()
	}

	r.problem = prob
	r.usedProblems[prob.ID] = true
	r.setState(StatePlaying)
	r.roundStartedAt = time.Now()
	r.currentRound++
	r.lastTick = r.cfg.TimeLimitSeconds + 1

	r.broadcast(GameStartMsg{
		Type: TypeGameStart,
		Problem: ProblemView{
			ID:          prob.ID,
			Title:       prob.Title,
			Difficulty:  prob.Difficulty,
			Description: prob.Description,
			EntryPoint:  prob.EntryPoint,
			StarterCode: prob.StarterCode,
		},
		TimeLimit:    r.cfg.TimeLimitSeconds,
		CurrentRound: r.currentRound,
		TotalRounds:  r.cfg.TotalRounds,
	})

	gen := r.nextTimerGen()
	total := time.Duration(r.cfg.TimeLimitSeconds) * time.Second
	r.countdown = startCountdown(total, r.pacing.RoundTick,
		func(remaining int) { r.post(roundTickEvent{gen: gen, remaining: remaining}) },
		func() { r.post(roundExpireEvent{gen: gen}) },
	)
	r.timersPending.Store(1)
}

func (r *Room) handleRoundTick(ev roundTickEvent) {
	if ev.gen != r.timerGen || r.state != StatePlaying {
		return
	}
	remaining := ev.remaining
	// Ticks are monotonically non-increasing within a round.
	if remaining > r.lastTick {
		remaining = r.lastTick
	}
	r.lastTick = remaining
	r.broadcast(TickMsg{
		Type:      TypeTick,
		Remaining: remaining,
		Elapsed:   r.cfg.TimeLimitSeconds - remaining,
	})
}

func (r *Room) handleRoundExpire(ev roundExpireEvent) {
	if ev.gen != r.timerGen || r.state != StatePlaying {
		return
	}
	r.endRound()
}

// endRound transitions Playing → Finished on timer expiry. Timeout is the
// only round-ending trigger; unsubmitted players rank with zero tests
// passed.
func (r *Room) endRound() {
	r.stopTimers()
	r.setState(StateFinished)

	rankings := RankPlayers(r.order, true)

	if r.currentRound < r.cfg.TotalRounds {
		breakSeconds := int(r.pacing.BreakDuration / time.Second)
		r.broadcast(RoundOverMsg{
			Type:         TypeRoundOver,
			Rankings:     rankings,
			BreakSeconds: breakSeconds,
			CurrentRound: r.currentRound,
			TotalRounds:  r.cfg.TotalRounds,
		})

		gen := r.nextTimerGen()
		r.countdown = startCountdown(r.pacing.BreakDuration, r.pacing.BreakTick,
			func(remaining int) { r.post(breakTickEvent{gen: gen, remaining: remaining}) },
			func() { r.post(breakExpireEvent{gen: gen}) },
		)
		r.timersPending.Store(1)
		return
	}

	r.broadcast(GameOverMsg{Type: TypeGameOver, Rankings: rankings})
}

func (r *Room) handleBreakTick(ev breakTickEvent) {
	if ev.gen != r.timerGen || r.state != StateFinished {
		return
	}
	r.broadcast(BreakTickMsg{Type: TypeBreakTick, Remaining: ev.remaining})
}

func (r *Room) handleBreakExpire(ev breakExpireEvent) {
	if ev.gen != r.timerGen || r.state != StateFinished {
		return
	}
	if r.currentRound >= r.cfg.TotalRounds {
		return
	}
	r.startRound(nil)
}

func (r *Room) handleRestart(conn Conn, name string) {
	p := r.players[name]
	if p == nil {
		r.sendToConn(conn, errors.New(errors.PlayerUnknown))
		return
	}
	if name != r.cfg.Host {
		r.sendError(p, errors.New(errors.NotHost).WithMessage("Only the host can restart the game"))
		return
	}
	if r.state != StateFinished {
		r.sendError(p, errors.New(errors.GameNotFinished))
		return
	}
	if r.currentRound < r.cfg.TotalRounds {
		r.sendError(p, errors.New(errors.RoundsRemaining))
		return
	}

	r.stopTimers()
	r.setState(StateLobby)
	r.problem = nil
	r.currentRound = 0
	r.usedProblems = make(map[string]bool)
	for _, pl := range r.order {
		pl.resetRound()
	}
	r.broadcast(r.roomStateMsg())
}

// ---- submissions ----

func (r *Room) handleSubmit(conn Conn, name, code string) {
	p := r.players[name]
	if p == nil {
		r.sendToConn(conn, errors.New(errors.PlayerUnknown))
		return
	}
	if r.state != StatePlaying {
		r.sendError(p, errors.New(errors.NotPlaying))
		return
	}
	if p.Locked() {
		r.sendError(p, errors.New(errors.LockedIn))
		return
	}
	if strings.TrimSpace(code) == "" {
		r.sendError(p, errors.New(errors.EmptySubmission))
		return
	}

	submitTime := time.Since(r.roundStartedAt).Seconds()
	charCount := CountSubmissionChars(code)
	round := r.currentRound
	prob := r.problem

	req := sandbox.Request{
		SubmissionID: uuid.NewString(),
		Code:         code,
		EntryPoint:   prob.EntryPoint,
		Preamble:     prob.Preamble,
		TestCases:    prob.TestCases,
		AnyOrder:     prob.AnyOrder(),
	}

	// Execution runs off the room's serialization path, so one player's
	// long-running code never starves chat, locks or other submissions.
	// The result re-enters the loop as an event. A disconnect does not
	// cancel the run; the result still counts for fair scoring.
	go func() {
		outcome := r.executor.Execute(context.Background(), req)
		solved := outcome.Total > 0 && outcome.Passed == outcome.Total
		r.post(execDoneEvent{
			name:  name,
			round: round,
			sub: &Submission{
				Code:       code,
				Solved:     solved,
				Passed:     outcome.Passed,
				Total:      outcome.Total,
				CharCount:  charCount,
				SubmitTime: round2(submitTime),
				Error:      outcome.ErrorMessage,
				Stdout:     outcome.Stdout,
				Stderr:     outcome.Stderr,
			},
		})
	}()
}

func (r *Room) handleExecDone(ev execDoneEvent) {
	p := r.players[ev.name]
	if p == nil {
		return
	}
	// Results from a previous round, or arriving after the round closed,
	// do not alter published standings.
	if ev.round != r.currentRound || r.state != StatePlaying {
		return
	}

	sub := ev.sub
	p.send(SubmitResultMsg{
		Type:       TypeSubmitResult,
		Solved:     sub.Solved,
		Passed:     sub.Passed,
		Total:      sub.Total,
		CharCount:  sub.CharCount,
		SubmitTime: sub.SubmitTime,
		Error:      sub.Error,
		Stdout:     sub.Stdout,
		Stderr:     sub.Stderr,
	})

	// A lock set while this execution was in flight freezes the best
	// submission; the result is delivered but discarded for ranking.
	if !p.Locked() && sub.betterThan(p.best) {
		p.best = sub
	}

	r.broadcast(r.scoreboardMsg())
}

func (r *Room) handleLock(conn Conn, name string) {
	p := r.players[name]
	if p == nil {
		r.sendToConn(conn, errors.New(errors.PlayerUnknown))
		return
	}
	if r.state != StatePlaying {
		r.sendError(p, errors.New(errors.NotPlaying))
		return
	}
	if p.Locked() {
		r.sendError(p, errors.New(errors.AlreadyLocked))
		return
	}
	if p.best == nil || !p.best.Solved {
		r.sendError(p, errors.New(errors.NotSolvedYet))
		return
	}

	lockedAt := round2(time.Since(r.roundStartedAt).Seconds())
	p.lockedAt = &lockedAt

	// The lock confirmation is enqueued before the scoreboard, so the
	// locking client sees it first.
	p.send(LockedMsg{Type: TypeLocked})
	r.broadcast(r.scoreboardMsg())
}

// ---- message helpers ----

func (r *Room) roomStateMsg() RoomStateMsg {
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name)
	}
	return RoomStateMsg{
		Type:         TypeRoomState,
		RoomID:       r.id,
		State:        string(r.state),
		Host:         r.cfg.Host,
		Players:      names,
		TimeLimit:    r.cfg.TimeLimitSeconds,
		Difficulty:   r.cfg.Difficulty,
		CurrentRound: r.currentRound,
		TotalRounds:  r.cfg.TotalRounds,
	}
}

func (r *Room) scoreboardMsg() ScoreboardMsg {
	return ScoreboardMsg{Type: TypeScoreboard, Rankings: RankPlayers(r.order, false)}
}

func (r *Room) snapshotInfo() RoomInfo {
	names := make([]string, 0, len(r.order))
	for _, p := range r.order {
		names = append(names, p.Name)
	}
	return RoomInfo{
		ID:           r.id,
		State:        string(r.state),
		Host:         r.cfg.Host,
		Players:      names,
		Difficulty:   r.cfg.Difficulty,
		TimeLimit:    r.cfg.TimeLimitSeconds,
		CurrentRound: r.currentRound,
		TotalRounds:  r.cfg.TotalRounds,
	}
}

func (r *Room) broadcast(msg Outbound) {
	for _, p := range r.order {
		p.send(msg)
	}
}

func (r *Room) sendError(p *Player, err error) {
	p.send(NewErrorMsg(errors.GetError(err).Error()))
}

// sendToConn targets a connection that has no registered player behind it.
func (r *Room) sendToConn(conn Conn, err error) {
	if conn != nil {
		conn.Send(NewErrorMsg(errors.GetError(err).Error()))
	}
}

// ---- bookkeeping ----

func (r *Room) setState(s State) {
	r.state = s
	r.stateMirror.Store(s)
}

func (r *Room) nextTimerGen() uint64 {
	r.timerGen++
	return r.timerGen
}

func (r *Room) stopTimers() {
	if r.countdown != nil {
		r.countdown.Stop()
		r.countdown = nil
	}
	r.nextTimerGen()
	r.timersPending.Store(0)
}

func (r *Room) touch() {
	r.lastActivity.Store(time.Now().UnixNano())
}

// collectible reports whether the sweeper may reclaim this room: nobody
// connected, no pending timers, and idle past the TTL. Playing rooms always
// have a pending round timer, so they are never reclaimed.
func (r *Room) collectible(now time.Time, idleTTL time.Duration) bool {
	if r.connected.Load() > 0 || r.timersPending.Load() > 0 {
		return false
	}
	if r.stateMirror.Load() == StatePlaying {
		return false
	}
	idle := now.Sub(time.Unix(0, r.lastActivity.Load()))
	return idle >= idleTTL
}

func (r *Room) logCtx() context.Context {
	return context.WithValue(context.Background(), contextkey.RoomID, r.id)
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
