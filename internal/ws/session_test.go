package ws

import (
	"context"
	"strings"
	"testing"
	"time"

	"coderace/internal/game"
	"coderace/internal/problem"
	"coderace/internal/sandbox"

	"golang.org/x/time/rate"
)

type nopExecutor struct{}

func (nopExecutor) Execute(ctx context.Context, req sandbox.Request) sandbox.Outcome {
	return sandbox.Outcome{Passed: len(req.TestCases), Total: len(req.TestCases)}
}

type oneProblemSource struct{}

func (oneProblemSource) Pick(string, map[string]bool) (*problem.Problem, error) {
	return &problem.Problem{
		ID:         "p",
		Title:      "P",
		Difficulty: "easy",
		EntryPoint: "solve",
		TestCases:  []string{"assert candidate(1) == 1"},
	}, nil
}

func (oneProblemSource) List() ([]problem.Meta, error) {
	return []problem.Meta{{ID: "p", Title: "P", Difficulty: "easy"}}, nil
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	reg := game.NewRegistry(game.RegistryConfig{SweepInterval: time.Hour}, game.Pacing{}, nopExecutor{}, oneProblemSource{})
	t.Cleanup(reg.Close)
	room, err := reg.CreateRoom(game.RoomConfig{Host: "host", TimeLimitSeconds: 60, TotalRounds: 1})
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return newSession(nil, room)
}

// waitOutbound drains the session's send buffer until a message matches.
func waitOutbound(t *testing.T, s *Session, what string, pred func(game.Outbound) bool) game.Outbound {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-s.send:
			if pred(msg) {
				return msg
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		}
	}
}

func errorContaining(fragment string) func(game.Outbound) bool {
	return func(m game.Outbound) bool {
		e, ok := m.(game.ErrorMsg)
		return ok && strings.Contains(e.Message, fragment)
	}
}

func TestDispatchRequiresJoinFirst(t *testing.T) {
	s := newTestSession(t)

	s.dispatch([]byte(`{"type": "chat", "message": "hi"}`))
	waitOutbound(t, s, "not-joined error", errorContaining("Join"))
	if s.joined {
		t.Fatal("session joined without a join message")
	}
}

func TestDispatchJoinBindsName(t *testing.T) {
	s := newTestSession(t)

	s.dispatch([]byte(`{"type": "join", "name": "host"}`))
	if !s.joined || s.name != "host" {
		t.Fatalf("session = joined %v name %q", s.joined, s.name)
	}
	waitOutbound(t, s, "room_state", func(m game.Outbound) bool {
		_, ok := m.(game.RoomStateMsg)
		return ok
	})

	s.dispatch([]byte(`{"type": "join", "name": "host"}`))
	waitOutbound(t, s, "double-join error", errorContaining("Already"))
}

func TestDispatchJoinBindsTrimmedName(t *testing.T) {
	s := newTestSession(t)

	s.dispatch([]byte(`{"type": "join", "name": " host "}`))
	if !s.joined || s.name != "host" {
		t.Fatalf("session = joined %v name %q, want canonical %q", s.joined, s.name, "host")
	}

	// Later operations must address the registered player, not the raw
	// padded name the client sent.
	s.dispatch([]byte(`{"type": "start"}`))
	waitOutbound(t, s, "game_start", func(m game.Outbound) bool {
		_, ok := m.(game.GameStartMsg)
		return ok
	})
}

func TestDispatchJoinFailureStaysUnbound(t *testing.T) {
	s := newTestSession(t)

	s.dispatch([]byte(`{"type": "join", "name": ""}`))
	waitOutbound(t, s, "name error", errorContaining("required"))
	if s.joined {
		t.Fatal("session joined with rejected name")
	}
}

func TestDispatchStartFlowsToRoom(t *testing.T) {
	s := newTestSession(t)
	s.dispatch([]byte(`{"type": "join", "name": "host"}`))
	s.dispatch([]byte(`{"type": "start"}`))

	waitOutbound(t, s, "game_start", func(m game.Outbound) bool {
		_, ok := m.(game.GameStartMsg)
		return ok
	})
}

func TestDispatchChatRateLimited(t *testing.T) {
	s := newTestSession(t)
	s.dispatch([]byte(`{"type": "join", "name": "host"}`))
	s.chatLimiter = rate.NewLimiter(0, 1)

	s.dispatch([]byte(`{"type": "chat", "message": "one"}`))
	s.dispatch([]byte(`{"type": "chat", "message": "two"}`))
	waitOutbound(t, s, "rate limit error", errorContaining("rate"))
}

func TestDispatchMalformedFrame(t *testing.T) {
	s := newTestSession(t)
	s.dispatch([]byte("{broken"))
	waitOutbound(t, s, "malformed error", errorContaining("Malformed"))
}
