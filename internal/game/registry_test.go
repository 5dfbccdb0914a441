package game

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"coderace/pkg/errors"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := RegistryConfig{SweepInterval: time.Hour}
	reg := NewRegistry(cfg, Pacing{}, &fakeExecutor{}, testProblems(4))
	t.Cleanup(reg.Close)
	return reg
}

func validConfig() RoomConfig {
	return RoomConfig{Host: "host", Difficulty: "easy", TimeLimitSeconds: 120, TotalRounds: 3}
}

func TestCreateRoomGeneratesCode(t *testing.T) {
	reg := newTestRegistry(t)

	room, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if !regexp.MustCompile(`^[0-9A-F]{6}$`).MatchString(room.ID()) {
		t.Fatalf("room id %q is not 6 uppercase hex chars", room.ID())
	}

	got, err := reg.GetRoom(room.ID())
	if err != nil || got != room {
		t.Fatalf("GetRoom = %v, %v", got, err)
	}
	// Lookup is case-insensitive; clients paste codes in either case.
	if _, err := reg.GetRoom(strings.ToLower(room.ID())); err != nil {
		t.Fatalf("lowercase lookup: %v", err)
	}
}

func TestGetRoomUnknown(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.GetRoom("ZZZZZZ"); !errors.Is(err, errors.RoomNotFound) {
		t.Fatalf("unknown room error = %v", err)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	reg := newTestRegistry(t)

	cases := []struct {
		name   string
		mutate func(*RoomConfig)
		code   errors.ErrorCode
	}{
		{"blank host", func(c *RoomConfig) { c.Host = "  " }, errors.NameRequired},
		{"long host", func(c *RoomConfig) { c.Host = "this-name-is-way-too-long" }, errors.NameTooLong},
		{"time too short", func(c *RoomConfig) { c.TimeLimitSeconds = 30 }, errors.RoomConfigInvalid},
		{"time too long", func(c *RoomConfig) { c.TimeLimitSeconds = 601 }, errors.RoomConfigInvalid},
		{"zero rounds", func(c *RoomConfig) { c.TotalRounds = 0 }, errors.RoomConfigInvalid},
		{"too many rounds", func(c *RoomConfig) { c.TotalRounds = 11 }, errors.RoomConfigInvalid},
		{"bad difficulty", func(c *RoomConfig) { c.Difficulty = "impossible" }, errors.RoomConfigInvalid},
	}
	for _, tc := range cases {
		cfg := validConfig()
		tc.mutate(&cfg)
		if _, err := reg.CreateRoom(cfg); !errors.Is(err, tc.code) {
			t.Errorf("%s: error = %v, want code %d", tc.name, err, tc.code)
		}
	}

	// Difficulty is normalized, not rejected, for case differences.
	cfg := validConfig()
	cfg.Difficulty = "Medium"
	room, err := reg.CreateRoom(cfg)
	if err != nil {
		t.Fatalf("mixed-case difficulty: %v", err)
	}
	if info := room.Info(); info.Difficulty != "medium" {
		t.Fatalf("difficulty = %q, want medium", info.Difficulty)
	}
}

func TestCreateRoomCapacity(t *testing.T) {
	cfg := RegistryConfig{MaxRooms: 2, SweepInterval: time.Hour}
	reg := NewRegistry(cfg, Pacing{}, &fakeExecutor{}, testProblems(1))
	t.Cleanup(reg.Close)

	for i := 0; i < 2; i++ {
		if _, err := reg.CreateRoom(validConfig()); err != nil {
			t.Fatalf("room %d: %v", i, err)
		}
	}
	if _, err := reg.CreateRoom(validConfig()); !errors.Is(err, errors.TooManyRequests) {
		t.Fatalf("over-capacity error = %v", err)
	}
}

func TestSweepReclaimsIdleRooms(t *testing.T) {
	reg := newTestRegistry(t)

	idle, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	occupied, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	join(t, occupied, "host")

	reg.sweepOnce(time.Now().Add(3 * time.Hour))

	if _, err := reg.GetRoom(idle.ID()); !errors.Is(err, errors.RoomNotFound) {
		t.Fatalf("idle room survived the sweep: %v", err)
	}
	if _, err := reg.GetRoom(occupied.ID()); err != nil {
		t.Fatalf("occupied room was reclaimed: %v", err)
	}
}

func TestSweepNeverReclaimsPlayingRooms(t *testing.T) {
	reg := newTestRegistry(t)

	room, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	conn := join(t, room, "host")
	room.Start(conn, "host")
	conn.waitFor(t, "game_start", isType(TypeGameStart))

	// Even with everyone gone, a playing room keeps its round timer and
	// must survive.
	room.Leave(conn, "host")
	reg.sweepOnce(time.Now().Add(3 * time.Hour))

	if _, err := reg.GetRoom(room.ID()); err != nil {
		t.Fatalf("playing room was reclaimed: %v", err)
	}
}

func TestSweepRespectsFinishedTTL(t *testing.T) {
	cfg := RegistryConfig{FinishedTTL: time.Hour, IdleTTL: 4 * time.Hour, SweepInterval: time.Hour}
	reg := NewRegistry(cfg, Pacing{}, &fakeExecutor{}, testProblems(1))
	t.Cleanup(reg.Close)

	lobby, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	finished, err := reg.CreateRoom(validConfig())
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	// Mark the room finished through the mirror the sweeper reads.
	finished.stateMirror.Store(StateFinished)

	// Inside the finished TTL both stay.
	reg.sweepOnce(time.Now().Add(30 * time.Minute))
	if _, err := reg.GetRoom(finished.ID()); err != nil {
		t.Fatalf("finished room reclaimed before its TTL: %v", err)
	}

	// Past the finished TTL but inside the idle TTL, only the finished
	// room goes.
	reg.sweepOnce(time.Now().Add(90 * time.Minute))
	if _, err := reg.GetRoom(finished.ID()); !errors.Is(err, errors.RoomNotFound) {
		t.Fatalf("finished room survived past its TTL: %v", err)
	}
	if _, err := reg.GetRoom(lobby.ID()); err != nil {
		t.Fatalf("lobby reclaimed before idle TTL: %v", err)
	}
}
