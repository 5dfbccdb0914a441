package game

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"coderace/internal/problem"
	"coderace/pkg/errors"
	"coderace/pkg/utils/logger"

	"go.uber.org/zap"
)

// RegistryConfig controls room capacity and reclamation.
type RegistryConfig struct {
	MaxRooms      int           `yaml:"max_rooms"`
	FinishedTTL   time.Duration `yaml:"finished_ttl"`
	IdleTTL       time.Duration `yaml:"idle_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

func (c *RegistryConfig) setDefaults() {
	if c.MaxRooms <= 0 {
		c.MaxRooms = 1000
	}
	if c.FinishedTTL <= 0 {
		c.FinishedTTL = time.Hour
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 2 * time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 5 * time.Minute
	}
}

// Registry owns every live room. It is the only shared mutable structure;
// everything inside a room is reached through the room's event loop.
type Registry struct {
	cfg      RegistryConfig
	pacing   Pacing
	executor Executor
	problems problem.Source

	mu    sync.RWMutex
	rooms map[string]*Room

	stopSweep chan struct{}
	sweepDone chan struct{}
}

// NewRegistry builds a registry and starts its reclamation sweeper.
func NewRegistry(cfg RegistryConfig, pacing Pacing, executor Executor, problems problem.Source) *Registry {
	cfg.setDefaults()
	if pacing == (Pacing{}) {
		pacing = DefaultPacing()
	}
	reg := &Registry{
		cfg:       cfg,
		pacing:    pacing,
		executor:  executor,
		problems:  problems,
		rooms:     make(map[string]*Room),
		stopSweep: make(chan struct{}),
		sweepDone: make(chan struct{}),
	}
	go reg.sweep()
	return reg
}

// CreateRoom validates the configuration, allocates a fresh room code and
// starts the room's loop. Out-of-range values are rejected, not clamped.
func (r *Registry) CreateRoom(cfg RoomConfig) (*Room, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return nil, errors.New(errors.NameRequired).WithMessage("Host name is required")
	}
	if len(cfg.Host) > maxNameLength {
		return nil, errors.New(errors.NameTooLong)
	}
	if cfg.TimeLimitSeconds < 60 || cfg.TimeLimitSeconds > 600 {
		return nil, errors.Newf(errors.RoomConfigInvalid, "time limit must be between 60 and 600 seconds, got %d", cfg.TimeLimitSeconds)
	}
	if cfg.TotalRounds < 1 || cfg.TotalRounds > 10 {
		return nil, errors.Newf(errors.RoomConfigInvalid, "rounds must be between 1 and 10, got %d", cfg.TotalRounds)
	}
	switch strings.ToLower(cfg.Difficulty) {
	case "", "easy", "medium", "hard":
		cfg.Difficulty = strings.ToLower(cfg.Difficulty)
	default:
		return nil, errors.Newf(errors.RoomConfigInvalid, "unknown difficulty %q", cfg.Difficulty)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.rooms) >= r.cfg.MaxRooms {
		return nil, errors.New(errors.TooManyRequests).WithMessage("Room capacity reached")
	}

	id, err := r.newRoomID()
	if err != nil {
		return nil, errors.Wrap(err, errors.InternalServerError)
	}

	room := newRoom(id, cfg, r.pacing, r.executor, r.problems)
	r.rooms[id] = room
	logger.Info(room.logCtx(), "room created",
		zap.String("host", cfg.Host),
		zap.String("difficulty", cfg.Difficulty),
		zap.Int("time_limit", cfg.TimeLimitSeconds),
		zap.Int("rounds", cfg.TotalRounds))
	return room, nil
}

// GetRoom looks up a room by its code.
func (r *Registry) GetRoom(id string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[strings.ToUpper(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.RoomNotFound)
	}
	return room, nil
}

// List snapshots every live room for the HTTP surface.
func (r *Registry) List() []RoomInfo {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()

	infos := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		infos = append(infos, room.Info())
	}
	return infos
}

// Close stops the sweeper and every live room.
func (r *Registry) Close() {
	close(r.stopSweep)
	<-r.sweepDone

	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()

	for _, room := range rooms {
		room.Close()
	}
}

// newRoomID allocates an unused 6-character uppercase hex code. Caller
// holds the write lock.
func (r *Registry) newRoomID() (string, error) {
	for attempt := 0; attempt < 16; attempt++ {
		var b [3]byte
		if _, err := rand.Read(b[:]); err != nil {
			return "", err
		}
		id := strings.ToUpper(hex.EncodeToString(b[:]))
		if _, taken := r.rooms[id]; !taken {
			return id, nil
		}
	}
	return "", errors.New(errors.InternalServerError).WithMessage("room id space exhausted")
}

// sweep periodically reclaims abandoned rooms. Finished rooms expire on a
// shorter TTL than idle lobbies; rooms with connected players or pending
// timers are never reclaimed, so a playing round cannot be interrupted.
func (r *Registry) sweep() {
	defer close(r.sweepDone)
	ticker := time.NewTicker(r.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopSweep:
			return
		case now := <-ticker.C:
			r.sweepOnce(now)
		}
	}
}

func (r *Registry) sweepOnce(now time.Time) {
	var collected []*Room

	r.mu.Lock()
	for id, room := range r.rooms {
		ttl := r.cfg.IdleTTL
		if room.stateMirror.Load() == StateFinished {
			ttl = r.cfg.FinishedTTL
		}
		if room.collectible(now, ttl) {
			delete(r.rooms, id)
			collected = append(collected, room)
		}
	}
	r.mu.Unlock()

	for _, room := range collected {
		room.Close()
		logger.Info(context.Background(), "room reclaimed", zap.String("room_id", room.id))
	}
}
