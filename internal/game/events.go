package game

// event is the closed set of operations delivered to a room's serialized
// loop. Client messages, timer firings and execution results all arrive
// through the same queue, so ordering within a room is total and FIFO.
type event interface {
	isEvent()
}

type joinEvent struct {
	name  string
	conn  Conn
	reply chan joinResult
}

// joinResult carries the canonical (trimmed) name the room registered the
// player under; callers must use it for every later operation.
type joinResult struct {
	name string
	err  error
}

type leaveEvent struct {
	name string
	conn Conn
}

type startEvent struct {
	conn Conn
	name string
}

type submitEvent struct {
	conn Conn
	name string
	code string
}

// execDoneEvent re-enters the room loop once a sandbox execution finishes.
// round pins the result to the round it was submitted in.
type execDoneEvent struct {
	name  string
	round int
	sub   *Submission
}

type lockEvent struct {
	conn Conn
	name string
}

type restartEvent struct {
	conn Conn
	name string
}

type chatEvent struct {
	name    string
	message string
}

// Timer events carry the generation of the countdown that produced them;
// the loop drops events from superseded timers.
type roundTickEvent struct {
	gen       uint64
	remaining int
}

type roundExpireEvent struct {
	gen uint64
}

type breakTickEvent struct {
	gen       uint64
	remaining int
}

type breakExpireEvent struct {
	gen uint64
}

type infoEvent struct {
	reply chan RoomInfo
}

type stopEvent struct{}

func (joinEvent) isEvent()        {}
func (leaveEvent) isEvent()       {}
func (startEvent) isEvent()       {}
func (submitEvent) isEvent()      {}
func (execDoneEvent) isEvent()    {}
func (lockEvent) isEvent()        {}
func (restartEvent) isEvent()     {}
func (chatEvent) isEvent()        {}
func (roundTickEvent) isEvent()   {}
func (roundExpireEvent) isEvent() {}
func (breakTickEvent) isEvent()   {}
func (breakExpireEvent) isEvent() {}
func (infoEvent) isEvent()        {}
func (stopEvent) isEvent()        {}
