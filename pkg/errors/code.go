package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Room & session errors
// 12000-12999: Problem bank errors
// 13000-13999: Execution & sandbox errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	// Success
	Success ErrorCode = 10000

	// Generic errors (10000-10099)
	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007

	// ========== Room & Session Errors (11000-11999) ==========

	// Room lookup and creation (11000-11099)
	RoomNotFound      ErrorCode = 11000
	RoomConfigInvalid ErrorCode = 11001

	// Protocol errors (11100-11199)
	ProtocolMalformed ErrorCode = 11100
	NotJoined         ErrorCode = 11101
	NameRequired      ErrorCode = 11102
	NameTooLong       ErrorCode = 11103
	NameTaken         ErrorCode = 11104
	GameInProgress    ErrorCode = 11105
	UnknownMessage    ErrorCode = 11106

	// Gameplay guards (11200-11299)
	NotHost          ErrorCode = 11200
	RoomEmpty        ErrorCode = 11201
	NotPlaying       ErrorCode = 11202
	AlreadyStarted   ErrorCode = 11203
	LockedIn         ErrorCode = 11204
	AlreadyLocked    ErrorCode = 11205
	NotSolvedYet     ErrorCode = 11206
	GameNotFinished  ErrorCode = 11207
	RoundsRemaining  ErrorCode = 11208
	EmptySubmission  ErrorCode = 11209
	ChatRateExceeded ErrorCode = 11210
	PlayerUnknown    ErrorCode = 11211

	// ========== Problem Bank Errors (12000-12999) ==========

	ProblemNotFound     ErrorCode = 12000
	ProblemBankEmpty    ErrorCode = 12001
	ProblemLoadFailed   ErrorCode = 12002
	ProblemIndexMissing ErrorCode = 12003

	// ========== Execution & Sandbox Errors (13000-13999) ==========

	ExecutionFailed    ErrorCode = 13000
	SandboxUnavailable ErrorCode = 13001
	RunnerBadOutput    ErrorCode = 13002
	WorkspaceFailed    ErrorCode = 13003
)

// errorMessages maps error codes to their default messages
var errorMessages = map[ErrorCode]string{
	Success: "Success",

	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Forbidden:           "Forbidden",
	TooManyRequests:     "Too many requests",
	ServiceUnavailable:  "Service unavailable",

	RoomNotFound:      "Room not found",
	RoomConfigInvalid: "Invalid room configuration",

	ProtocolMalformed: "Malformed message",
	NotJoined:         "Join the room first",
	NameRequired:      "Name is required",
	NameTooLong:       "Name too long (max 20 chars)",
	NameTaken:         "Name is already taken",
	GameInProgress:    "Game already in progress",
	UnknownMessage:    "Unknown message type",

	NotHost:          "Only the host can do that",
	RoomEmpty:        "Need at least one player to start",
	NotPlaying:       "Round is not in progress",
	AlreadyStarted:   "Game has already started",
	LockedIn:         "You are locked in",
	AlreadyLocked:    "Already locked in",
	NotSolvedYet:     "Solve the problem before locking in",
	GameNotFinished:  "Game is not finished yet",
	RoundsRemaining:  "Rounds are still remaining",
	EmptySubmission:  "Empty submission",
	ChatRateExceeded: "Chat rate limit exceeded",
	PlayerUnknown:    "Unknown player",

	ProblemNotFound:     "Problem not found",
	ProblemBankEmpty:    "No problems available",
	ProblemLoadFailed:   "Failed to load problem",
	ProblemIndexMissing: "Problem index is missing",

	ExecutionFailed:    "Execution failed",
	SandboxUnavailable: "Sandbox is unavailable",
	RunnerBadOutput:    "Runner produced invalid output",
	WorkspaceFailed:    "Failed to prepare workspace",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Forbidden, c == NotHost:
		return 403
	case c == NotFound, c == RoomNotFound, c == ProblemNotFound:
		return 404
	case c == TooManyRequests, c == ChatRateExceeded:
		return 429
	case c == ServiceUnavailable, c == SandboxUnavailable:
		return 503
	case c == InvalidParams, c == RoomConfigInvalid:
		return 400
	default:
		return 500
	}
}
