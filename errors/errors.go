package errors

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrSupervisorStopped = fmt.Errorf("supervisor stopped")
	ErrShuttingDown      = fmt.Errorf("server is shutting down")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")

	ErrNoSuchRoom       = fmt.Errorf("no such room")
	ErrNotHost          = fmt.Errorf("only the host can do this")
	ErrNotAllowed       = fmt.Errorf("only the host or the first player can do this")
	ErrAlreadyStarted   = fmt.Errorf("game already started")
	ErrRoomLocked       = fmt.Errorf("room is locked while a game is running")
	ErrNoActiveQuestion = fmt.Errorf("no active question")
	ErrBadStage         = fmt.Errorf("operation not valid in the current stage")
	ErrNoValidTracks    = fmt.Errorf("no valid tracks")
	ErrBadImage         = fmt.Errorf("image must be a base64 png data url")
	ErrImageTooLarge    = fmt.Errorf("image too large")
	ErrCooldown         = fmt.Errorf("emote cooldown")
	ErrNotInRoom        = fmt.Errorf("connection is not in a room")
	ErrRoomClosed       = fmt.Errorf("room closed")
	ErrInvalidPayload   = fmt.Errorf("invalid payload")
	ErrUnknownType      = fmt.Errorf("unknown message type")
	ErrServerError      = fmt.Errorf("server error")
	ErrRateLimited      = fmt.Errorf("too many messages")

	ErrProviderUnavailable = fmt.Errorf("question provider unavailable")
	ErrMalformedQuestion   = fmt.Errorf("malformed question")
	ErrCodeSpaceExhausted  = fmt.Errorf("no free room code")
)

// kinds is ordered: the first sentinel matched by errors.Is wins.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrNoSuchRoom, "NO_SUCH_ROOM"},
	{ErrRoomClosed, "NO_SUCH_ROOM"},
	{ErrNotHost, "NOT_HOST"},
	{ErrNotAllowed, "NOT_ALLOWED"},
	{ErrAlreadyStarted, "ALREADY_STARTED"},
	{ErrRoomLocked, "ROOM_LOCKED"},
	{ErrNoActiveQuestion, "NO_ACTIVE_QUESTION"},
	{ErrBadStage, "BAD_STAGE"},
	{ErrNoValidTracks, "NO_VALID_TRACKS"},
	{ErrBadImage, "BAD_IMAGE"},
	{ErrImageTooLarge, "IMAGE_TOO_LARGE"},
	{ErrCooldown, "COOLDOWN"},
	{ErrNotInRoom, "NOT_IN_ROOM"},
	{ErrInvalidPayload, "INVALID_PAYLOAD"},
	{ErrUnknownType, "UNKNOWN_TYPE"},
	{ErrRateLimited, "RATE_LIMITED"},
}

// Kind maps an error to the identifier sent to clients.
// Anything that is not a known sentinel is a SERVER_ERROR.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "SERVER_ERROR"
}

// IsServerError reports whether err would be surfaced as SERVER_ERROR.
func IsServerError(err error) bool {
	return err != nil && Kind(err) == "SERVER_ERROR"
}

// CooldownError carries the number of seconds left before another emote is accepted.
type CooldownError struct {
	Wait int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: wait %ds", ErrCooldown, e.Wait)
}

func (e *CooldownError) Unwrap() error { return ErrCooldown }

// Is and As are re-exported so callers importing this package under its
// default name keep access to the standard helpers.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }
