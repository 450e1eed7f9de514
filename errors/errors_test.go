package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	testCases := []struct {
		description string
		err         error
		expected    string
	}{
		{description: "nil error has no kind", err: nil, expected: ""},
		{description: "sentinel", err: ErrRoomLocked, expected: "ROOM_LOCKED"},
		{description: "wrapped sentinel", err: fmt.Errorf("join AB12: %w", ErrNoSuchRoom), expected: "NO_SUCH_ROOM"},
		{description: "closed room reads as missing", err: ErrRoomClosed, expected: "NO_SUCH_ROOM"},
		{description: "cooldown", err: &CooldownError{Wait: 3}, expected: "COOLDOWN"},
		{description: "unknown error", err: fmt.Errorf("boom"), expected: "SERVER_ERROR"},
		{description: "worker panic is internal", err: ErrWorkerPanic, expected: "SERVER_ERROR"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			req := require.New(t)
			req.Equal(tc.expected, Kind(tc.err))
		})
	}
}

func TestCooldownError_As(t *testing.T) {
	req := require.New(t)

	// Given a wrapped cooldown error
	err := fmt.Errorf("emote: %w", &CooldownError{Wait: 4})

	// When it is unwrapped
	var cooldown *CooldownError
	ok := As(err, &cooldown)

	// Then the wait is preserved
	req.True(ok)
	req.Equal(4, cooldown.Wait)
	req.True(Is(err, ErrCooldown))
}
