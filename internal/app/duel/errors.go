package duel

import (
	"errors"
	"fmt"

	"matchmesh/internal/challenge"
)

var (
	ErrInvalidRequest    = errors.New("invalid_request")
	ErrChallengeNotFound = errors.New("challenge_not_found")
	ErrStoreUnavailable  = errors.New("store_unavailable")
	ErrProtocolViolation = errors.New("protocol_violation")
	ErrSessionNotFound   = errors.New("session_not_found")
	ErrSessionClosed     = errors.New("session_closed")
)

func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, challenge.ErrUnavailable):
		return ErrStoreUnavailable
	case errors.Is(err, challenge.ErrInvalidPlayer), errors.Is(err, challenge.ErrInvalidID):
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	case errors.Is(err, challenge.ErrRejected):
		return fmt.Errorf("%w: %w", ErrProtocolViolation, err)
	default:
		return err
	}
}
