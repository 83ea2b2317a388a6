package challenge

import "errors"

var (
	// ErrUnavailable means the store could not be reached; nothing was
	// written and the caller should retry on a later cycle.
	ErrUnavailable = errors.New("store_unavailable")
	// ErrRejected matches every protocol violation via errors.Is.
	ErrRejected = errors.New("protocol_violation")
)

type rejection string

func (r rejection) Error() string        { return string(r) }
func (r rejection) Is(target error) bool { return target == ErrRejected }

var (
	ErrInvalidPlayer  error = rejection("invalid_player")
	ErrInvalidID      error = rejection("invalid_challenge_id")
	ErrSelfChallenge  error = rejection("self_challenge")
	ErrNotRecipient   error = rejection("not_recipient")
	ErrNotInitiator   error = rejection("not_initiator")
	ErrNotParticipant error = rejection("not_participant")
	ErrNotPending     error = rejection("not_pending")
	ErrNotAccepted    error = rejection("not_accepted")
	ErrClosed         error = rejection("challenge_closed")
	ErrStillOpen      error = rejection("challenge_open")
	ErrNoWager        error = rejection("no_wager")
	ErrNegativeAmount error = rejection("negative_amount")
	ErrAboveCeiling   error = rejection("above_ceiling")
	ErrNotYourTurn    error = rejection("not_your_turn")
)

// Reason returns the specific rejection wrapped in err, such as
// "not_your_turn", or "" when err is not a rejection.
func Reason(err error) string {
	var r rejection
	if errors.As(err, &r) {
		return string(r)
	}
	return ""
}
