// Package challenge owns the challenge state machine and its embedded wager
// negotiation. Every challenge is stored twice, once in each participant's
// mailbox, and every reader classifies its own copy lazily.
package challenge

import (
	"time"

	"matchmesh/internal/identity"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
	StatusTimeout   Status = "timeout"
	StatusStarted   Status = "started"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusDeclined, StatusCancelled, StatusTimeout, StatusStarted:
		return true
	default:
		return false
	}
}

type Party struct {
	GlobalID identity.GlobalID `json:"globalId"`
	Name     string            `json:"name"`
}

type Lobby struct {
	Ready map[identity.GlobalID]bool `json:"ready"`
}

type Challenge struct {
	ID        string `json:"id"`
	From      Party  `json:"from"`
	To        Party  `json:"to"`
	Mode      string `json:"mode"`
	Status    Status `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	Wager     *Wager `json:"wager"`
	Lobby     Lobby  `json:"lobby"`
}

// Side names a participant relative to the challenge.
type Side string

const (
	SideFrom Side = "from"
	SideTo   Side = "to"
)

func (s Side) Other() Side {
	if s == SideFrom {
		return SideTo
	}
	return SideFrom
}

// SideOf resolves me to from or to. ok is false for outsiders.
func SideOf(ch Challenge, me identity.GlobalID) (Side, bool) {
	switch me {
	case ch.From.GlobalID:
		return SideFrom, true
	case ch.To.GlobalID:
		return SideTo, true
	default:
		return "", false
	}
}

// Counterpart returns the participant that is not me.
func (c Challenge) Counterpart(me identity.GlobalID) Party {
	if c.From.GlobalID == me {
		return c.To
	}
	return c.From
}

// BothReady reports whether both participants' flags are set in this copy.
func (c Challenge) BothReady() bool {
	return c.Lobby.Ready[c.From.GlobalID] && c.Lobby.Ready[c.To.GlobalID]
}

// Classify derives the effective status of a copy at now. Stored status is a
// hint: pending copies expire after pendingTimeout and accepted copies with
// both ready flags have started.
func Classify(ch Challenge, now time.Time, pendingTimeout time.Duration) Status {
	switch ch.Status {
	case StatusPending:
		if now.UnixMilli()-ch.CreatedAt >= pendingTimeout.Milliseconds() {
			return StatusTimeout
		}
		return StatusPending
	case StatusAccepted:
		if ch.BothReady() {
			return StatusStarted
		}
		return StatusAccepted
	default:
		return ch.Status
	}
}

func (c Challenge) clone() Challenge {
	out := c
	if c.Wager != nil {
		w := *c.Wager
		out.Wager = &w
	}
	out.Lobby.Ready = make(map[identity.GlobalID]bool, len(c.Lobby.Ready))
	for k, v := range c.Lobby.Ready {
		out.Lobby.Ready[k] = v
	}
	return out
}
