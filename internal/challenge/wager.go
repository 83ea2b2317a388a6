package challenge

import "matchmesh/internal/identity"

type Stakes struct {
	Cash int64 `json:"cash"`
	Rep  int64 `json:"rep"`
}

type Ceiling struct {
	Cash   int64 `json:"cash"`
	Rep    int64 `json:"rep"`
	Locked bool  `json:"locked"`
}

// Wager is the negotiation state embedded in a challenge. Amounts never
// exceed the ceiling and Revision grows by one on every proposal.
type Wager struct {
	Cash       int64   `json:"cash"`
	Rep        int64   `json:"rep"`
	ProposedBy Side    `json:"proposedBy,omitempty"`
	Revision   int     `json:"revision"`
	Ceiling    Ceiling `json:"ceiling"`
}

// CalculateAbsoluteMax bounds a wager by what both sides can pay.
func CalculateAbsoluteMax(mine, opponent Stakes) Stakes {
	return Stakes{
		Cash: min(mine.Cash, opponent.Cash),
		Rep:  min(mine.Rep, opponent.Rep),
	}
}

// OpenWager attaches an empty wager bounded by ceiling. An already open wager
// is left as is.
func OpenWager(ch Challenge, ceiling Stakes) (Challenge, error) {
	if ch.Status.Terminal() {
		return ch, ErrClosed
	}
	if ceiling.Cash < 0 || ceiling.Rep < 0 {
		return ch, ErrNegativeAmount
	}
	if ch.Wager != nil {
		return ch, nil
	}
	out := ch.clone()
	out.Wager = &Wager{Ceiling: Ceiling{Cash: ceiling.Cash, Rep: ceiling.Rep}}
	return out, nil
}

// ProposeWager applies a proposal from side. On rejection ch is returned
// unchanged with the reason. lock fixes the ceiling at the proposed amounts;
// since proposals never exceed the ceiling, it can only shrink.
func ProposeWager(ch Challenge, side Side, cash, rep int64, lock bool) (Challenge, error) {
	switch {
	case ch.Status.Terminal():
		return ch, ErrClosed
	case ch.Wager == nil:
		return ch, ErrNoWager
	case side != SideFrom && side != SideTo:
		return ch, ErrNotParticipant
	case cash < 0 || rep < 0:
		return ch, ErrNegativeAmount
	case cash > ch.Wager.Ceiling.Cash || rep > ch.Wager.Ceiling.Rep:
		return ch, ErrAboveCeiling
	case ch.Wager.Revision > 0 && ch.Wager.ProposedBy == side:
		return ch, ErrNotYourTurn
	}
	out := ch.clone()
	w := out.Wager
	w.Cash = cash
	w.Rep = rep
	w.ProposedBy = side
	w.Revision++
	if lock {
		w.Ceiling = Ceiling{Cash: cash, Rep: rep, Locked: true}
	}
	return out, nil
}

// IsMyTurnToRespond is true when the latest proposal came from the other
// side. A wager with no proposal yet is nobody's turn to respond to.
func IsMyTurnToRespond(ch Challenge, me identity.GlobalID) bool {
	if ch.Wager == nil || ch.Wager.Revision == 0 || ch.Wager.ProposedBy == "" {
		return false
	}
	side, ok := SideOf(ch, me)
	if !ok {
		return false
	}
	return ch.Wager.ProposedBy == side.Other()
}

type WagerDetails struct {
	Present       bool  `json:"present"`
	Cash          int64 `json:"cash"`
	Rep           int64 `json:"rep"`
	CeilingCash   int64 `json:"ceiling_cash"`
	CeilingRep    int64 `json:"ceiling_rep"`
	CeilingLocked bool  `json:"ceiling_locked"`
	Revision      int   `json:"revision"`
	ProposedBy    Side  `json:"proposed_by,omitempty"`
}

func GetWagerDetails(ch *Challenge) WagerDetails {
	if ch == nil || ch.Wager == nil {
		return WagerDetails{}
	}
	w := ch.Wager
	return WagerDetails{
		Present:       true,
		Cash:          w.Cash,
		Rep:           w.Rep,
		CeilingCash:   w.Ceiling.Cash,
		CeilingRep:    w.Ceiling.Rep,
		CeilingLocked: w.Ceiling.Locked,
		Revision:      w.Revision,
		ProposedBy:    w.ProposedBy,
	}
}
