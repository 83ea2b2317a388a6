package duel

import (
	"matchmesh/internal/challenge"
	"matchmesh/internal/cycle"
	"matchmesh/internal/identity"
)

type PlayerItem struct {
	GlobalID    string `json:"global_id"`
	DisplayName string `json:"display_name"`
	LastSeenMS  int64  `json:"last_seen_ms"`
	Self        bool   `json:"self"`
}

type OnlinePlayersResponse struct {
	Items []PlayerItem `json:"items"`
}

type ChallengeItem struct {
	ID          string                 `json:"id"`
	Direction   string                 `json:"direction"`
	From        string                 `json:"from"`
	FromName    string                 `json:"from_name"`
	To          string                 `json:"to"`
	ToName      string                 `json:"to_name"`
	Mode        string                 `json:"mode"`
	Status      string                 `json:"status"`
	CreatedAtMS int64                  `json:"created_at_ms"`
	Wager       challenge.WagerDetails `json:"wager"`
	MyTurn      bool                   `json:"my_turn"`
	ReadyMe     bool                   `json:"ready_me"`
	ReadyPeer   bool                   `json:"ready_peer"`
}

type ChallengesResponse struct {
	Outgoing []ChallengeItem `json:"outgoing"`
	Incoming []ChallengeItem `json:"incoming"`
}

type CycleEvent struct {
	Kind        string         `json:"kind"`
	ChallengeID string         `json:"challenge_id"`
	Challenge   *ChallengeItem `json:"challenge,omitempty"`
}

type CycleResponse struct {
	Events      []CycleEvent `json:"events"`
	OnlineCount int          `json:"online_count"`
	Heartbeat   bool         `json:"heartbeat"`
	Degraded    bool         `json:"degraded"`
	Repaired    int          `json:"repaired"`
}

type SessionInfo struct {
	GlobalID    string `json:"global_id"`
	LocalUser   int    `json:"local_user"`
	DisplayName string `json:"display_name"`
	Gateway     string `json:"gateway"`
}

func toItem(ch challenge.Challenge, me identity.GlobalID) ChallengeItem {
	direction := "incoming"
	if ch.From.GlobalID == me {
		direction = "outgoing"
	}
	peer := ch.Counterpart(me)
	return ChallengeItem{
		ID:          ch.ID,
		Direction:   direction,
		From:        string(ch.From.GlobalID),
		FromName:    ch.From.Name,
		To:          string(ch.To.GlobalID),
		ToName:      ch.To.Name,
		Mode:        ch.Mode,
		Status:      string(ch.Status),
		CreatedAtMS: ch.CreatedAt,
		Wager:       challenge.GetWagerDetails(&ch),
		MyTurn:      challenge.IsMyTurnToRespond(ch, me),
		ReadyMe:     ch.Lobby.Ready[me],
		ReadyPeer:   ch.Lobby.Ready[peer.GlobalID],
	}
}

func toItems(list []challenge.Challenge, me identity.GlobalID) []ChallengeItem {
	out := make([]ChallengeItem, 0, len(list))
	for _, ch := range list {
		out = append(out, toItem(ch, me))
	}
	return out
}

func toCycleResponse(sum cycle.Summary, me identity.GlobalID) *CycleResponse {
	out := &CycleResponse{
		Events:      make([]CycleEvent, 0, len(sum.Deltas)),
		OnlineCount: sum.OnlineCount,
		Heartbeat:   sum.Heartbeat,
		Degraded:    sum.Degraded,
		Repaired:    sum.Repaired,
	}
	for _, d := range sum.Deltas {
		ev := CycleEvent{Kind: string(d.Kind), ChallengeID: d.ChallengeID}
		if d.Challenge != nil {
			item := toItem(*d.Challenge, me)
			ev.Challenge = &item
		}
		out.Events = append(out.Events, ev)
	}
	return out
}
