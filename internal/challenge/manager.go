package challenge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchmesh/internal/gateway"
	"matchmesh/internal/identity"
	"matchmesh/internal/schema"
	"matchmesh/internal/store"
)

const mailboxRoot = "challenges"

type Options struct {
	PendingTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

type CreateOptions struct {
	Mode string
}

// Manager reads and writes challenge mailboxes through a gateway. Mutations
// read the actor's own copy, apply the transition and rewrite both copies;
// no path is ever locked.
type Manager struct {
	gw   *gateway.Gateway
	opts Options

	mu         sync.Mutex
	unmirrored map[mirrorKey]Challenge
}

// mirrorKey names a copy whose peer write failed: the actor that wrote it and
// the challenge id.
type mirrorKey struct {
	actor identity.GlobalID
	id    string
}

func NewManager(gw *gateway.Gateway, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		now := opts.Now
		opts.NewID = func() string { return store.NewIDAt(now()) }
	}
	return &Manager{gw: gw, opts: opts, unmirrored: map[mirrorKey]Challenge{}}
}

func (m *Manager) Now() time.Time { return m.opts.Now() }

func (m *Manager) Classify(ch Challenge) Status {
	return Classify(ch, m.opts.Now(), m.opts.PendingTimeout)
}

func mailbox(owner identity.GlobalID) string {
	return mailboxRoot + "." + string(owner)
}

func mailboxPath(owner identity.GlobalID, id string) string {
	return mailbox(owner) + "." + id
}

func validID(id string) bool {
	return id != "" && !strings.Contains(id, ".")
}

// CreateChallenge writes a new pending challenge into both mailboxes.
func (m *Manager) CreateChallenge(ctx context.Context, initiator, target Party, opts CreateOptions) (*Challenge, error) {
	if !initiator.GlobalID.Valid() || !target.GlobalID.Valid() {
		return nil, m.reject(ErrInvalidPlayer)
	}
	if initiator.GlobalID == target.GlobalID {
		return nil, m.reject(ErrSelfChallenge)
	}
	ch := Challenge{
		ID:        m.opts.NewID(),
		From:      initiator,
		To:        target,
		Mode:      opts.Mode,
		Status:    StatusPending,
		CreatedAt: m.opts.Now().UnixMilli(),
		Lobby:     Lobby{Ready: map[identity.GlobalID]bool{}},
	}
	if _, err := m.writeBoth(ctx, initiator.GlobalID, ch); err != nil {
		return nil, err
	}
	metricChallengesCreated.Add(1)
	log.Info().
		Str("challenge_id", ch.ID).
		Str("from", string(initiator.GlobalID)).
		Str("to", string(target.GlobalID)).
		Str("mode", ch.Mode).
		Msg("challenge created")
	return &ch, nil
}

// MarkAccepted accepts a pending challenge on behalf of its recipient. A
// challenge that has not reached the recipient's mailbox yet is a no-op:
// it returns nil, nil and the caller retries on a later cycle.
func (m *Manager) MarkAccepted(ctx context.Context, id string, responder identity.GlobalID) (*Challenge, error) {
	ch, err := m.current(ctx, responder, id)
	if err != nil || ch == nil {
		return nil, err
	}
	if ch.To.GlobalID != responder {
		return nil, m.reject(ErrNotRecipient)
	}
	switch m.Classify(*ch) {
	case StatusPending:
	case StatusAccepted:
		return m.replay(ctx, responder, *ch)
	default:
		return nil, m.reject(ErrNotPending)
	}
	next := ch.clone()
	next.Status = StatusAccepted
	if _, err := m.writeBoth(ctx, responder, next); err != nil {
		return nil, err
	}
	log.Info().Str("challenge_id", id).Str("global_id", string(responder)).Msg("challenge accepted")
	return m.view(next), nil
}

// Decline is the recipient's refusal of a pending or accepted challenge.
func (m *Manager) Decline(ctx context.Context, id string, me identity.GlobalID) (*Challenge, error) {
	return m.close(ctx, id, me, SideTo, StatusDeclined)
}

// Cancel is the initiator's withdrawal of a pending or accepted challenge.
func (m *Manager) Cancel(ctx context.Context, id string, me identity.GlobalID) (*Challenge, error) {
	return m.close(ctx, id, me, SideFrom, StatusCancelled)
}

func (m *Manager) close(ctx context.Context, id string, me identity.GlobalID, actor Side, to Status) (*Challenge, error) {
	ch, err := m.current(ctx, me, id)
	if err != nil || ch == nil {
		return nil, err
	}
	side, ok := SideOf(*ch, me)
	if !ok {
		return nil, m.reject(ErrNotParticipant)
	}
	if side != actor {
		if actor == SideTo {
			return nil, m.reject(ErrNotRecipient)
		}
		return nil, m.reject(ErrNotInitiator)
	}
	switch eff := m.Classify(*ch); {
	case eff == to && ch.Status == to:
		return m.replay(ctx, me, *ch)
	case eff.Terminal():
		return nil, m.reject(ErrClosed)
	}
	next := ch.clone()
	next.Status = to
	if _, err := m.writeBoth(ctx, me, next); err != nil {
		return nil, err
	}
	log.Info().Str("challenge_id", id).Str("global_id", string(me)).Str("status", string(to)).Msg("challenge closed")
	return m.view(next), nil
}

// MarkReady sets the caller's lobby flag on an accepted challenge. Whether the
// match has started is decided by readers, never by this write.
func (m *Manager) MarkReady(ctx context.Context, id string, me identity.GlobalID, ready bool) (*Challenge, error) {
	ch, err := m.current(ctx, me, id)
	if err != nil || ch == nil {
		return nil, err
	}
	if _, ok := SideOf(*ch, me); !ok {
		return nil, m.reject(ErrNotParticipant)
	}
	switch m.Classify(*ch) {
	case StatusAccepted:
	case StatusStarted:
		if ready {
			return m.replay(ctx, me, *ch)
		}
		return nil, m.reject(ErrClosed)
	case StatusPending:
		return nil, m.reject(ErrNotAccepted)
	default:
		return nil, m.reject(ErrClosed)
	}
	next := ch.clone()
	next.Lobby.Ready[me] = ready
	if _, err := m.writeBoth(ctx, me, next); err != nil {
		return nil, err
	}
	log.Debug().Str("challenge_id", id).Str("global_id", string(me)).Bool("ready", ready).Msg("lobby flag set")
	return m.view(next), nil
}

// NegotiateWager opens the wager on a live challenge with a ceiling of what
// both sides can pay.
func (m *Manager) NegotiateWager(ctx context.Context, id string, me identity.GlobalID, mine, opponent Stakes) (*Challenge, error) {
	ch, err := m.current(ctx, me, id)
	if err != nil || ch == nil {
		return nil, err
	}
	if _, ok := SideOf(*ch, me); !ok {
		return nil, m.reject(ErrNotParticipant)
	}
	if m.Classify(*ch).Terminal() {
		return nil, m.reject(ErrClosed)
	}
	if ch.Wager != nil {
		return m.view(*ch), nil
	}
	next, err := OpenWager(*ch, CalculateAbsoluteMax(mine, opponent))
	if err != nil {
		return nil, m.reject(err)
	}
	if _, err := m.writeBoth(ctx, me, next); err != nil {
		return nil, err
	}
	log.Info().
		Str("challenge_id", id).
		Int64("ceiling_cash", next.Wager.Ceiling.Cash).
		Int64("ceiling_rep", next.Wager.Ceiling.Rep).
		Msg("wager opened")
	return m.view(next), nil
}

// SubmitWager proposes amounts on behalf of me. lock fixes the ceiling at the
// proposed amounts.
func (m *Manager) SubmitWager(ctx context.Context, id string, me identity.GlobalID, cash, rep int64, lock bool) (*Challenge, error) {
	ch, err := m.current(ctx, me, id)
	if err != nil || ch == nil {
		return nil, err
	}
	side, ok := SideOf(*ch, me)
	if !ok {
		return nil, m.reject(ErrNotParticipant)
	}
	if m.Classify(*ch).Terminal() {
		return nil, m.reject(ErrClosed)
	}
	next, err := ProposeWager(*ch, side, cash, rep, lock)
	if err != nil {
		return nil, m.reject(err)
	}
	if _, err := m.writeBoth(ctx, me, next); err != nil {
		return nil, err
	}
	log.Info().
		Str("challenge_id", id).
		Str("side", string(side)).
		Int64("cash", cash).
		Int64("rep", rep).
		Bool("lock", lock).
		Int("revision", next.Wager.Revision).
		Msg("wager proposed")
	return m.view(next), nil
}

// Dismiss deletes a finished challenge from the caller's own mailbox. The
// peer's copy is left to store retention.
func (m *Manager) Dismiss(ctx context.Context, id string, me identity.GlobalID) error {
	ch, err := m.current(ctx, me, id)
	if err != nil || ch == nil {
		return err
	}
	if !m.Classify(*ch).Terminal() {
		return m.reject(ErrStillOpen)
	}
	if !m.gw.Remove(ctx, mailboxPath(me, id)) {
		return ErrUnavailable
	}
	m.forgetUnmirrored(me, id)
	return nil
}

// Get returns the caller's copy with its effective status, or nil if absent.
func (m *Manager) Get(ctx context.Context, me identity.GlobalID, id string) (*Challenge, error) {
	ch, err := m.own(ctx, me, id)
	if err != nil || ch == nil {
		return nil, err
	}
	return m.view(*ch), nil
}

// ListOutgoing returns live challenges the caller initiated, oldest first.
func (m *Manager) ListOutgoing(ctx context.Context, me identity.GlobalID) ([]Challenge, error) {
	return m.list(ctx, me, SideFrom)
}

// ListIncoming returns live challenges addressed to the caller, oldest first.
func (m *Manager) ListIncoming(ctx context.Context, me identity.GlobalID) ([]Challenge, error) {
	return m.list(ctx, me, SideTo)
}

func (m *Manager) list(ctx context.Context, me identity.GlobalID, side Side) ([]Challenge, error) {
	all, err := m.Snapshot(ctx, me)
	if err != nil {
		return nil, err
	}
	out := make([]Challenge, 0, len(all))
	for _, ch := range all {
		if ch.Status.Terminal() {
			continue
		}
		if s, _ := SideOf(ch, me); s != side {
			continue
		}
		out = append(out, ch)
	}
	sortChallenges(out)
	return out, nil
}

// Snapshot reads the caller's whole mailbox in one request. Every returned
// copy carries its effective status; malformed records are dropped.
func (m *Manager) Snapshot(ctx context.Context, me identity.GlobalID) (map[string]Challenge, error) {
	if !me.Valid() {
		return nil, m.reject(ErrInvalidPlayer)
	}
	raw, ok := m.gw.Read(ctx, mailbox(me))
	if !ok {
		return nil, ErrUnavailable
	}
	out := map[string]Challenge{}
	if raw == nil {
		return out, nil
	}
	var bucket map[string]json.RawMessage
	if err := json.Unmarshal(raw, &bucket); err != nil {
		metricMalformedDropped.Add(1)
		log.Warn().Err(err).Str("global_id", string(me)).Msg("challenge mailbox is not an object")
		return out, nil
	}
	for id, v := range bucket {
		ch, ok := decode(me, id, v)
		if !ok {
			continue
		}
		out[id] = *m.view(ch)
	}
	return out, nil
}

// RepairMirrors re-sends every copy written by me whose peer write failed. A
// peer copy that already finished on its own terms, such as a pending copy
// past its timeout, is never overwritten: me's copy takes the peer's outcome
// instead. It returns the number of peer copies rewritten and stops at the
// first store failure.
func (m *Manager) RepairMirrors(ctx context.Context, me identity.GlobalID) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.unmirrored))
	for k := range m.unmirrored {
		if k.actor == me {
			ids = append(ids, k.id)
		}
	}
	m.mu.Unlock()
	sort.Strings(ids)

	repaired := 0
	for _, id := range ids {
		pushed, err := m.repairMirror(ctx, me, id)
		if err != nil {
			return repaired
		}
		if pushed {
			repaired++
		}
	}
	return repaired
}

// current reads me's copy of id after settling any peer write still owed for
// it, so a mutation never builds on a copy the peer has already finished.
func (m *Manager) current(ctx context.Context, me identity.GlobalID, id string) (*Challenge, error) {
	if m.owesMirror(me, id) {
		if _, err := m.repairMirror(ctx, me, id); err != nil {
			return nil, err
		}
	}
	return m.own(ctx, me, id)
}

func (m *Manager) repairMirror(ctx context.Context, me identity.GlobalID, id string) (bool, error) {
	own, err := m.own(ctx, me, id)
	if err != nil {
		return false, err
	}
	if own == nil {
		m.forgetUnmirrored(me, id)
		return false, nil
	}
	peer := own.Counterpart(me).GlobalID
	raw, ok := m.gw.Read(ctx, mailboxPath(peer, id))
	if !ok {
		return false, ErrUnavailable
	}
	mine := m.Classify(*own)
	switch theirs, decoded := decodePeer(peer, id, raw); {
	case raw == nil && mine.Terminal():
		m.forgetUnmirrored(me, id)
		return false, nil
	case decoded && sameCopy(*own, theirs):
		m.forgetUnmirrored(me, id)
		return false, nil
	case decoded && m.Classify(theirs).Terminal() && m.Classify(theirs) != mine:
		if !m.gw.Write(ctx, mailboxPath(me, id), theirs) {
			return false, ErrUnavailable
		}
		metricMirrorAdoptions.Add(1)
		m.forgetUnmirrored(me, id)
		log.Info().
			Str("challenge_id", id).
			Str("global_id", string(me)).
			Str("was", string(mine)).
			Str("status", string(m.Classify(theirs))).
			Msg("took peer outcome for unmirrored challenge")
		return false, nil
	}
	if !m.gw.Write(ctx, mailboxPath(peer, id), *own) {
		return false, ErrUnavailable
	}
	metricMailboxWrites.Add(1)
	metricMirrorRepairs.Add(1)
	m.forgetUnmirrored(me, id)
	log.Info().Str("challenge_id", id).Str("peer", string(peer)).Msg("peer copy repaired")
	return true, nil
}

func decodePeer(peer identity.GlobalID, id string, raw json.RawMessage) (Challenge, bool) {
	if raw == nil {
		return Challenge{}, false
	}
	return decode(peer, id, raw)
}

// sameCopy compares two stored copies by their encoding.
func sameCopy(a, b Challenge) bool {
	ra, errA := json.Marshal(a)
	rb, errB := json.Marshal(b)
	return errA == nil && errB == nil && bytes.Equal(ra, rb)
}

func (m *Manager) owesMirror(actor identity.GlobalID, id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.unmirrored[mirrorKey{actor, id}]
	return ok
}

func (m *Manager) rememberUnmirrored(actor identity.GlobalID, ch Challenge) {
	m.mu.Lock()
	m.unmirrored[mirrorKey{actor, ch.ID}] = ch
	m.mu.Unlock()
}

func (m *Manager) forgetUnmirrored(actor identity.GlobalID, id string) {
	m.mu.Lock()
	delete(m.unmirrored, mirrorKey{actor, id})
	m.mu.Unlock()
}

// own reads me's copy of id. A missing or malformed copy is nil, nil.
func (m *Manager) own(ctx context.Context, me identity.GlobalID, id string) (*Challenge, error) {
	if !me.Valid() {
		return nil, m.reject(ErrInvalidPlayer)
	}
	if !validID(id) {
		return nil, m.reject(ErrInvalidID)
	}
	raw, ok := m.gw.Read(ctx, mailboxPath(me, id))
	if !ok {
		return nil, ErrUnavailable
	}
	if raw == nil {
		return nil, nil
	}
	ch, ok := decode(me, id, raw)
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

// writeBoth writes the actor's copy first. A failed actor write is
// ErrUnavailable. A failed peer write is reported through mirrored=false and
// remembered until RepairMirrors or the next mutation delivers it.
func (m *Manager) writeBoth(ctx context.Context, actor identity.GlobalID, ch Challenge) (mirrored bool, err error) {
	if ch.Lobby.Ready == nil {
		ch.Lobby.Ready = map[identity.GlobalID]bool{}
	}
	peer := ch.Counterpart(actor).GlobalID
	if !m.gw.Write(ctx, mailboxPath(actor, ch.ID), ch) {
		return false, ErrUnavailable
	}
	metricMailboxWrites.Add(1)
	if !m.gw.Write(ctx, mailboxPath(peer, ch.ID), ch) {
		metricMirrorFailures.Add(1)
		m.rememberUnmirrored(actor, ch)
		log.Warn().Str("challenge_id", ch.ID).Str("peer", string(peer)).Msg("peer mailbox write failed")
		return false, nil
	}
	metricMailboxWrites.Add(1)
	m.forgetUnmirrored(actor, ch.ID)
	return true, nil
}

// replay answers a retried call. The peer copy is brought level with the
// actor's, unless the peer already finished on its own terms, in which case
// the actor's copy follows it and that outcome is returned.
func (m *Manager) replay(ctx context.Context, actor identity.GlobalID, ch Challenge) (*Challenge, error) {
	if _, err := m.repairMirror(ctx, actor, ch.ID); err != nil {
		return nil, err
	}
	cur, err := m.own(ctx, actor, ch.ID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return m.view(ch), nil
	}
	return m.view(*cur), nil
}

func (m *Manager) view(ch Challenge) *Challenge {
	out := ch.clone()
	out.Status = m.Classify(ch)
	return &out
}

func (m *Manager) reject(err error) error {
	if errors.Is(err, ErrRejected) {
		metricRejections.Add(1)
	}
	return err
}

func decode(owner identity.GlobalID, id string, raw json.RawMessage) (Challenge, bool) {
	if err := schema.Validate(schema.Challenge, raw); err != nil {
		metricMalformedDropped.Add(1)
		log.Debug().Err(err).Str("challenge_id", id).Msg("drop malformed challenge")
		return Challenge{}, false
	}
	var ch Challenge
	if err := json.Unmarshal(raw, &ch); err != nil {
		metricMalformedDropped.Add(1)
		return Challenge{}, false
	}
	if ch.ID != id {
		metricMalformedDropped.Add(1)
		return Challenge{}, false
	}
	if _, ok := SideOf(ch, owner); !ok {
		metricMalformedDropped.Add(1)
		return Challenge{}, false
	}
	if ch.Lobby.Ready == nil {
		ch.Lobby.Ready = map[identity.GlobalID]bool{}
	}
	return ch, true
}

func sortChallenges(list []Challenge) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt != list[j].CreatedAt {
			return list[i].CreatedAt < list[j].CreatedAt
		}
		return list[i].ID < list[j].ID
	})
}
