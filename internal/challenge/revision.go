package challenge

// RevisionTracker remembers the last wager revision applied per challenge so
// a reader can ignore copies that arrive out of order.
type RevisionTracker struct {
	seen map[string]int
}

func NewRevisionTracker() *RevisionTracker {
	return &RevisionTracker{seen: map[string]int{}}
}

// Accept records the wager revision of ch and reports whether it is newer
// than anything applied before. Copies without a wager are never accepted.
func (t *RevisionTracker) Accept(ch Challenge) bool {
	if ch.Wager == nil {
		return false
	}
	last, ok := t.seen[ch.ID]
	if ok && ch.Wager.Revision <= last {
		return false
	}
	t.seen[ch.ID] = ch.Wager.Revision
	return true
}

func (t *RevisionTracker) Last(id string) (int, bool) {
	rev, ok := t.seen[id]
	return rev, ok
}

func (t *RevisionTracker) Forget(id string) {
	delete(t.seen, id)
}
