package chat

import "time"

// Log holds one conversation's confirmed messages and the provisional entries
// still waiting for a server copy. It is not safe for concurrent use.
//
// Reconciliation is a best-effort heuristic: the server never echoes a client
// correlation id, so a provisional entry is matched by sender and body only.
type Log struct {
	confirmed   []Message
	provisional []Message
	claimed     map[MessageID]struct{}
}

func NewLog() *Log {
	return &Log{claimed: make(map[MessageID]struct{})}
}

// ReplaceConfirmed swaps in the server's message set and removes every
// provisional entry that now has a confirmed counterpart. It returns the
// provisional entries it removed.
func (l *Log) ReplaceConfirmed(msgs []Message) []Message {
	confirmed := make([]Message, 0, len(msgs))
	present := make(map[MessageID]struct{}, len(msgs))
	for _, m := range msgs {
		m.Status = StatusConfirmed
		confirmed = append(confirmed, m)
		present[m.ID] = struct{}{}
	}
	SortMessages(confirmed)
	l.confirmed = confirmed

	for id := range l.claimed {
		if _, ok := present[id]; !ok {
			delete(l.claimed, id)
		}
	}
	return l.reconcile()
}

// reconcile lets each unclaimed confirmed message retire at most one
// provisional entry: the oldest one with the same sender and body created no
// later than the confirmed sent-at.
func (l *Log) reconcile() []Message {
	if len(l.provisional) == 0 {
		return nil
	}
	var removed []Message
	for _, c := range l.confirmed {
		if _, ok := l.claimed[c.ID]; ok {
			continue
		}
		idx := l.oldestMatch(c)
		if idx < 0 {
			continue
		}
		removed = append(removed, l.provisional[idx])
		l.provisional = append(l.provisional[:idx], l.provisional[idx+1:]...)
		l.claimed[c.ID] = struct{}{}
		if len(l.provisional) == 0 {
			break
		}
	}
	return removed
}

func (l *Log) oldestMatch(c Message) int {
	best := -1
	for i, p := range l.provisional {
		if p.SenderID != c.SenderID || p.Body != c.Body || c.SentAt.Before(p.SentAt) {
			continue
		}
		if best < 0 || Before(p, l.provisional[best]) {
			best = i
		}
	}
	return best
}

// AppendProvisional adds a locally synthesized entry.
func (l *Log) AppendProvisional(m Message) {
	if m.Status != StatusFailed {
		m.Status = StatusPending
	}
	l.provisional = append(l.provisional, m)
}

// MarkFailed flags a provisional entry as unsent.
func (l *Log) MarkFailed(id MessageID) bool {
	for i := range l.provisional {
		if l.provisional[i].ID == id {
			l.provisional[i].Status = StatusFailed
			return true
		}
	}
	return false
}

// MarkPending puts a failed entry back in flight with a fresh local timestamp.
func (l *Log) MarkPending(id MessageID, at time.Time) (Message, bool) {
	for i := range l.provisional {
		if l.provisional[i].ID == id {
			l.provisional[i].Status = StatusPending
			l.provisional[i].SentAt = at
			return l.provisional[i], true
		}
	}
	return Message{}, false
}

// Provisional looks up a provisional entry by its local id.
func (l *Log) Provisional(id MessageID) (Message, bool) {
	for _, p := range l.provisional {
		if p.ID == id {
			return p, true
		}
	}
	return Message{}, false
}

// Unsent returns the provisional entries whose send failed, oldest first.
func (l *Log) Unsent() []Message {
	var out []Message
	for _, p := range l.provisional {
		if p.Status == StatusFailed {
			out = append(out, p)
		}
	}
	SortMessages(out)
	return out
}

// Messages returns the merged log as a new slice sorted by sent-at.
func (l *Log) Messages() []Message {
	out := make([]Message, 0, len(l.confirmed)+len(l.provisional))
	out = append(out, l.confirmed...)
	out = append(out, l.provisional...)
	SortMessages(out)
	return out
}

func (l *Log) Len() int {
	return len(l.confirmed) + len(l.provisional)
}
